package approval

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/BaSui01/agentgate/types"
)

// Type 审批类型
type Type string

const (
	TypeToolCall        Type = "tool_call"
	TypeSensitiveAction Type = "sensitive"
	TypeFileWrite       Type = "file_write"
	TypeSystemChange    Type = "system_change"
	TypeNetwork         Type = "network"
	TypeEditArgs        Type = "edit_args"
	TypeConfirmation    Type = "confirmation"
	TypeMultiStep       Type = "multi_step"
	TypePermission      Type = "permission"
	TypeExecution       Type = "execution"
	TypeReview          Type = "review"
)

var knownTypes = map[Type]struct{}{
	TypeToolCall: {}, TypeSensitiveAction: {}, TypeFileWrite: {}, TypeSystemChange: {},
	TypeNetwork: {}, TypeEditArgs: {}, TypeConfirmation: {}, TypeMultiStep: {},
	TypePermission: {}, TypeExecution: {}, TypeReview: {},
}

// Valid reports whether t is one of the known approval types.
func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Status 审批状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
	StatusModified  Status = "modified"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a resolved outcome.
func (s Status) Terminal() bool {
	return s != StatusPending && s != ""
}

// Allowed reports whether the outcome lets the action proceed.
// A modified response is an approval with edited parameters.
func (s Status) Allowed() bool {
	return s == StatusApproved || s == StatusModified
}

// Risk 风险等级
type Risk string

const (
	RiskLow      Risk = "low"
	RiskMedium   Risk = "medium"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

var riskRank = map[Risk]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}

// AtLeast reports whether r is as severe as other.
func (r Risk) AtLeast(other Risk) bool {
	return riskRank[r] >= riskRank[other]
}

// Request 审批请求。
// 创建后只读字段直接导出；决议相关字段由内部锁保护，只能经方法读取。
// 状态从 pending 迁出恰好一次。
type Request struct {
	ID             string         `json:"id"`
	Type           Type           `json:"type"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Risk           Risk           `json:"risk"`
	Details        map[string]any `json:"details,omitempty"`
	EditableFields []string       `json:"editable_fields,omitempty"`
	Timeout        time.Duration  `json:"timeout"`
	ToolName       string         `json:"tool_name,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`

	mu         sync.RWMutex
	status     Status
	response   string
	modified   map[string]any
	responder  string
	resolvedAt time.Time
	done       chan struct{}
}

func newRequest(id string, typ Type, title, description string, details map[string]any) *Request {
	return &Request{
		ID:          id,
		Type:        typ,
		Title:       title,
		Description: description,
		Risk:        RiskMedium,
		Details:     types.CloneMap(details),
		CreatedAt:   time.Now(),
		status:      StatusPending,
		done:        make(chan struct{}),
	}
}

// Status 返回当前状态
func (r *Request) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Response 返回人工答复文本
func (r *Request) Response() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.response
}

// Responder 返回作出决定的用户
func (r *Request) Responder() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.responder
}

// ResolvedAt 返回决议时间，未决时为零值
func (r *Request) ResolvedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolvedAt
}

// ModifiedValues 返回人工编辑过的字段副本
func (r *Request) ModifiedValues() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return types.CloneMap(r.modified)
}

// Allowed reports whether the request resolved as approved or modified.
func (r *Request) Allowed() bool {
	return r.Status().Allowed()
}

// Done 在请求决议时关闭
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// EffectiveDetails 返回执行时应使用的参数：原参数叠加人工编辑的字段。
func (r *Request) EffectiveDetails() map[string]any {
	out := types.CloneMap(r.Details)
	if out == nil {
		out = make(map[string]any)
	}
	for k, v := range r.ModifiedValues() {
		out[k] = v
	}
	return out
}

// resolve transitions out of pending. Only the first call wins.
func (r *Request) resolve(status Status, response string, modified map[string]any, responder string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusPending {
		return false
	}
	r.status = status
	r.response = response
	r.modified = modified
	r.responder = responder
	r.resolvedAt = time.Now()
	close(r.done)
	return true
}

func (r *Request) timeoutOr(d time.Duration) time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return d
}

type requestJSON struct {
	ID             string         `json:"id"`
	Type           Type           `json:"type"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Risk           Risk           `json:"risk"`
	Details        map[string]any `json:"details,omitempty"`
	EditableFields []string       `json:"editable_fields,omitempty"`
	TimeoutSeconds float64        `json:"timeout_seconds"`
	ToolName       string         `json:"tool_name,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	Status         Status         `json:"status"`
	Response       string         `json:"response,omitempty"`
	ModifiedValues map[string]any `json:"modified_values,omitempty"`
	Responder      string         `json:"responder,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
}

// MarshalJSON 输出包含决议状态的一致视图
func (r *Request) MarshalJSON() ([]byte, error) {
	r.mu.RLock()
	v := requestJSON{
		ID:             r.ID,
		Type:           r.Type,
		Title:          r.Title,
		Description:    r.Description,
		Risk:           r.Risk,
		Details:        r.Details,
		EditableFields: r.EditableFields,
		TimeoutSeconds: r.Timeout.Seconds(),
		ToolName:       r.ToolName,
		CreatedAt:      r.CreatedAt,
		Status:         r.status,
		Response:       r.response,
		ModifiedValues: r.modified,
		Responder:      r.responder,
	}
	if !r.resolvedAt.IsZero() {
		t := r.resolvedAt
		v.ResolvedAt = &t
	}
	r.mu.RUnlock()
	return json.Marshal(v)
}

// Scope 记忆决策的作用域
type Scope string

const (
	ScopePermanent Scope = "permanent"
	ScopeSession   Scope = "session"
)

// DecisionKey 记忆决策键：(类型, 标题)
type DecisionKey struct {
	Type  Type   `json:"type"`
	Title string `json:"title"`
}

// String 返回 "type:title" 形式
func (k DecisionKey) String() string {
	return string(k.Type) + ":" + k.Title
}

// RememberedDecision 记忆的决定，后续相同请求直接复用
type RememberedDecision struct {
	Key       DecisionKey `json:"key"`
	Approved  bool        `json:"approved"`
	Scope     Scope       `json:"scope"`
	CreatedAt time.Time   `json:"created_at"`
}
