package approval

import (
	"context"
	"sort"
	"sync"
)

// DecisionStore 记忆决策存储接口
type DecisionStore interface {
	Get(ctx context.Context, key DecisionKey) (RememberedDecision, bool, error)
	Put(ctx context.Context, decision RememberedDecision) error
	Delete(ctx context.Context, key DecisionKey) error
	Clear(ctx context.Context) error
	List(ctx context.Context) ([]RememberedDecision, error)
}

// MemoryDecisionStore 内存决策存储，会话作用域始终使用它
type MemoryDecisionStore struct {
	mu        sync.RWMutex
	decisions map[DecisionKey]RememberedDecision
}

// NewMemoryDecisionStore 创建内存决策存储
func NewMemoryDecisionStore() *MemoryDecisionStore {
	return &MemoryDecisionStore{decisions: make(map[DecisionKey]RememberedDecision)}
}

func (s *MemoryDecisionStore) Get(_ context.Context, key DecisionKey) (RememberedDecision, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[key]
	return d, ok, nil
}

func (s *MemoryDecisionStore) Put(_ context.Context, decision RememberedDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[decision.Key] = decision
	return nil
}

func (s *MemoryDecisionStore) Delete(_ context.Context, key DecisionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decisions, key)
	return nil
}

func (s *MemoryDecisionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = make(map[DecisionKey]RememberedDecision)
	return nil
}

func (s *MemoryDecisionStore) List(_ context.Context) ([]RememberedDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RememberedDecision, 0, len(s.decisions))
	for _, d := range s.decisions {
		out = append(out, d)
	}
	sortDecisions(out)
	return out, nil
}

func sortDecisions(ds []RememberedDecision) {
	sort.Slice(ds, func(i, j int) bool {
		return ds[i].Key.String() < ds[j].Key.String()
	})
}
