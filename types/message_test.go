package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_CloneIsDeep(t *testing.T) {
	orig := NewAssistantMessage("deleting").
		WithToolCalls([]ToolCall{{ID: "1", Name: "file_operations", Arguments: json.RawMessage(`{"action":"delete"}`)}}).
		WithMetadata(map[string]any{
			"nested": map[string]any{"k": "v"},
			"list":   []any{"a", map[string]any{"x": 1}},
		})

	cp := orig.Clone()
	require.Equal(t, orig, cp)

	cp.ToolCalls[0].Arguments[2] = 'X'
	cp.Metadata["nested"].(map[string]any)["k"] = "changed"
	cp.Metadata["list"].([]any)[1].(map[string]any)["x"] = 2

	assert.Equal(t, `{"action":"delete"}`, string(orig.ToolCalls[0].Arguments))
	assert.Equal(t, "v", orig.Metadata["nested"].(map[string]any)["k"])
	assert.Equal(t, 1, orig.Metadata["list"].([]any)[1].(map[string]any)["x"])
}

func TestCloneMessages_Nil(t *testing.T) {
	assert.Nil(t, CloneMessages(nil))
	assert.Nil(t, CloneMap(nil))

	msgs := []Message{NewUserMessage("hi")}
	cp := CloneMessages(msgs)
	cp[0].Content = "bye"
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestNewToolMessage(t *testing.T) {
	m := NewToolMessage("call-1", "shell", "ok")
	assert.Equal(t, RoleTool, m.Role)
	assert.Equal(t, "call-1", m.ToolCallID)
	assert.False(t, m.Timestamp.IsZero())
}

type toolPlan struct {
	Steps []string       `json:"steps"`
	Env   map[string]int `json:"env"`
}

func TestCloneValue_TypedNestedValues(t *testing.T) {
	steps := []map[string]any{{"cmd": "ls"}}
	counts := map[string]int{"a": 1}
	plan := &toolPlan{Steps: []string{"build"}, Env: map[string]int{"n": 1}}
	ints := []int{1, 2}

	cp := CloneMap(map[string]any{"steps": steps, "counts": counts, "plan": plan, "ints": ints, "n": 3, "s": "x"})

	steps[0]["cmd"] = "rm -rf /"
	counts["a"] = 99
	plan.Steps[0] = "deploy"
	plan.Env["n"] = 2
	ints[0] = 42

	assert.Equal(t, []map[string]any{{"cmd": "ls"}}, cp["steps"])
	assert.Equal(t, map[string]int{"a": 1}, cp["counts"])
	gotPlan, ok := cp["plan"].(*toolPlan)
	require.True(t, ok)
	assert.NotSame(t, plan, gotPlan)
	assert.Equal(t, []string{"build"}, gotPlan.Steps)
	assert.Equal(t, 1, gotPlan.Env["n"])
	assert.Equal(t, []int{1, 2}, cp["ints"])
	assert.Equal(t, 3, cp["n"])
	assert.Equal(t, "x", cp["s"])
}

func TestCloneValue_UnencodableReturnedAsIs(t *testing.T) {
	ch := make(chan int)
	assert.Equal(t, ch, CloneValue(ch))
	assert.Nil(t, CloneValue(nil))
}
