package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		tool string
		args map[string]any
		want Risk
	}{
		{"file delete hits the table first", "file_operations", map[string]any{"action": "delete", "path": "/tmp/x"}, RiskHigh},
		{"file write is high", "file_operations", map[string]any{"action": "write"}, RiskHigh},
		{"file move is high", "file_operations", map[string]any{"action": "move"}, RiskHigh},
		{"file read is low", "file_operations", map[string]any{"action": "read"}, RiskLow},
		{"table matches tool id substring", "remote_process_management", map[string]any{"action": "kill"}, RiskHigh},
		{"system control without risky action is high", "system_control", map[string]any{"action": "volume"}, RiskHigh},
		{"service stop is high", "service_control", map[string]any{"action": "stop"}, RiskHigh},
		{"firewall is high", "security_operations", map[string]any{"action": "modify_firewall"}, RiskHigh},
		{"sensitive tool is medium", "send_email", map[string]any{"to": "a@b.c"}, RiskMedium},
		{"unknown tool is low", "weather", nil, RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.tool, tt.args))
		})
	}
}

func TestClassifier_CustomRules(t *testing.T) {
	c := NewClassifier(
		WithHighRiskActions("database", "drop"),
		WithSensitiveTools("clipboard"),
	)

	assert.Equal(t, RiskHigh, c.Classify("database", map[string]any{"action": "drop"}))
	assert.Equal(t, RiskMedium, c.Classify("clipboard", nil))

	// 首个命中即返回：敏感规则先于工具专属规则
	assert.Equal(t, RiskMedium, NewClassifier(WithSensitiveTools("system_control")).Classify("system_control", nil))

	// custom rules never leak into the package defaults
	assert.Equal(t, RiskLow, NewClassifier().Classify("database", map[string]any{"action": "drop"}))
}

func TestClassifier_TypeFor(t *testing.T) {
	c := NewClassifier()

	assert.Equal(t, TypeFileWrite, c.TypeFor("file_operations", map[string]any{"action": "delete"}))
	assert.Equal(t, TypeToolCall, c.TypeFor("file_operations", map[string]any{"action": "read"}))
	assert.Equal(t, TypeSystemChange, c.TypeFor("system_control", nil))
	assert.Equal(t, TypeNetwork, c.TypeFor("http_request", nil))
	assert.Equal(t, TypeNetwork, c.TypeFor("network_scan", nil))
	assert.Equal(t, TypeSensitiveAction, c.TypeFor("keyboard_mouse", nil))
	assert.Equal(t, TypeToolCall, c.TypeFor("weather", nil))
}

func TestClassifier_Describe(t *testing.T) {
	c := NewClassifier()

	assert.Equal(t, "File operation: delete on /tmp/x",
		c.Describe("file_operations", map[string]any{"action": "delete", "path": "/tmp/x"}))
	assert.Equal(t, "File operation: write on unknown path",
		c.Describe("file_operations", map[string]any{"action": "write"}))
	assert.Equal(t, "Input: type - hello",
		c.Describe("keyboard_mouse", map[string]any{"action": "type", "text": "hello"}))
	assert.Equal(t, "System: shutdown", c.Describe("system_control", map[string]any{"action": "shutdown"}))
	assert.Equal(t, "Process: kill nginx",
		c.Describe("process_management", map[string]any{"action": "kill", "name": "nginx"}))
	assert.Equal(t, "Email to: ops@example.com", c.Describe("send_email", map[string]any{"to": "ops@example.com"}))
	assert.Equal(t, "weather: execute", c.Describe("weather", nil))
	assert.Equal(t, "counter: 3", c.Describe("counter", map[string]any{"action": 3}))
}

func TestRisk_AtLeast(t *testing.T) {
	assert.True(t, RiskCritical.AtLeast(RiskHigh))
	assert.True(t, RiskMedium.AtLeast(RiskMedium))
	assert.False(t, RiskLow.AtLeast(RiskMedium))
}

func TestType_Valid(t *testing.T) {
	assert.True(t, TypeReview.Valid())
	assert.False(t, Type("bogus").Valid())
}
