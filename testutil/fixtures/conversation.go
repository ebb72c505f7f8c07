// Package fixtures 提供测试用的对话与工具调用样例。
package fixtures

import (
	"github.com/BaSui01/agentgate/session"
	"github.com/BaSui01/agentgate/types"
)

// Conversation 一段简短的对话
func Conversation() []types.Message {
	return []types.Message{
		types.NewSystemMessage("You are a careful operations assistant."),
		types.NewUserMessage("Clean up the build directory."),
		types.NewAssistantMessage("I will list the files first."),
	}
}

// ReadFile 低风险的读文件调用
func ReadFile(path string) session.ToolCall {
	return session.ToolCall{ID: "call-read", Name: "read_file", Arguments: map[string]any{"path": path}}
}

// DeleteFile 删除文件调用，风险为 critical
func DeleteFile(path string) session.ToolCall {
	return session.ToolCall{
		ID:        "call-delete",
		Name:      "file_operations",
		Arguments: map[string]any{"action": "delete", "path": path},
	}
}

// SendEmail 敏感工具调用，风险为 medium
func SendEmail(to string) session.ToolCall {
	return session.ToolCall{ID: "call-email", Name: "send_email", Arguments: map[string]any{"to": to, "body": "hello"}}
}
