// Package mocks 提供测试用的执行器与存储实现。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/agentgate/session"
)

// Executor 记录调用的工具执行器，支持结果与错误注入
type Executor struct {
	mu     sync.Mutex
	calls  []session.ToolCall
	result string
	err    error
}

// NewExecutor 创建执行器，默认返回 "ok"
func NewExecutor() *Executor {
	return &Executor{result: "ok"}
}

// WithResult 设置返回结果
func (e *Executor) WithResult(result string) *Executor {
	e.result = result
	return e
}

// WithError 设置返回错误
func (e *Executor) WithError(err error) *Executor {
	e.err = err
	return e
}

// Execute 实现 session.Executor
func (e *Executor) Execute(ctx context.Context, call session.ToolCall) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
	return e.result, e.err
}

// Calls 返回已执行的调用
func (e *Executor) Calls() []session.ToolCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]session.ToolCall(nil), e.calls...)
}
