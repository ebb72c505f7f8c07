// Package session 把审批引擎、断点控制器、状态历史、反馈收集与工作流编排
// 组装成一个 Agent 会话。
//
// 每个 Agent 循环持有一个 Session；循环在每次工具调用时使用 Guard.Run，
// 应答方（HTTP、CLI）通过 Session 上的各组件答复与控制。
package session
