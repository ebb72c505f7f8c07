// Package events 定义控制面对外的通知通道。
//
// 审批引擎、断点控制器、状态历史与反馈收集器都通过 Bus 发布事件，
// 展示层（终端、WebSocket、GUI）订阅这些事件以呈现待审批请求、
// 断点命中与快照变化。
package events
