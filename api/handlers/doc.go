// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 AgentGate 响应方 API 的请求处理器。

# 概述

每个处理器包装一个会话组件，负责解码请求、调用组件并写出统一响应。
路由使用 net/http 的方法模式（"POST /api/v1/approvals/{id}/respond"），
路径参数通过 r.PathValue 读取。

# 核心类型

  - ApprovalHandler    待审批列表、响应、取消与记忆决策
  - ControlHandler     暂停、恢复与会话状态
  - BreakpointHandler  断点增删、启停与手动触发
  - HistoryHandler     快照查询、回滚与导出
  - FeedbackHandler    反馈收集、统计与导出
  - WorkflowHandler    多级审批工作流定义
  - EventsHandler      事件总线的 WebSocket 推送
  - HealthHandler      /health、/ready 与版本信息

# 响应格式

成功与失败都使用 Response 信封（success + data + error + timestamp）。
types.Error 的错误码映射到 HTTP 状态码，其余错误统一返回 500 且不暴露原因。
DecodeJSONBody 要求 application/json，限制 1 MB 并拒绝未知字段。
*/
package handlers
