// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 AgentGate 服务端程序入口。

# 概述

cmd/agentgate 把审批引擎、断点控制器、时间旅行历史、反馈收集器和
工作流编排器组装成一个 Session，并通过 HTTP API 暴露给响应者（人类审核员
或外部审核系统）。被托管的 Agent 进程内通过 Session.Guard() 调用工具，
需要人工介入时在此阻塞，直到 API 上有人作出决定。

# 子命令

  - serve    启动 API 服务与独立的 /metrics 端口
  - migrate  反馈库迁移（up/down/steps/goto/force/version/status/info）
  - version  打印构建信息（Version、BuildTime、GitCommit 由 ldflags 注入）
  - health   访问 /health，返回码 0 表示健康

# 中间件链

Recovery → RequestID → SecurityHeaders → OTelTracing → Metrics →
RequestLogger → CORS → APIKeyAuth → JWTAuth → RateLimiter。

API Key 标识调用方应用，JWT 的 user_id（缺省 sub）作为响应者身份写入
审批记录；限流按用户 ID 计，未认证请求按 IP 计。

# 后端

  - 记住决定：memory（默认）或 redis
  - 反馈持久化：gorm（postgres / mysql / sqlite），启动时自动迁移
*/
package main
