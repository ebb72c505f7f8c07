// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 server 提供 HTTP 服务器生命周期管理。

Manager 封装 net/http.Server：Start 非阻塞启动，Run 阻塞到 ctx 结束后
在 ShutdownTimeout 内优雅关闭，异步服务错误通过 Errors() 传播。
cmd/agentgate 用 errgroup 同时运行 API 与 metrics 两个 Manager。
*/
package server
