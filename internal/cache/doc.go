// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 管理共享的 Redis 连接。

# 概述

Manager 负责连接建立、定时探活与优雅关闭。审批引擎的永久记忆
决策在 remember_backend 为 redis 时通过 Client() 写入同一连接，
从而在进程重启后保留 "type:title" 维度的决定。

# 核心类型

  - Manager：持有 go-redis 客户端，提供 Client/Ping/Close。
  - Config：地址、密码、连接池大小与健康检查间隔，可由
    config.RedisConfig 经 ConfigFrom 生成。
*/
package cache
