// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的控制面指标采集。

# 概述

Collector 使用 promauto 注册到默认 Registry，所有指标按 namespace 隔离。
领域指标不由各组件直接上报，而是通过 Observe 订阅事件总线得到，
审批、断点、时间旅行与反馈包因此不依赖 Prometheus。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 审批指标：按类型/风险的请求数、按状态的结果数、等待时长、待审批数。
  - 断点指标：按触发条件的命中次数、暂停状态。
  - 时间旅行指标：保留的快照数、回滚次数。
  - 反馈指标：按工具的评分分布。
  - 数据库指标：活跃/空闲连接数。
*/
package metrics
