// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package approval 实现人在回路控制面的风险分类与审批引擎。

# 概述

Agent 每次准备调用工具时，先由 Classifier 给出风险等级，再由 Engine
决定是否需要人工确认。需要确认时 Engine 创建一个 pending 请求并通过
events.Bus 通知展示层，Agent 循环在 Wait 中挂起，直到应答方调用
Respond、请求超时或 CancelAllPending。

# 核心类型

  - Classifier     工具名 + 参数 → 风险等级 / 审批类型 / 描述
  - Engine         请求创建、等待、答复与有界历史
  - Request        审批请求，状态只会从 pending 迁出一次
  - DecisionStore  记忆决策存储（MemoryDecisionStore / RedisDecisionStore）

# 记忆决策

决策按 (类型, 标题) 记忆，分永久与会话两个作用域，创建请求时先查永久再查会话。
RequestTool 以工具名作为标题，因此记住一次工具调用的决定即为该工具的“始终允许”。
*/
package approval
