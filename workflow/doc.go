// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供多步审批编排。

# 概述

一个工作流是具名的、有序的审批类型列表（例如 deploy =
[code_review, deployment]）。Orchestrator.Run 按顺序为每一步创建审批请求
并阻塞等待；只有 approved 会推进到下一步，其余状态（拒绝、修改、超时、
取消）立即终止，未到达的步骤不会创建请求。

# 核心类型

  - Approver      审批能力接口，由 approval.Engine 实现
  - Definition    工作流定义（名称 + 步骤）
  - Orchestrator  定义管理与顺序执行
*/
package workflow
