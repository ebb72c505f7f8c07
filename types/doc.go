// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 agentgate 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 approval、breakpoint、
timetravel、feedback、workflow 与 api 等上层模块提供统一的类型契约。

# 核心类型

  - Message / ToolCall  对话消息与工具调用，支持 Clone 深拷贝
  - Error / ErrorCode   结构化错误体系，含 HTTP 状态码与 Retryable 标记

# 主要能力

  - Context 传播：WithTraceID / WithUserID / WithSessionID / WithRequestID
  - 错误工具链：AsError / IsErrorCode / IsRetryable / GetErrorCode
  - 深拷贝：CloneMessages / CloneMap / CloneValue
*/
package types
