// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 AgentGate 测试的共享工具和辅助函数。

# 概述

testutil 为 API、命令行与集成测试提供统一的会话构造、人工应答
模拟与断言工具。session 包自身的测试不能导入本包（会形成循环依赖）。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，自动注册 Cleanup
  - 会话辅助: NewSession 构造短超时会话；AnswerApprovals /
    AnswerApprovalsWith 在另一个 goroutine 中答复新的审批请求
  - 事件记录: RecordEvents 订阅并记录总线事件
  - 断言工具: AssertEventuallyTrue、MustJSON、MustParseJSON

# 子包

  - testutil/mocks: 记录调用的 Executor，可注入错误的 FeedbackStore
  - testutil/fixtures: 对话与工具调用样例（读文件、删文件、发邮件）

# 使用示例

	s := testutil.NewSession(t)
	testutil.AnswerApprovals(t, s, true)
	exec := mocks.NewExecutor()
	out, err := s.Guard().Run(ctx, fixtures.DeleteFile("/tmp/x"), exec.Execute)
*/
package testutil
