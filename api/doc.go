// Package api 汇总 AgentGate 响应者 API 的路由约定。
//
// 所有业务路由挂在 /api/v1 下，响应统一为 handlers.Response 信封：
//
//	{"success": true, "data": ..., "timestamp": "..."}
//	{"success": false, "error": {"code": "...", "message": "..."}, "timestamp": "..."}
//
// 路由分组：
//
//	/api/v1/approvals      待审批请求、答复、取消、历史与记忆决策
//	/api/v1/control        暂停、恢复与会话状态
//	/api/v1/breakpoints    断点管理与手动触发
//	/api/v1/history        状态快照、回滚与导出
//	/api/v1/feedback       反馈收集与统计
//	/api/v1/workflows      多级审批工作流
//	/api/v1/events         事件 WebSocket 流
//
// 认证：配置了 API Key 时请求须带 X-API-Key；配置了 JWT 密钥时还须带
// Bearer token，token 中的 user_id（缺省 sub）记为审批的响应者。
// /health、/ready 与 /version 不需要认证。
package api
