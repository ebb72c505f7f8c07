// Package config 提供 AgentGate 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（前缀 AGENTGATE）的顺序叠加，
// 覆盖审批、断点、状态历史、反馈持久化以及 HTTP 应答服务的全部参数。
package config
