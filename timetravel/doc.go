// Package timetravel 保存 Agent 每一步的状态快照，并支持回到任意历史步骤。
//
// 快照是消息列表与附带元数据的深拷贝；回滚是破坏性的，目标之后的快照会被丢弃，
// 下一次 Save 从目标步数继续编号。
package timetravel
