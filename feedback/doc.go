// Package feedback 收集人对 Agent 输出的评分（1-5）与评论。
//
// Collector 在内存中保存全部条目；配置 Store 后写穿到数据库，
// 存储失败不会影响收集结果。
package feedback
