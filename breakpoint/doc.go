// Package breakpoint 提供 Agent 循环的断点与暂停闸门。
//
// Controller 维护 running ⇄ paused 状态机：Pause / Resume 由应答方调用，
// Agent 循环在每一步前调用 WaitIfPaused。Check 只负责判定断点是否命中并发布
// HitEvent，是否真正停下由调用方（或 PauseOnHit 配置）决定。
package breakpoint
