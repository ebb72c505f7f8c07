// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 database 提供 GORM 数据库的打开与连接池管理。

# 核心类型

  - Open / Dialector：按配置选择 postgres、mysql 或 sqlite（glebarez 纯 Go 驱动）方言。
  - PoolManager：后台定时 PingContext 探活，把连接数上报给 StatsRecorder，
    Close 时停止健康检查并关闭底层 sql.DB。

反馈持久化（feedback.GormStore）与 migrate 子命令共享这里打开的连接。
*/
package database
