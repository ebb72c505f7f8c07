// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理反馈持久化表 feedback_entries 的 Schema 版本，
支持 PostgreSQL、MySQL 与 SQLite，基于 golang-migrate 实现。

# 概述

各方言的 SQL 文件通过 embed.FS 内嵌在二进制中。迁移器接收
internal/database 打开的连接，因此 SQLite 同样走纯 Go 驱动。

# 核心类型

  - Migrator / DefaultMigrator：Up/Down/Steps/Goto/Force/Version/Status/Info。
  - Config：数据库类型、连接句柄与版本表名。
  - CLI：agentgate migrate 子命令的格式化输出层。
*/
package migration
