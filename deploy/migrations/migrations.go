// Package migrations 内嵌别名与转账留档两张表的 SQL 迁移文件。
// 内存驱动不需要迁移；MySQL 驱动启动时也会自建表，文件供运维工具使用。
package migrations

import "embed"

// Files 暴露全部 SQL 迁移文件。
//
//go:embed *.sql
var Files embed.FS
