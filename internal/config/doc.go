// Package config 提供 TokenPilot 的 JSON 配置加载与默认值填充。
package config
