package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config 描述了 TokenPilot 在启动阶段需要加载的核心配置。
type Config struct {
	Server       ServerConfig       `json:"server"`
	Logger       LoggerConfig       `json:"logger"`
	Planner      PlannerConfig      `json:"planner"`
	Catalog      CatalogConfig      `json:"catalog"`
	Assets       AssetsConfig       `json:"assets"`
	Ledger       LedgerConfig       `json:"ledger"`
	Storage      StorageConfig      `json:"storage"`
	ReplayGuard  ReplayGuardConfig  `json:"replay_guard"`
	Events       EventsConfig       `json:"events"`
	Confirmation ConfirmationConfig `json:"confirmation"`
	Session      SessionConfig      `json:"session"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address        string `json:"address"`
	MetricsAddress string `json:"metrics_address"`
}

// LoggerConfig 控制日志输出行为。
type LoggerConfig struct {
	Level       string         `json:"level"`
	Format      string         `json:"format"`
	OutputPaths []string       `json:"output_paths"`
	Audit       AuditLogConfig `json:"audit"`
}

// AuditLogConfig 控制审计日志的落盘与轮转。
type AuditLogConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// PlannerConfig 用于配置外部规划器的调用方式。
type PlannerConfig struct {
	Provider string          `json:"provider"`
	OpenAI   OpenAIConfig    `json:"openai"`
	Command  CmdBridgeConfig `json:"command_bridge"`
}

// OpenAIConfig 描述兼容 OpenAI 协议的规划器所需的信息。
type OpenAIConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// CmdBridgeConfig 描述通过外部命令完成规划时所需的信息。
type CmdBridgeConfig struct {
	Executable string `json:"executable"`
	ScriptPath string `json:"script_path"`
	WorkingDir string `json:"working_dir"`
}

// CatalogConfig 指定动作目录文件。
type CatalogConfig struct {
	Path string `json:"path"`
}

// AssetsConfig 指定资产白名单文件。
type AssetsConfig struct {
	Path string `json:"path"`
}

// LedgerConfig 选择结算后端。driver 为 mock 或 evm。
type LedgerConfig struct {
	Driver string    `json:"driver"`
	EVM    EVMConfig `json:"evm"`
}

// EVMConfig 描述 EVM 结算客户端的连接参数。
type EVMConfig struct {
	RPCURL     string `json:"rpc_url"`
	PrivateKey string `json:"private_key"`
	GasLimit   uint64 `json:"gas_limit"`
}

// StorageConfig 统一描述别名与留档存储的连接信息。
type StorageConfig struct {
	Aliases StoreConfig `json:"aliases"`
	Archive StoreConfig `json:"archive"`
}

// StoreConfig 选择存储驱动。driver 为 memory 或 mysql。
type StoreConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// ReplayGuardConfig 选择重放防护后端。driver 为 memory 或 redis。
type ReplayGuardConfig struct {
	Driver   string `json:"driver"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
}

// EventsConfig 选择事件队列后端。driver 为 memory、redis 或 rabbitmq。
type EventsConfig struct {
	Driver   string `json:"driver"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Queue    string `json:"queue"`
	URL      string `json:"url"`
}

// ConfirmationConfig 选择确认策略。strategy 为 code 或 checksum。
type ConfirmationConfig struct {
	Strategy   string `json:"strategy"`
	TTLSeconds int    `json:"ttl_seconds"`
	CodeLength int    `json:"code_length"`
}

// SessionConfig 控制会话窗口与规划循环的上限。
type SessionConfig struct {
	MaxMessages int `json:"max_messages"`
	MaxRounds   int `json:"max_rounds"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Planner.Provider == "" {
		c.Planner.Provider = "openai"
	}
	if c.Planner.Command.Executable == "" {
		c.Planner.Command.Executable = "python3"
	}
	if c.Planner.Command.WorkingDir == "" {
		c.Planner.Command.WorkingDir = baseDir
	} else if !filepath.IsAbs(c.Planner.Command.WorkingDir) {
		c.Planner.Command.WorkingDir = filepath.Join(baseDir, c.Planner.Command.WorkingDir)
	}

	if c.Catalog.Path == "" {
		c.Catalog.Path = filepath.Join(baseDir, "actions.json")
	} else if !filepath.IsAbs(c.Catalog.Path) {
		c.Catalog.Path = filepath.Join(baseDir, c.Catalog.Path)
	}
	if c.Assets.Path == "" {
		c.Assets.Path = filepath.Join(baseDir, "tokens.yaml")
	} else if !filepath.IsAbs(c.Assets.Path) {
		c.Assets.Path = filepath.Join(baseDir, c.Assets.Path)
	}

	if c.Ledger.Driver == "" {
		c.Ledger.Driver = "mock"
	}
	if c.Storage.Aliases.Driver == "" {
		c.Storage.Aliases.Driver = "memory"
	}
	if c.Storage.Archive.Driver == "" {
		c.Storage.Archive.Driver = "memory"
	}
	if c.ReplayGuard.Driver == "" {
		c.ReplayGuard.Driver = "memory"
	}
	if c.Events.Driver == "" {
		c.Events.Driver = "memory"
	}

	if c.Confirmation.Strategy == "" {
		c.Confirmation.Strategy = "code"
	}
	if c.Confirmation.TTLSeconds <= 0 {
		c.Confirmation.TTLSeconds = 300
	}
	if c.Confirmation.CodeLength <= 0 {
		c.Confirmation.CodeLength = 4
	}

	if c.Session.MaxMessages <= 0 {
		c.Session.MaxMessages = 10
	}
	if c.Session.MaxRounds <= 0 {
		c.Session.MaxRounds = 6
	}
}
