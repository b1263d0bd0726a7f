package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"TokenPilot-Chain/internal/account"
	"TokenPilot-Chain/internal/api"
	"TokenPilot-Chain/internal/archive"
	"TokenPilot-Chain/internal/asset"
	"TokenPilot-Chain/internal/catalog"
	"TokenPilot-Chain/internal/config"
	"TokenPilot-Chain/internal/event"
	"TokenPilot-Chain/internal/executor"
	"TokenPilot-Chain/internal/intent"
	"TokenPilot-Chain/internal/ledger"
	"TokenPilot-Chain/internal/ledger/evm"
	"TokenPilot-Chain/internal/ledger/mock"
	"TokenPilot-Chain/internal/observability/alerting"
	"TokenPilot-Chain/internal/observability/metrics"
	"TokenPilot-Chain/internal/planner"
	"TokenPilot-Chain/internal/planner/cmdbridge"
	"TokenPilot-Chain/internal/planner/openai"
	"TokenPilot-Chain/internal/session"
	"TokenPilot-Chain/pkg/logger"
)

// main 是 TokenPilot 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("tokenpilotd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("TOKENPILOT_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "tokenpilot.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logger.Level,
		Format:      cfg.Logger.Format,
		OutputPaths: cfg.Logger.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logger.Audit.Enabled,
			Path:       cfg.Logger.Audit.Path,
			MaxSizeMB:  cfg.Logger.Audit.MaxSizeMB,
			MaxBackups: cfg.Logger.Audit.MaxBackups,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()

	// 初始化规划器客户端。
	plannerClient, err := createPlannerClient(cfg)
	if err != nil {
		return err
	}

	allowlist, err := asset.LoadAllowlist(cfg.Assets.Path)
	if err != nil {
		return err
	}
	actionCatalog, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	var accountStore account.Store
	switch cfg.Storage.Aliases.Driver {
	case "", "memory":
		accountStore = account.NewMemoryStore()
	case "mysql":
		store, err := account.NewMySQLStore(ctx, cfg.Storage.Aliases.DSN)
		if err != nil {
			return err
		}
		accountStore = store
	default:
		return fmt.Errorf("未知的别名存储驱动: %s", cfg.Storage.Aliases.Driver)
	}
	defer func() { _ = accountStore.Close() }()

	var archiveStore archive.Store
	switch cfg.Storage.Archive.Driver {
	case "", "memory":
		archiveStore = archive.NewMemoryStore()
	case "mysql":
		store, err := archive.NewMySQLStore(ctx, cfg.Storage.Archive.DSN)
		if err != nil {
			return err
		}
		archiveStore = store
	default:
		return fmt.Errorf("未知的留档存储驱动: %s", cfg.Storage.Archive.Driver)
	}
	defer func() { _ = archiveStore.Close() }()

	var guard intent.ReplayGuard
	switch cfg.ReplayGuard.Driver {
	case "", "memory":
		guard = intent.NewMemoryReplayGuard()
	case "redis":
		redisGuard, err := intent.NewRedisReplayGuard(intent.RedisReplayGuardConfig{
			Address:  cfg.ReplayGuard.Address,
			Password: cfg.ReplayGuard.Password,
			DB:       cfg.ReplayGuard.DB,
			Key:      cfg.ReplayGuard.Key,
		})
		if err != nil {
			return err
		}
		defer redisGuard.Close()
		guard = redisGuard
	default:
		return fmt.Errorf("未知的重放防护驱动: %s", cfg.ReplayGuard.Driver)
	}

	var queue event.Queue
	switch cfg.Events.Driver {
	case "", "memory":
		queue = event.NewMemoryQueue(1024)
	case "redis":
		redisQueue, err := event.NewRedisQueue(event.RedisQueueConfig{
			Address:  cfg.Events.Address,
			Password: cfg.Events.Password,
			DB:       cfg.Events.DB,
			Queue:    cfg.Events.Queue,
		})
		if err != nil {
			return err
		}
		queue = redisQueue
	case "rabbitmq":
		rabbitQueue, err := event.NewRabbitMQQueue(event.RabbitMQConfig{
			URL:     cfg.Events.URL,
			Queue:   cfg.Events.Queue,
			Durable: true,
		})
		if err != nil {
			return err
		}
		queue = rabbitQueue
	default:
		return fmt.Errorf("未知的事件队列驱动: %s", cfg.Events.Driver)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.L().Warn("关闭事件队列失败", slog.Any("error", err))
		}
	}()

	var settlement ledger.Client
	switch cfg.Ledger.Driver {
	case "", "mock":
		settlement = mock.NewLedger()
	case "evm":
		client, err := evm.NewClient(ctx, evm.Config{
			RPCURL:     cfg.Ledger.EVM.RPCURL,
			PrivateKey: cfg.Ledger.EVM.PrivateKey,
			GasLimit:   cfg.Ledger.EVM.GasLimit,
		})
		if err != nil {
			return err
		}
		settlement = client
	default:
		return fmt.Errorf("未知的结算驱动: %s", cfg.Ledger.Driver)
	}
	defer func() { _ = settlement.Close() }()

	intentStore := intent.NewMemoryStore()

	secret, err := intent.NewSecret()
	if err != nil {
		return err
	}
	var gate intent.Gate
	switch cfg.Confirmation.Strategy {
	case "", "code":
		ttl := time.Duration(cfg.Confirmation.TTLSeconds) * time.Second
		gate = intent.NewCodeGate(intentStore, secret, ttl, cfg.Confirmation.CodeLength)
	case "checksum":
		gate = intent.NewChecksumGate(intentStore)
	default:
		return fmt.Errorf("未知的确认策略: %s", cfg.Confirmation.Strategy)
	}

	alerter := alerting.NewFanout(&alerting.LogNotifier{})
	engine := executor.NewEngine(intentStore, guard, settlement,
		executor.WithEventProducer(queue),
		executor.WithAlertDispatcher(alerter),
	)

	controller := session.NewController(
		plannerClient,
		actionCatalog,
		allowlist,
		accountStore,
		intentStore,
		gate,
		engine,
		session.WithMaxRounds(cfg.Session.MaxRounds),
		session.WithMaxMessages(cfg.Session.MaxMessages),
		session.WithEventProducer(queue),
	)

	recorderCtx, recorderCancel := context.WithCancel(ctx)
	defer recorderCancel()

	recorder := archive.NewRecorder(archiveStore, queue, 1)
	go func() {
		if err := recorder.Start(recorderCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("留档消费协程异常退出", slog.Any("error", err))
		}
	}()

	if cfg.Server.MetricsAddress != "" {
		go func() {
			if err := metrics.StartServer(ctx, cfg.Server.MetricsAddress); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("指标服务异常退出", slog.Any("error", err))
			}
		}()
	}

	server := api.NewServer(cfg.Server.Address, controller, accountStore, archiveStore)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func createPlannerClient(cfg *config.Config) (planner.Client, error) {
	switch cfg.Planner.Provider {
	case "", "openai":
		apiKey := strings.TrimSpace(cfg.Planner.OpenAI.APIKey)
		if apiKey == "" {
			apiKey = strings.TrimSpace(os.Getenv("TOKENPILOT_OPENAI_API_KEY"))
		}
		if apiKey == "" {
			return nil, errors.New("openai provider 需要配置 api_key 或 TOKENPILOT_OPENAI_API_KEY 环境变量")
		}
		return openai.NewClient(openai.Config{
			APIKey:  apiKey,
			BaseURL: cfg.Planner.OpenAI.BaseURL,
			Model:   cfg.Planner.OpenAI.Model,
			Timeout: time.Duration(cfg.Planner.OpenAI.TimeoutSeconds) * time.Second,
		})
	case "command_bridge":
		scriptPath := cmdbridge.ResolveScriptPath(cfg.Planner.Command.WorkingDir, cfg.Planner.Command.ScriptPath)
		return cmdbridge.NewClient(cfg.Planner.Command.Executable, scriptPath, cfg.Planner.Command.WorkingDir)
	default:
		return nil, fmt.Errorf("未知的规划器 provider: %s", cfg.Planner.Provider)
	}
}
