package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/linworld/server/internal/config"
	"github.com/linworld/server/internal/data"
	"github.com/linworld/server/internal/game"
	"github.com/linworld/server/internal/handler"
	gonet "github.com/linworld/server/internal/net"
	"github.com/linworld/server/internal/net/packet"
	"github.com/linworld/server/internal/persist"
	"github.com/linworld/server/internal/scripting"
	"github.com/linworld/server/internal/sim"
	"github.com/linworld/server/internal/world"
)

// commandQueueSize bounds the session-to-world-loop command channel.
// Handlers drop commands rather than block when it fills.
const commandQueueSize = 512

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            LinWorld  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      天堂 3.80C · Go 世界伺服器           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	// Use rune count for CJK width calculation (each CJK char = 2 columns)
	displayWidth := 0
	for _, r := range title {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	lineLen := 46 - displayWidth - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	displayWidth := 0
	for _, r := range label {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	dotsLen := 42 - displayWidth - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("LINWORLD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to PostgreSQL and run migrations
	printSection("資料庫")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL 連線成功")

	schemaVersion, err := persist.RunMigrations(ctx, db.Pool)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK(fmt.Sprintf("資料庫遷移完成 (schema v%d)", schemaVersion))

	accountRepo := persist.NewAccountRepo(db)
	charRepo := persist.NewCharacterRepo(db)

	// A previous crash can leave accounts flagged online and locked out.
	if err := accountRepo.ResetAllOnline(ctx); err != nil {
		return fmt.Errorf("reset online flags: %w", err)
	}
	printOK("帳號上線狀態已重置")
	fmt.Println()

	// 4. Load world data
	printSection("資料載入")

	dataDir := cfg.Server.DataDir
	templates, err := data.LoadTemplateTable(filepath.Join(dataDir, "templates.yaml"))
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	printStat("實體模板", templates.Count())

	spawns, err := data.LoadSpawnList(filepath.Join(dataDir, "spawns.yaml"))
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}

	skillTable, err := data.LoadSkillTable(filepath.Join(dataDir, "skills.yaml"))
	if err != nil {
		return fmt.Errorf("load skill table: %w", err)
	}
	printStat("技能", skillTable.Count())

	// 5. Initialize Lua scripting engine
	luaEngine, err := scripting.NewEngine(cfg.Server.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("Lua 腳本載入完成")

	// 6. Build the simulation engine and place spawns
	engine := sim.NewEngine(templates, cfg.Engine.VisibilityRange, log)
	spawned := game.SpawnAll(engine, templates, spawns, log)
	printStat("實體生成", spawned)
	fmt.Println()

	// 7. Shared registry, command channel, packet handlers
	registry := world.NewRegistry(cfg.Engine.VisibilityRange, log)
	commands := make(chan handler.Command, commandQueueSize)

	pktReg := packet.NewRegistry(log)
	deps := &handler.Deps{
		Accounts:   accountRepo,
		Characters: charRepo,
		Registry:   registry,
		Skills:     skillTable,
		Scripting:  luaEngine,
		Commands:   commands,
		Config:     cfg,
		Log:        log,
	}
	handler.RegisterAll(pktReg, deps)

	// 8. Network server
	opts := gonet.SessionOptions{
		InQueueSize:  cfg.Network.InQueueSize,
		OutQueueSize: cfg.Network.OutQueueSize,
		ReadTimeout:  cfg.Network.ReadTimeout,
		WriteTimeout: cfg.Network.WriteTimeout,
	}
	if cfg.RateLimit.Enabled {
		opts.PacketsPerSecond = cfg.RateLimit.PacketsPerSecond
	}
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, pktReg, opts, handler.Cleanup(deps), log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 9. World loop
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loop := game.NewLoop(cfg.Engine, engine, registry, templates, luaEngine, charRepo, commands, log)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(loopCtx)
	}()

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("世界迴圈啟動 (tick: %s)", cfg.Engine.TickRate))
	fmt.Println()

	// 10. Wait for shutdown signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdownCh
	log.Info("收到關閉信號", zap.String("signal", sig.String()))

	// Stop accepting, then close every live session. Each close runs the
	// disconnect hook, which saves the character and marks the account
	// offline, so there is no separate save-all pass here.
	netServer.Shutdown()
	for _, sess := range netServer.Sessions() {
		sess.Close()
	}
	waitForSessions(netServer, 10*time.Second)

	stopLoop()
	<-loopDone

	log.Info("伺服器已停止")
	return nil
}

// waitForSessions blocks until every session goroutine has unwound (their
// disconnect hooks finish the final saves) or the deadline passes.
func waitForSessions(s *gonet.Server, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for s.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
