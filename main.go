package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickarena/game"
	"tickarena/server"
)

// tickarena 入口：启动 HTTP + WebSocket 服务，并运行协调器
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgPath string
		addr    string
	)
	flag.StringVar(&cfgPath, "config", "", "path to TOML config (defaults when empty)")
	flag.StringVar(&addr, "addr", "", "server listen address, overrides [server].addr, e.g. :8080")
	flag.Parse()

	cfg, err := server.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	// 使用第三方 zap 日志库写入滚动日志文件
	if err := server.InitLogger(cfg.Logging); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer server.SyncLogger()

	tuning, err := game.LoadTuning(cfg.Game.TuningFile)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	codec, err := server.NewSnapshotCodec(cfg.Network.SnapshotCodec)
	if err != nil {
		return err
	}

	coord := server.NewCoordinator(server.CoordinatorOptions{
		TickInterval: cfg.Network.TickInterval,
		MailboxSize:  cfg.Network.MailboxSize,
		Seed:         cfg.Game.Seed,
		Tuning:       tuning,
		Codec:        codec,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			server.Log.Errorf("coordinator: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWS(coord, cfg.Network))
	mux.HandleFunc("/count", server.HandleCount(coord.Visitors()))
	// 管理与监控接口
	mux.HandleFunc("/metrics", server.HandleMetrics(coord))
	mux.HandleFunc("/admin/tuning", server.HandleAdminTuning(coord))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Server.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		server.Log.Infof("tickarena listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 优雅退出（Ctrl+C）
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	server.Log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
