package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"friendstack/config"
	"friendstack/server"
)

// friendstack 入口：启动 HTTP + WebSocket 服务，并初始化牌桌管理器
func main() {
	var (
		cfgPath string
		addr    string
		watch   bool
	)
	flag.StringVar(&cfgPath, "config", "", "path to YAML config (optional)")
	flag.StringVar(&addr, "addr", "", "server listen address, overrides config, e.g. :8080")
	flag.BoolVar(&watch, "watch", true, "reload game tuning when the config file changes")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		panic(err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	tm := server.NewTableManager(cfg)
	// 先预创建一个默认牌桌，便于快速试跑
	if _, err := tm.GetOrCreateTable(cfg.Server.DefaultTable); err != nil {
		server.Log.Fatalf("default table: %v", err)
	}

	if watch && cfgPath != "" {
		w, err := config.Watch(cfgPath)
		if err != nil {
			server.Log.Fatalf("watch config: %v", err)
		}
		defer w.Close()
		go func() {
			for {
				select {
				case c, ok := <-w.Updates:
					if !ok {
						return
					}
					if err := tm.ApplyGameConfig(c.Game); err != nil {
						server.Log.Warnf("config reload rejected: %v", err)
						continue
					}
					server.Log.Infof("config reloaded from %s", cfgPath)
				case err, ok := <-w.Errors:
					if !ok {
						return
					}
					server.Log.Warnf("config reload: %v", err)
				}
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", tm.HandleWS)
	// 前后端分离：将 / 映射到静态资源目录
	mux.Handle("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))
	// 管理与监控接口
	mux.HandleFunc("/tables", tm.HandleTables)
	mux.HandleFunc("/admin/config", tm.HandleAdminConfig)
	mux.HandleFunc("/metrics", tm.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	go func() {
		server.Log.Infof("friendstack listening on %s; open http://localhost%v/", cfg.Server.Addr, cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnf("shutdown: %v", err)
	}
	tm.Close()
}
