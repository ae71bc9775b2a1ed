package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/config"
	"github.com/printdeck/printdeck/internal/discovery"
	"github.com/printdeck/printdeck/internal/dispatch"
	"github.com/printdeck/printdeck/internal/event"
	"github.com/printdeck/printdeck/internal/plugin"
	"github.com/printdeck/printdeck/internal/printlog"
	"github.com/printdeck/printdeck/internal/registry"
	"github.com/printdeck/printdeck/internal/render"
	"github.com/printdeck/printdeck/internal/server"
	"github.com/printdeck/printdeck/internal/settings"
	"github.com/printdeck/printdeck/internal/store"
	"github.com/printdeck/printdeck/internal/transport"
	"github.com/printdeck/printdeck/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("printdeck starting", zap.String("version", version.Version))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	st, err := store.New(cfg.GetString("store.path"))
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	bus := event.NewBus(logger)

	printers := registry.New(st)
	printLog := printlog.New(st)
	settingsMod := settings.New(st, cfg.GetString("business.store_name"))
	dispatchMod := dispatch.New(
		func() dispatch.PrinterSource { return printers.Service() },
		func() transport.Recorder { return printLog.Service() },
		settingsMod,
		bus,
	)
	discoveryMod := discovery.New(bus)
	renderMod := render.New()

	reg := plugin.NewRegistry(logger)
	for _, p := range []plugin.Plugin{
		printers,
		printLog,
		settingsMod,
		dispatchMod,
		discoveryMod,
		renderMod,
	} {
		if err := reg.Register(p); err != nil {
			logger.Fatal("failed to register plugin", zap.Error(err))
		}
	}

	if err := reg.InitAll(cfg); err != nil {
		logger.Fatal("failed to initialize plugins", zap.Error(err))
	}

	if cfg.GetBool("plugins.render.enabled") {
		dispatchMod.Orchestrator().Rasterizer = renderMod.Engine()
		logger.Info("rendered receipts enabled for raw printers")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start plugins", zap.Error(err))
	}

	addr := cfg.GetString("server.host") + ":" + cfg.GetString("server.port")
	srv := server.New(addr, reg, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("printdeck ready", zap.String("addr", addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	reg.StopAll()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("printdeck stopped")
}
