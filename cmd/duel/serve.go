package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/duel/internal/arena"
	"github.com/vovakirdan/duel/internal/config"
	"github.com/vovakirdan/duel/internal/match"
	"github.com/vovakirdan/duel/internal/server"
	"github.com/vovakirdan/duel/internal/spectate"
	"github.com/vovakirdan/duel/internal/storage"
)

var (
	flagAddr          string
	flagAuthority     string
	flagTick          string
	flagNoStorage     bool
	flagSpectator     bool
	flagSpectatorAddr string
	flagHostKey       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the match server",
	Long: `Start the authoritative match server.

The server accepts two players; a third connection is rejected with
"server full". Finished matches are recorded in the configured database
unless --no-storage is given.

Spectators:
  With --spectator, a read-only SSH endpoint shows the live match.
  Connect with: ssh localhost -p 23235

Examples:
  duel serve                               # Listen on 0.0.0.0:5555
  duel serve --addr 127.0.0.1:6000         # Custom address
  duel serve --authority server            # Server-side damage table
  duel serve --spectator --ssh :2222       # Enable spectators on port 2222`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Player listen address (overrides server.address)")
	serveCmd.Flags().StringVar(&flagAuthority, "authority", "", "Combat authority: client or server")
	serveCmd.Flags().StringVar(&flagTick, "tick", "", "Match loop tick interval, e.g. 50ms")
	serveCmd.Flags().BoolVar(&flagNoStorage, "no-storage", false, "Do not record matches")
	serveCmd.Flags().BoolVar(&flagSpectator, "spectator", false, "Enable the SSH spectator feed")
	serveCmd.Flags().StringVar(&flagSpectatorAddr, "ssh", "", "Spectator SSH address (overrides spectator.address)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Spectator host key file (auto-generated if not specified)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, src, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logger.Info("configuration loaded", "source", src)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder match.Recorder
	if cfg.Storage.Enabled {
		store, err := storage.Open(ctx, storage.Config{
			Driver: cfg.Storage.Driver,
			Path:   cfg.Storage.Path,
			DSN:    cfg.Storage.DSN,
		})
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
		logger.Info("match history enabled", "driver", store.Driver())
	} else {
		logger.Warn("match history disabled")
	}

	engCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	engine := match.NewEngine(engCfg, arena.DefaultLayout(), recorder, logger.With("component", "match"))

	var spectators *spectate.Server
	if cfg.Spectator.Enabled {
		feed := spectate.NewFeed()
		engine.AddObserver(feed)
		spectators, err = spectate.NewServer(spectate.Config{
			Address:     cfg.Spectator.Address,
			HostKeyPath: cfg.Spectator.HostKeyPath,
			IdleTimeout: cfg.Spectator.IdleTimeout,
		}, feed, logger.With("component", "spectate"))
		if err != nil {
			return err
		}
	}

	srv := server.New(server.Config{
		Address:      cfg.Server.Address,
		MaxFrame:     cfg.Server.MaxFrameBytes,
		SendBuffer:   cfg.Server.SendBuffer,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, engine, logger.With("component", "server"))

	// The engine outlives the listener so in-flight disconnects are processed.
	engineCtx, stopEngine := context.WithCancel(context.Background())
	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(engineCtx) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	if spectators != nil {
		g.Go(func() error { return spectators.ListenAndServe(gctx) })
	}

	fmt.Printf("Duel server listening on %s\n", cfg.Server.Address)
	if spectators != nil {
		fmt.Printf("Spectate with: ssh localhost -p %s\n", portOf(spectators.Addr()))
	}
	fmt.Println("Press Ctrl+C to stop")

	err = g.Wait()
	stopEngine()
	if engErr := <-engineDone; err == nil {
		err = engErr
	}
	logger.Info("shutdown complete")
	return err
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Address = flagAddr
	}
	if flags.Changed("authority") {
		cfg.Combat.Authority = flagAuthority
	}
	if flags.Changed("tick") {
		d, err := time.ParseDuration(flagTick)
		if err != nil {
			return fmt.Errorf("invalid --tick: %w", err)
		}
		cfg.Match.TickInterval = d
	}
	if flagNoStorage {
		cfg.Storage.Enabled = false
	}
	if flagSpectator {
		cfg.Spectator.Enabled = true
	}
	if flags.Changed("ssh") {
		cfg.Spectator.Address = flagSpectatorAddr
	}
	if flags.Changed("host-key") {
		cfg.Spectator.HostKeyPath = flagHostKey
	}
	return nil
}

func portOf(addr string) string {
	if _, port, err := net.SplitHostPort(addr); err == nil {
		return port
	}
	return addr
}
