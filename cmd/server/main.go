package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/npuzant/peerchat/internal/api"
	"github.com/npuzant/peerchat/internal/config"
	"github.com/npuzant/peerchat/internal/server"
	"github.com/npuzant/peerchat/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	retention      time.Duration
	sweepInterval  time.Duration
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.DurationVar(&retention, "retention", config.DefaultRetention, "how long room messages are retained")
	flag.DurationVar(&sweepInterval, "sweep-interval", config.DefaultSweepInterval, "how often idle rooms are pruned")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[peerchat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, allowedOrigins, retention, sweepInterval)
	if err != nil {
		logger.Fatal("config:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	coord, err := server.NewCoordinator(logger, statsUpdater, cfg.Retention, cfg.SweepInterval)
	if err != nil {
		logger.Fatal("new coordinator:", err)
	}

	srv := api.NewPeerChatApp(mux, logger, coord, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go coord.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down coordinator...")
	if err := coord.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("coordinator shutdown:", err)
	}

	logger.Println("shutdown complete")
}
