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

	_ "github.com/lib/pq"
	"github.com/mpruett/studiohub/internal/api"
	"github.com/mpruett/studiohub/internal/config"
	"github.com/mpruett/studiohub/internal/database"
	"github.com/mpruett/studiohub/internal/server"
	"github.com/mpruett/studiohub/internal/stats"
)

// Development default, matches the token issuer's dev secret.
const defaultSigningKey = "ZGV2X3NlY3JldA=="

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
	signingKey     string
	membershipDSN  string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.StringVar(&membershipDSN, "membership-dsn", "", "connection string for the studio membership database (empty disables join authorization)")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[studiohub] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, signingKey, allowedOrigins, membershipDSN)
	if err != nil {
		logger.Fatal("config:", err)
	}

	var authorizer server.Authorizer = server.AllowAll{}
	if cfg.MembershipDSN != "" {
		store, err := database.NewPgMembershipStore(cfg.MembershipDSN)
		if err != nil {
			logger.Fatal("membership db open:", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Fatal("membership db close:", err)
			}
		}()

		authorizer = server.NewMembershipAuthorizer(store)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	registry := server.NewPresenceRegistry()
	studioServer, err := server.NewStudioServer(logger, registry, authorizer, statsUpdater)
	if err != nil {
		logger.Fatal("new studio server:", err)
	}

	app := api.NewStudioApp(mux, logger, studioServer, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go studioServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
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

	if err := app.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down studio server...")
	if err := studioServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("studio server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
