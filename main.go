// Command rbr-sync starts the realtime synchronization server for
// battle-royale events: the websocket room transport, the liveness monitor,
// and the REST persistence collaborator the clients mutate through.
//
// Flags control the listen address, liveness probe timing, and session
// resolution timeout. Development session tokens can be seeded from the
// SESSION_TOKENS environment variable (or a .env file) as a comma-separated
// list of token:userID:username triples.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/ESCveloc/RBR-sub000/api"
	"github.com/ESCveloc/RBR-sub000/auth"
	"github.com/ESCveloc/RBR-sub000/game"
	transport "github.com/ESCveloc/RBR-sub000/transport/websocket"
)

const (
	Version = "1.0.0"
	AppName = "rbr-sync"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: error loading .env file: %v", err)
		}
	}

	cmd := &cli.Command{
		Name:    AppName,
		Usage:   "realtime sync server for battle-royale events",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: ":8080",
				Usage: "HTTP listen address",
			},
			&cli.DurationFlag{
				Name:  "probe-interval",
				Value: 30 * time.Second,
				Usage: "liveness probe interval",
			},
			&cli.DurationFlag{
				Name:  "probe-grace",
				Value: 10 * time.Second,
				Usage: "grace period for a probe response",
			},
			&cli.DurationFlag{
				Name:  "session-timeout",
				Value: 3 * time.Second,
				Usage: "timeout for session token resolution",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// run wires the services and blocks until shutdown.
func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	log.Printf("Starting %s v%s", AppName, Version)

	sessions := auth.NewMemoryStore()
	if err := seedSessions(sessions, os.Getenv("SESSION_TOKENS")); err != nil {
		return fmt.Errorf("seed sessions: %w", err)
	}
	resolver := auth.NewResolver(sessions, cmd.Duration("session-timeout"))

	registry := transport.NewRegistry()
	monitor := transport.NewMonitor(registry, cmd.Duration("probe-interval"), cmd.Duration("probe-grace"))
	go monitor.Run()
	defer monitor.Stop()

	store := game.NewStore()
	apiServer := api.NewServer(store, registry)
	wsHandler := transport.NewHandler(registry, monitor, resolver)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", apiServer)
	mainRouter.Handle("/ws", wsHandler)

	addr := cmd.String("addr")
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

// seedSessions loads fixed development tokens from a comma-separated list
// of token:userID:username triples.
func seedSessions(store *auth.MemoryStore, spec string) error {
	if spec == "" {
		return nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 {
			return fmt.Errorf("malformed session entry %q", entry)
		}

		userID, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("malformed user id in session entry %q", entry)
		}

		if err := store.Put(parts[0], auth.Identity{UserID: userID, Username: parts[2]}); err != nil {
			return err
		}
	}

	log.Printf("Seeded %d development sessions", store.Len())
	return nil
}
