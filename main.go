// Command speccam starts the spectator-cam relay server.
//
// The relay sits between a game engine's telemetry WebSocket feed and
// any number of spectator/broadcast clients. It supports two modes:
//  1. "serve" (default) – runs the relay: WebSocket endpoint, operator
//     REST API, and broadcast fan-out
//  2. "mcp" – runs an MCP stdio server proxying an already-running
//     relay's REST API
//
// Flags control host/port, an optional YAML config file, debug logging,
// and optional ngrok tunneling so remote operators can reach the API.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/speccam/speccam/api"
	"github.com/speccam/speccam/config"
	"github.com/speccam/speccam/relay"
	"github.com/speccam/speccam/transport/mcp"
	"github.com/speccam/speccam/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Spectator Cam Relay"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	cmd := &cli.Command{
		Name:    "speccam",
		Usage:   "relay live match telemetry into spectator camera directives",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   config.DefaultHost,
				Usage:   "listen host",
				Sources: cli.EnvVars("SPECCAM_HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   config.DefaultPort,
				Usage:   "listen port",
				Sources: cli.EnvVars("SPECCAM_PORT"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a YAML config file",
				Sources: cli.EnvVars("SPECCAM_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the relay through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:  "mcp",
				Usage: "run an MCP stdio server against a running relay",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   fmt.Sprintf("http://%s:%d", config.DefaultHost, config.DefaultPort),
						Usage:   "base URL of the relay's REST API",
						Sources: cli.EnvVars("SPECCAM_API_URL"),
					},
				},
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig builds the effective configuration from defaults, the
// optional YAML file, and command-line overrides, in that order.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()

	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// runServe starts the relay: hub, coordinator, REST API, and HTTP
// server, with graceful shutdown and an optional ngrok tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Printf("Starting %s v%s", AppName, Version)

	hub := websocket.NewHub(websocket.Options{
		WriteWait:      time.Duration(cfg.WriteWait),
		PongWait:       time.Duration(cfg.PongWait),
		PingInterval:   time.Duration(cfg.PingInterval),
		MaxMessageSize: cfg.MaxMessageSize,
	})
	coordinator := relay.New(hub, cfg.MatchCutoff)
	hub.OnMessage(coordinator.HandleMessage)
	go hub.Run()

	apiServer := api.NewServer(coordinator, hub)

	addr := cfg.Addr()
	// No read/write timeouts: the engine holds its connection open for
	// the whole match without traffic.
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     apiServer,
		IdleTimeout: 60 * time.Second,
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Relay listening on %s", addr)
		log.Printf("Telemetry/control socket: ws://%s/ws", addr)
		log.Printf("Operator API: http://%s/api", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if cmd.Bool("ngrok") {
		go startNgrokTunnel(serveCtx, cmd, apiServer)
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Relay stopped")
	return nil
}

// startNgrokTunnel exposes the relay through ngrok so remote operators
// can reach the API and socket during a broadcast.
func startNgrokTunnel(ctx context.Context, cmd *cli.Command, handler http.Handler) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		log.Println("WARNING: ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	log.Printf("Ngrok tunnel established: %s", tun.URL())
	log.Printf("  Operator API (ngrok): %s/api", tun.URL())
	log.Printf("  Socket (ngrok): %s/ws", tun.URL())

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// runMCP serves the MCP stdio interface against a running relay.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("api-url")
	mcpClient := mcp.NewClient(baseURL)

	log.Printf("MCP stdio server ready (relay API at %s)", baseURL)

	if err := mcpserver.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
