// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/folioplayer/internal/api/connect"
	"github.com/osa030/folioplayer/internal/app/filter"
	"github.com/osa030/folioplayer/internal/app/session"
	"github.com/osa030/folioplayer/internal/app/source"
	"github.com/osa030/folioplayer/internal/infra/config"
	"github.com/osa030/folioplayer/internal/infra/logger"
	"github.com/osa030/folioplayer/internal/infra/lrccache"
	"github.com/osa030/folioplayer/internal/infra/lrclib"
	"github.com/osa030/folioplayer/internal/infra/spotify"
)

var (
	app        = kingpin.New("folioplayer-server", "folioplayer music player server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()
	jsonLog    = app.Flag("json-log", "Write logs as JSON").Bool()

	// check-config command
	checkConfigCmd = app.Command("check-config", "Validate the config file and resolve the playlist, then exit")

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available playlist filters and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-filters command
	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level: "info",
		File:  *logfile,
		JSON:  *jsonLog,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == checkConfigCmd.FullCommand() {
		if err := checkConfig(cfg); err != nil {
			zlog.Error().Msgf("Config check failed: %v", err)
			os.Exit(1)
		}
		return
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// components holds everything built from the config.
type components struct {
	chain  *source.Chain
	finder *source.LyricsFinder
	cache  *lrccache.Cache
}

func (c *components) Close() {
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			zlog.Warn().Msgf("Failed to close lyrics cache: %v", err)
		}
	}
}

// build creates the playlist sources and lyrics lookup from the config.
func build(ctx context.Context, cfg *config.Config) (*components, error) {
	c := &components{}

	// Spotify client (only when a spotify provider is configured)
	var spotifyClient source.SpotifyClient
	if cfg.HasProvider("spotify") {
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Spotify client")
		}
		spotifyClient = client
	}

	// Lyrics lookup
	if lcfg := cfg.Lyrics.LRCLib; lcfg.Enabled {
		client := lrclib.New(lrclib.Config{
			BaseURL:           lcfg.BaseURL,
			Timeout:           time.Duration(lcfg.TimeoutSec) * time.Second,
			RequestsPerSecond: lcfg.RequestsPerSecond,
			Burst:             lcfg.Burst,
		})

		var cache source.LyricsCache
		if lcfg.CachePath != "" {
			opened, err := lrccache.Open(lcfg.CachePath)
			if err != nil {
				zlog.Warn().Msgf("Lyrics cache unavailable, continuing without it: %v", err)
			} else {
				c.cache = opened
				cache = opened
			}
		}
		c.finder = source.NewLyricsFinder(client, cache)
		zlog.Info().Msgf("Lyrics lookup enabled: base_url=%s", lcfg.BaseURL)
	}

	chain, err := source.NewChainFromConfig(cfg, spotifyClient, c.finder)
	if err != nil {
		c.Close()
		return nil, errors.Wrap(err, "failed to create playlist sources")
	}
	c.chain = chain

	return c, nil
}

// checkConfig resolves the configured playlist once and reports the result.
func checkConfig(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	tracks, name, err := c.chain.Resolve(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to resolve playlist")
	}

	fmt.Printf("Config OK: playlist %q with %d tracks\n", name, len(tracks))
	for i, t := range tracks {
		lyrics := ""
		if t.HasLyrics() {
			lyrics = " [lrc]"
		}
		fmt.Printf("  %2d. %s - %s%s\n", i+1, t.Title, t.Artist, lyrics)
	}
	return nil
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	c, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	// Create session manager
	sessionMgr := session.NewManager(session.Config{
		RecoveryDelay: cfg.Playback.RecoveryDelay(),
		EventBuffer:   cfg.Playback.EventBuffer,
		CommandBuffer: cfg.Playback.CommandBuffer,
	}, c.chain, c.finder)

	// Create RPC services
	playerService := apiconnect.NewPlayerService(sessionMgr)
	adminService := apiconnect.NewAdminService(sessionMgr)

	// Create HTTP mux
	mux := http.NewServeMux()

	// Register services
	playerPath, playerHandler := apiconnect.NewPlayerServiceHandler(playerService)

	// Create admin auth interceptor
	adminAuthInterceptor := apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token)
	adminPath, adminHandler := apiconnect.NewAdminServiceHandler(
		adminService,
		connect.WithInterceptors(adminAuthInterceptor),
	)

	mux.Handle(playerPath, playerHandler)
	mux.Handle(adminPath, adminHandler)

	// Browser clients call the services directly
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Grpc-Status", "Grpc-Message", "Grpc-Status-Details-Bin"},
	}).Handler(mux)

	// Create server with h2c (HTTP/2 cleartext) support
	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(corsHandler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		sessionMgr.Shutdown()
		return errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close sessions first to terminate active streams
	sessionMgr.Shutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// printFilters prints available filters.
func printFilters() {
	registered := filter.GetRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Filters:")
	for _, name := range names {
		f := registered[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-20s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
