package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/proofchain/internal/config"
	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/domain/project"
	"github.com/rpggio/proofchain/internal/domain/stats"
	"github.com/rpggio/proofchain/internal/mcp"
	"github.com/rpggio/proofchain/internal/memstore"
	"github.com/rpggio/proofchain/internal/platform/otel"
	"github.com/rpggio/proofchain/internal/queue"
	"github.com/rpggio/proofchain/internal/sqlite"
	"github.com/rpggio/proofchain/internal/transport"
)

var version = "dev"

func main() {
	createKeyFor := flag.String("create-api-key", "", "provision an API key for this identity, print it and exit")
	keyDescription := flag.String("key-description", "", "description stored with -create-api-key")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.ModeStdio {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx := context.Background()

	shutdownTracing, err := otel.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	st, err := openStore(cfg.DB, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer st.close()

	if *createKeyFor != "" {
		if err := createAPIKey(ctx, st, *createKeyFor, *keyDescription); err != nil {
			logger.Error("failed to create api key", "error", err)
			os.Exit(1)
		}
		return
	}

	var publisher event.Publisher
	if cfg.Events.AMQPURL != "" {
		client, err := queue.NewRabbitClient(cfg.Events.AMQPURL, cfg.Events.Queue)
		if err != nil {
			logger.Error("failed to connect to event queue", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("publishing ledger events", "queue", cfg.Events.Queue)
	}

	ledgerSvc := project.NewService(st.ledger, publisher, logger)
	statsSvc := stats.NewService(ledgerSvc)
	eventSvc := event.NewService(st.events, logger)
	handler := mcp.NewHandler(ledgerSvc, statsSvc, eventSvc)

	resolver, err := newResolver(cfg.Auth, st)
	if err != nil {
		logger.Error("failed to configure auth", "mode", cfg.Auth.Mode, "error", err)
		os.Exit(1)
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Handler:       handler,
		Resolver:      resolver,
		AuthEnabled:   resolver != nil,
		DefaultCaller: cfg.Auth.DefaultCaller,
		Version:       version,
		Logger:        logger,
	})

	if cfg.Transport.Mode == config.ModeStdio {
		runStdioMode(logger, mcpServer, cfg.Auth.DefaultCaller)
		return
	}

	authMiddleware := transport.NoAuthMiddleware(cfg.Auth.DefaultCaller)
	if resolver != nil {
		authMiddleware = transport.AuthMiddleware(resolver)
	}
	runHTTPMode(logger, handler, authMiddleware, mcpServer, cfg.Server.Host, cfg.Server.Port)
}

// store bundles the repositories behind the configured driver.
type store struct {
	ledger project.Repository
	events event.Repository
	keys   *sqlite.APIKeyRepository
	close  func()
}

func openStore(cfg config.DBConfig, logger *slog.Logger) (*store, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using the in-memory store; the ledger is lost on exit")
		mem := memstore.New()
		return &store{ledger: mem, events: mem.Events(), close: func() {}}, nil
	}

	if err := ensureDBDir(cfg.Path); err != nil {
		return nil, fmt.Errorf("preparing database path: %w", err)
	}
	db, err := sqlite.New(cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &store{
		ledger: sqlite.NewLedgerRepository(db),
		events: sqlite.NewEventRepository(db),
		keys:   sqlite.NewAPIKeyRepository(db),
		close:  func() { _ = db.Close() },
	}, nil
}

// newResolver returns nil when every request is attributed to the default caller.
func newResolver(cfg config.AuthConfig, st *store) (transport.CallerResolver, error) {
	switch cfg.Mode {
	case config.AuthAPIKey:
		if st.keys == nil {
			return nil, errors.New("apikey auth requires the sqlite driver")
		}
		return transport.NewAPIKeyResolver(st.keys), nil
	case config.AuthJWT:
		resolver, err := transport.NewJWTResolver(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTPublicKey)
		if err != nil {
			return nil, err
		}
		return resolver, nil
	default:
		return nil, nil
	}
}

func createAPIKey(ctx context.Context, st *store, identity, description string) error {
	identity = strings.TrimSpace(identity)
	if st.keys == nil {
		return errors.New("api keys require the sqlite driver")
	}
	token := "pc_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := st.keys.Create(ctx, transport.HashToken(token), identity, description); err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server, caller string) {
	logger.Info("starting stdio transport", "caller", caller)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func runHTTPMode(logger *slog.Logger, handler transport.Handler, authMiddleware func(http.Handler) http.Handler, mcpServer *sdkmcp.Server, host string, port int) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	// JSON-RPC on /rpc, health on /health, MCP on /mcp.
	router := transport.NewServer(handler, authMiddleware)
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/*", mcpHandler)

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
