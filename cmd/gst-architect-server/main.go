package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edirooss/gst-architect/internal/config"
	"github.com/edirooss/gst-architect/internal/http/handler"
	mw "github.com/edirooss/gst-architect/internal/http/middleware"
	"github.com/edirooss/gst-architect/internal/infrastructure/eventlog"
	"github.com/edirooss/gst-architect/internal/metrics"
	"github.com/edirooss/gst-architect/internal/repo"
	"github.com/edirooss/gst-architect/internal/service"
)

func init() {
	// Handle version display
	handleVersion()
}

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Create Zap logger
	log := buildLogger()
	defer log.Sync()
	log = log.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, log, cfg)
	if err != nil {
		log.Fatal("session store creation failed", zap.Error(err))
	}
	defer closeStore()

	sessionsvc := service.NewSessionService(log, store)
	if err := sessionsvc.Bootstrap(ctx); err != nil {
		log.Fatal("session bootstrap failed", zap.Error(err))
	}
	artifactsvc := service.NewArtifactService(log, sessionsvc, cfg.Generator)
	monitorsvc := service.NewMonitorService(log, sessionsvc, eventlog.NewManager())

	// Create Gin router
	if !cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer() // Configure Gin's logger to use Zap
	r := gin.New()

	// Apply Gin middlewares
	var checkOrigin func(*http.Request) bool
	{
		r.Use(gin.Recovery()) // Recovery first (outermost)
		r.Use(mw.RequestID()) // early in the chain so it's available everywhere

		if cfg.Dev { // Enable CORS for local Vite dev
			r.Use(cors.New(cors.Config{
				AllowOrigins:  cfg.AllowedOrigins,
				AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:  []string{"X-Request-ID", "Content-Type"},
				ExposeHeaders: []string{"X-Request-ID", "X-Total-Count", "X-Session-Revision", "Location", "Content-Disposition"},
				MaxAge:        12 * time.Hour,
			}))
			checkOrigin = func(req *http.Request) bool {
				return slices.Contains(cfg.AllowedOrigins, req.Header.Get("Origin"))
			}
		} else { // Behind Nginx + TLS
			r.SetTrustedProxies([]string{"127.0.0.1", cfg.Address})
			r.Use(secure.New(secure.Config{
				SSLProxyHeaders: map[string]string{
					"X-Forwarded-Proto": "https",
				},
			}))
		}

		r.Use(mw.AccessLog(log.Named("access")))
		r.Use(mw.MaxBodyBytes(10 << 20)) // hard 10MB max request body
	}

	// Register route handlers
	handler.Register(r, handler.Handlers{
		Sessions:  handler.NewSessionsHandler(log, sessionsvc, monitorsvc),
		Artifacts: handler.NewArtifactsHandler(log, artifactsvc, checkOrigin),
		Monitor:   handler.NewMonitorHandler(log, monitorsvc),
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(metrics.NewRegistry())))

	httpsrv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,  // kills header-drip Slowloris
		ReadTimeout:       10 * time.Second, // full request read (incl. body)
		WriteTimeout:      15 * time.Second, // avoid forever-hangs on writes
		IdleTimeout:       60 * time.Second, // keep-alive cap
		MaxHeaderBytes:    1 << 20,          // 1MB cap
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpsrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown", zap.Error(err))
		}
	}()

	log.Info("running HTTP server", zap.String("addr", httpsrv.Addr), zap.String("store", cfg.Store))
	if err := httpsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
	log.Info("server closed")
}

// handleVersion prints build metadata and exits when -v/--version is provided.
func handleVersion() {
	v := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(v, "version", false, "print version and exit")
	flag.Parse()

	if *v {
		fmt.Printf("gst-architect-server %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}
}

// buildStore opens the configured session store and returns its closer.
func buildStore(ctx context.Context, log *zap.Logger, cfg *config.Config) (repo.SessionStore, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := repo.NewPostgresSessionRepository(ctx, log, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = pg.Close(closeCtx)
		}, nil
	case config.StoreMemory:
		log.Warn("using the in-memory session store; sessions are lost on restart")
		return repo.NewMemorySessionStore(log), func() {}, nil
	default:
		rdb := repo.NewRedisClient(log, cfg.RedisAddr, cfg.RedisDB)
		if err := rdb.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return repo.NewSessionRepository(log, rdb), func() { _ = rdb.Close() }, nil
	}
}

// helpers

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.DebugLevel)
	return zap.Must(logConfig.Build())
}
