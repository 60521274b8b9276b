package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vaxreport/vaxreport/internal/config"
	"github.com/vaxreport/vaxreport/internal/domain/report"
	"github.com/vaxreport/vaxreport/internal/domain/vaccination"
	"github.com/vaxreport/vaxreport/internal/platform/auth"
	"github.com/vaxreport/vaxreport/internal/platform/cache"
	"github.com/vaxreport/vaxreport/internal/platform/db"
	"github.com/vaxreport/vaxreport/internal/platform/middleware"
	"github.com/vaxreport/vaxreport/internal/platform/upstream"
	"github.com/vaxreport/vaxreport/migrations"
)

const cachePrefix = "vaxreport"

func main() {
	rootCmd := &cobra.Command{
		Use:          "vaxreport-server",
		Short:        "Vaccination schedule and report API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if !cfg.ArchiveEnabled() {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the report archive",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

// app holds the wired services shared by the server and the CLI.
type app struct {
	vaccinations *vaccination.Service
	reports      *report.Service
	pool         *pgxpool.Pool
	closers      []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newCacheStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Store, func(), error) {
	if cfg.CacheTTL <= 0 {
		return nil, func() {}, nil
	}
	if cfg.RedisURL != "" {
		store, err := cache.NewRedisStore(ctx, &cache.RedisOptions{
			URL:        cfg.RedisURL,
			Prefix:     cachePrefix,
			DefaultTTL: cfg.CacheTTL,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("using redis cache for upstream responses")
		return store, func() { _ = store.Close() }, nil
	}
	store, err := cache.NewMemoryStore(cachePrefix, cfg.CacheTTL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}

func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}

	store, closeStore, err := newCacheStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	a.closers = append(a.closers, closeStore)

	client, err := upstream.New(upstream.Options{
		BaseURL:     cfg.UpstreamBaseURL,
		Timeout:     cfg.UpstreamTimeout,
		Cache:       store,
		CacheTTL:    cfg.CacheTTL,
		BatchStatus: cfg.UpstreamBatchStatus,
		Logger:      logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("upstream client: %w", err)
	}

	archive := report.NewMemoryArchive()
	if cfg.ArchiveEnabled() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("database: %w", err)
		}
		a.pool = pool
		a.closers = append(a.closers, pool.Close)
		archive = report.NewArchiveRepoPG(pool)
		logger.Info().Msg("connected to database")
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		a.Close()
		return nil, err
	}

	var converter report.Converter
	if cfg.PDFConverterURL != "" {
		conv, err := report.NewGotenbergConverter(cfg.PDFConverterURL, cfg.ReportTempDir, cfg.RequestTimeout)
		if err != nil {
			a.Close()
			return nil, err
		}
		converter = conv
	}

	a.vaccinations = vaccination.NewService(client, logger)
	a.reports = report.NewService(report.Options{
		Upstream:     client,
		Renderer:     renderer,
		Converter:    converter,
		Files:        report.OSFileStore{},
		Archive:      archive,
		Brand:        cfg.ReportBrand,
		Website:      cfg.ReportWebsite,
		DownloadDir:  cfg.ReportDownloadDir,
		EnrichStatus: cfg.ReportEnrichStatus,
		Logger:       logger,
	})
	return a, nil
}

func healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func newServer(cfg *config.Config, logger zerolog.Logger, a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(middleware.TimeoutConfig{
			Timeout: cfg.RequestTimeout,
			Skip:    []string{"/health"},
			Logger:  logger,
		}))
	}

	e.GET("/health", healthHandler)
	e.GET("/health/db", db.HealthHandler(a.pool, logger))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}
	// Rate limiting keys on the authenticated user, so it runs after auth.
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(auth.RequireBabyAccess())

	vaccination.NewHandler(a.vaccinations).RegisterRoutes(apiV1)
	report.NewHandler(a.reports).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise services")
	}
	defer a.Close()

	e := newServer(cfg, logger, a)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

type reportFlags struct {
	babyID    string
	ageGroups []string
	statuses  []string
	token     string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.babyID, "baby", "", "Baby ID")
	cmd.Flags().StringSliceVar(&f.ageGroups, "age-group", []string{vaccination.AllOption}, "Age groups to include (repeatable)")
	cmd.Flags().StringSliceVar(&f.statuses, "status", []string{vaccination.AllOption}, "Statuses to include (repeatable)")
	cmd.Flags().StringVar(&f.token, "token", os.Getenv("UPSTREAM_TOKEN"), "Bearer token for the babies API")
	_ = cmd.MarkFlagRequired("baby")
}

func (f *reportFlags) selection() report.Selection {
	sel := report.Selection{AgeGroups: f.ageGroups}
	for _, s := range f.statuses {
		sel.Statuses = append(sel.Statuses, vaccination.Status(s))
	}
	return sel
}

// withApp loads config, wires the services and runs fn with the token on
// the context.
func withApp(cmd *cobra.Command, token string, fn func(ctx context.Context, a *app) error) error {
	logger := newLogger().Level(zerolog.WarnLevel)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := auth.WithToken(cmd.Context(), token)
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate vaccination reports from the command line",
	}

	var gen reportFlags
	var format, out string
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a report as HTML or PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, gen.token, func(ctx context.Context, a *app) error {
				return generateReport(ctx, a.reports, gen.babyID, gen.selection(), format, out)
			})
		},
	}
	gen.register(generateCmd)
	generateCmd.Flags().StringVar(&format, "format", "html", "Output format: html or pdf")
	generateCmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to report.<format>)")
	cmd.AddCommand(generateCmd)

	var dl reportFlags
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Save a PDF report into the downloads directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, dl.token, func(ctx context.Context, a *app) error {
				outcome, err := a.reports.Download(ctx, dl.babyID, dl.selection())
				if err != nil {
					return err
				}
				fmt.Printf("%s %s\n%s\n", outcome.Title, outcome.Message, outcome.Path)
				return nil
			})
		},
	}
	dl.register(downloadCmd)
	cmd.AddCommand(downloadCmd)

	return cmd
}

func generateReport(ctx context.Context, svc *report.Service, babyID string, sel report.Selection, format, out string) error {
	if out == "" {
		out = "report." + format
	}
	switch format {
	case "html":
		markup, _, err := svc.Preview(ctx, babyID, sel)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, []byte(markup), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
	case "pdf":
		path, cleanup, err := svc.Share(ctx, babyID, sel)
		if err != nil {
			return err
		}
		defer cleanup()
		abs, err := filepath.Abs(out)
		if err != nil {
			return err
		}
		if err := (report.OSFileStore{}).Move(path, abs); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
	default:
		return fmt.Errorf("unknown format %q (want html or pdf)", format)
	}
	fmt.Printf("Report written to %s\n", out)
	return nil
}
