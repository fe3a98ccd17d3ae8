package main

import (
	"context"
	cryptorand "crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nikohealth/trustcore/internal/config"
	"github.com/nikohealth/trustcore/internal/domain/account"
	"github.com/nikohealth/trustcore/internal/domain/audit"
	"github.com/nikohealth/trustcore/internal/domain/ca"
	"github.com/nikohealth/trustcore/internal/domain/consent"
	"github.com/nikohealth/trustcore/internal/domain/emergency"
	"github.com/nikohealth/trustcore/internal/domain/grant"
	"github.com/nikohealth/trustcore/internal/domain/signing"
	"github.com/nikohealth/trustcore/internal/platform/auth"
	"github.com/nikohealth/trustcore/internal/platform/db"
	"github.com/nikohealth/trustcore/internal/platform/keywrap"
	"github.com/nikohealth/trustcore/internal/platform/middleware"
	"github.com/nikohealth/trustcore/internal/platform/pki"
)

// systemActorID is the identity audit entries carry when an operation is
// triggered from the CLI rather than an authenticated request.
var systemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func main() {
	rootCmd := &cobra.Command{
		Use:   "trustcore-server",
		Short: "Trust and consent access-control engine",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rootcaCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
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

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
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
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func rootcaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rootca",
		Short: "Manage the root certificate authority",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the root CA key pair and certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			wrapper, err := buildKeyWrapper(cfg, logger)
			if err != nil {
				return err
			}

			auditLogger := audit.NewLogger(audit.NewRepoPG(pool), logger)
			svc := ca.NewService(ca.NewKeyRepoPG(pool), ca.NewHospitalRepoPG(pool), wrapper, auditLogger, pki.CAIdentity{
				CommonName:   cfg.RootCAName,
				Organization: cfg.RootCAOrg,
				Country:      cfg.RootCACountry,
			}, logger)

			result, err := svc.InitializeRootCA(ctx, systemActorID)
			if err != nil {
				return err
			}
			if result.Created {
				fmt.Println("Root CA initialized.")
			} else {
				fmt.Println("Root CA already exists; nothing to do.")
			}
			fmt.Println(result.CertificatePEM)
			return nil
		},
	}
	cmd.AddCommand(initCmd)

	return cmd
}

func buildKeyWrapper(cfg *config.Config, logger zerolog.Logger) (*keywrap.Wrapper, error) {
	if cfg.KeyEncryptionKey == "" {
		// Development fallback. Validate() guarantees this branch is never
		// reached in production.
		key := make([]byte, 32)
		if _, err := cryptorand.Read(key); err != nil {
			return nil, fmt.Errorf("generate ephemeral key: %w", err)
		}
		logger.Warn().Msg("KEY_ENCRYPTION_KEY not set; using an ephemeral key, stored private keys will not survive a restart")
		return keywrap.New(key)
	}

	keyBytes, err := cfg.KeyEncryptionKeyBytes()
	if err != nil {
		return nil, err
	}
	return keywrap.New(keyBytes)
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	wrapper, err := buildKeyWrapper(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build key wrapper")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check
	e.GET("/healthz", db.HealthHandler(pool))

	// Services
	auditLogger := audit.NewLogger(audit.NewRepoPG(pool), logger)
	accountRepo := account.NewRepoPG(pool)
	grantStore := grant.NewStore(grant.NewRepoPG(pool))
	consentSvc := consent.NewService(consent.NewRepoPG(pool), grantStore, auditLogger, pool, logger)
	emergencySvc := emergency.NewService(accountRepo, grantStore, auditLogger, logger)
	hospitalRepo := ca.NewHospitalRepoPG(pool)
	caSvc := ca.NewService(ca.NewKeyRepoPG(pool), hospitalRepo, wrapper, auditLogger, pki.CAIdentity{
		CommonName:   cfg.RootCAName,
		Organization: cfg.RootCAOrg,
		Country:      cfg.RootCACountry,
	}, logger)
	signingSvc := signing.NewService(signing.NewRepoPG(pool), hospitalRepo, wrapper, auditLogger, logger)

	caHandler := ca.NewHandler(caSvc)
	signingHandler := signing.NewHandler(signingSvc)

	// Public routes: document verification and the trust anchor need no token.
	public := e.Group("/api/v1")
	caHandler.RegisterPublicRoutes(public)
	signingHandler.RegisterPublicRoutes(public)

	// Authenticated routes
	var authMW echo.MiddlewareFunc
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware()
	} else {
		authMW = auth.JWTMiddleware(auth.JWTConfig{Secret: []byte(cfg.JWTSecret)})
	}
	apiV1 := e.Group("/api/v1", authMW)

	caHandler.RegisterRoutes(apiV1)
	signingHandler.RegisterRoutes(apiV1)
	grant.NewHandler(grantStore).RegisterRoutes(apiV1)
	consent.NewHandler(consentSvc).RegisterRoutes(apiV1)
	emergency.NewHandler(emergencySvc).RegisterRoutes(apiV1)
	audit.NewHandler(auditLogger).RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
