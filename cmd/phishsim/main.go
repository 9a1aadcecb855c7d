package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/phishsim/internal/config"
	"github.com/xxxsen/phishsim/internal/db"
	"github.com/xxxsen/phishsim/internal/filestore"
	"github.com/xxxsen/phishsim/internal/handler"
	"github.com/xxxsen/phishsim/internal/job"
	mailer "github.com/xxxsen/phishsim/internal/mail"
	"github.com/xxxsen/phishsim/internal/middleware"
	"github.com/xxxsen/phishsim/internal/pkg/jwt"
	"github.com/xxxsen/phishsim/internal/repo"
	"github.com/xxxsen/phishsim/internal/schedule"
	"github.com/xxxsen/phishsim/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "phishsim",
		Short: "phishing simulation campaign server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (optional, env overrides apply)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()
			return runServer(cfg, conn)
		},
	}

	var once bool
	pollCmd := &cobra.Command{
		Use:   "poll",
		Short: "run the campaign delivery poller only",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()
			if once {
				report, err := buildCampaignService(cfg, conn).DeliverDue(cmd.Context())
				if err != nil {
					return err
				}
				logutil.GetLogger(cmd.Context()).Info("delivery finished", zap.Int("sent", report.Sent), zap.Int("failed", report.Failed))
				return nil
			}
			return runPoller(cfg, conn)
		},
	}
	pollCmd.Flags().BoolVar(&once, "once", false, "deliver due campaigns once and exit")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			return conn.Close()
		},
	}

	rootCmd.AddCommand(runCmd, pollCmd, migrateCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func bootstrap(ctx context.Context, configPath string) (*config.Config, *sql.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(ctx).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

func buildCampaignService(cfg *config.Config, conn *sql.DB) *service.CampaignService {
	archive, err := filestore.New(cfg.Archive)
	if err != nil {
		logutil.GetLogger(context.Background()).Error("init archive store failed, archiving disabled", zap.Error(err))
		archive = nil
	}
	return service.NewCampaignService(
		repo.NewScheduledCampaignRepo(conn),
		service.NewAccessService(repo.NewUserRepo(conn)),
		mailer.NewSMTPSender(cfg.Mail),
		cfg.PublicBaseURL,
		cfg.Mail.Subject,
		service.WithArchive(archive),
		service.WithActionLog(repo.NewActionLogRepo(conn)),
	)
}

func buildLimiter(cfg config.RateLimitConfig) middleware.Limiter {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if cfg.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return middleware.NewRedisLimiter(client, cfg.Requests, window)
	}
	return middleware.NewMemoryLimiter(cfg.Requests, window)
}

func startPoller(ctx context.Context, cfg *config.Config, campaigns *service.CampaignService) (*schedule.CronScheduler, error) {
	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewCampaignDeliveryJob(campaigns), cfg.Poller.Spec); err != nil {
		return nil, fmt.Errorf("schedule delivery job: %w", err)
	}
	scheduler.Start(ctx)
	return scheduler, nil
}

func runPoller(cfg *config.Config, conn *sql.DB) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := startPoller(ctx, cfg, buildCampaignService(cfg, conn))
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("delivery poller started", zap.String("spec", cfg.Poller.Spec))
	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("poller stopping...")
	scheduler.Stop()
	return nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("public_base_url", cfg.PublicBaseURL),
		zap.String("archive", cfg.Archive.Type),
		zap.String("rate_limit", cfg.RateLimit.Backend),
		zap.Bool("embedded_poller", cfg.Poller.EmbeddedPoller()),
	)

	userRepo := repo.NewUserRepo(conn)
	submissionRepo := repo.NewSubmissionRepo(conn)
	eventRepo := repo.NewEventRepo(conn)
	actionLogRepo := repo.NewActionLogRepo(conn)

	issuer := jwt.NewIssuer(
		[]byte(cfg.JWT.Secret),
		[]byte(cfg.JWT.RefreshSecret),
		jwt.WithTTL(time.Duration(cfg.JWT.AccessTTLMinutes)*time.Minute, time.Duration(cfg.JWT.RefreshTTLHours)*time.Hour),
	)
	mailSender := mailer.NewSMTPSender(cfg.Mail)
	gate := service.NewAccessService(userRepo)
	authService := service.NewAuthService(userRepo, mailSender, issuer, cfg.PublicBaseURL, time.Duration(cfg.JWT.VerifyTTLHours)*time.Hour)
	campaignService := buildCampaignService(cfg, conn)
	recorder := service.NewSubmissionService(submissionRepo)
	eventService := service.NewEventService(eventRepo, submissionRepo, actionLogRepo, gate)

	deps := handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authService, service.NewUserService(userRepo)),
		Campaigns:   handler.NewCampaignHandler(campaignService, recorder, gate),
		Submissions: handler.NewSubmissionHandler(recorder),
		Events:      handler.NewEventHandler(eventService),
		Admin:       handler.NewAdminHandler(service.NewAdminService(userRepo)),
		Verifier:    issuer,
		Gate:        gate,
		Limiter:     buildLimiter(cfg.RateLimit),
		RateWindow:  time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Poller.EmbeddedPoller() {
		scheduler, err := startPoller(ctx, cfg, campaignService)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
