package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sgpti/sgpti-api/internal/config"
	"github.com/sgpti/sgpti-api/internal/database"
	"github.com/sgpti/sgpti-api/internal/handler"
	"github.com/sgpti/sgpti-api/internal/middleware"
	"github.com/sgpti/sgpti-api/internal/notification"
	"github.com/sgpti/sgpti-api/internal/repository"
	"github.com/sgpti/sgpti-api/internal/router"
	"github.com/sgpti/sgpti-api/internal/service"
	"github.com/sgpti/sgpti-api/internal/utils"
	"github.com/sgpti/sgpti-api/internal/workflow"
	"github.com/sgpti/sgpti-api/pkg/mailer"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "sgpti-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	catalog := notification.DefaultCatalog()
	if err := database.Migrate(rootCtx, db, catalog); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(rootCtx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	var sender mailer.Mailer = mailer.NewLogMailer(logger)
	if cfg.SMTPEnabled() {
		smtpMailer, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:          cfg.SMTPHost,
			Port:          cfg.SMTPPort,
			Username:      cfg.SMTPUser,
			Password:      cfg.SMTPPassword,
			From:          cfg.SMTPFrom,
			SkipTLSVerify: cfg.SMTPSkipTLSVerify,
			Timeout:       cfg.SMTPTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure smtp mailer")
		}
		sender = smtpMailer
	} else {
		logger.Warn().Msg("smtp not configured, notification emails are only logged")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	reviewerRepo := repository.NewReviewerRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	outbox, err := service.NewEmailOutbox(service.EmailOutboxConfig{
		Mode:        cfg.EmailQueue,
		Workers:     cfg.EmailWorkers,
		BufferSize:  cfg.EmailBufferSize,
		SendTimeout: cfg.EmailSendTimeout,
	}, sender, notificationRepo, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure email outbox")
	}
	outbox.Start(rootCtx)

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Notifications: notificationRepo,
		Users:         userRepo,
		Projects:      projectRepo,
		Reviewers:     reviewerRepo,
		Catalog:       catalog,
		Outbox:        outbox,
		Redis:         redisClient,
		NATS:          natsConn,
		ChannelBase:   cfg.ChannelBase,
		BaseURL:       cfg.AppBaseURL,
		Logger:        logger,
	})
	notificationService.Start(rootCtx)
	go notificationService.RunHousekeeping(rootCtx, cfg.HousekeepingInterval, cfg.NotificationRetention)

	engine := service.NewStatusEngine(projectRepo, workflow.Stamps(), logger)
	manager := service.NewReviewerManager(reviewerRepo, userRepo, logger)
	projectService := service.NewProjectService(projectRepo, reviewerRepo, userRepo, manager, engine, workflow.NewPolicy(cfg.StrictTransitions), notificationService, validate, logger)
	commentService := service.NewCommentService(commentRepo, documentRepo, projectRepo, reviewerRepo, notificationService, validate, logger)
	documentService := service.NewDocumentService(documentRepo, projectRepo, reviewerRepo, notificationService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return utils.SendError(c, fiberErr.Code, fiberErr.Message)
			}
			reqLogger := middleware.RequestLogger(logger, c)
			reqLogger.Error().Err(err).Msg("unhandled request error")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		},
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		ProjectHandler:      handler.NewProjectHandler(projectService, logger),
		CommentHandler:      handler.NewCommentHandler(commentService, logger, middleware.RateLimit("comments", 30, time.Minute)),
		DocumentHandler:     handler.NewDocumentHandler(documentService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.StreamKeepAlive).StopStreamsOn(rootCtx),
		HealthChecks:        healthChecks(db, redisClient, natsConn),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("email_queue", outbox.Mode()).Msg("starting server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Error().Err(err).Msg("server stopped listening")
			stop()
		}
	}()

	<-rootCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
	}
	outbox.Close()

	logger.Info().Msg("server stopped")
}
