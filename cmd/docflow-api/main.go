package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/unicef/etools-docflow/api/swagger"
	"github.com/unicef/etools-docflow/internal/handler"
	"github.com/unicef/etools-docflow/internal/middleware"
	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	"github.com/unicef/etools-docflow/internal/service"
	"github.com/unicef/etools-docflow/pkg/cache"
	"github.com/unicef/etools-docflow/pkg/config"
	"github.com/unicef/etools-docflow/pkg/database"
	"github.com/unicef/etools-docflow/pkg/logger"
	corsmiddleware "github.com/unicef/etools-docflow/pkg/middleware/cors"
	reqidmiddleware "github.com/unicef/etools-docflow/pkg/middleware/requestid"
	"github.com/unicef/etools-docflow/pkg/storage"
)

// @title eTools Document Flow API
// @version 1.0.0
// @description Document lifecycle engine: permissions, transitions, change journal and financial rollups
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, notification dedupe disabled", "error", err)
		redisClient = nil
	}

	blobs, err := storage.NewBlobStore(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob store", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	// Repositories.
	documentRepo := repository.NewDocumentRepository(db)
	childRepo := repository.NewChildRowRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	timeframeRepo := repository.NewTimeFrameRepository(db)
	journalRepo := repository.NewJournalRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	resultRepo := repository.NewResultRepository(db)

	// Services.
	authSvc := service.NewAuthService(cfg.JWT)
	metricsSvc := service.NewMetricsService()
	roleSvc := service.NewRoleService()
	permSvc := service.NewPermissionService()
	rollupSvc := service.NewRollupService()

	journalCaps := make(map[models.Kind]int, len(cfg.Journal.MaxEntriesPerKind))
	for kind, limit := range cfg.Journal.MaxEntriesPerKind {
		journalCaps[models.Kind(kind)] = limit
	}
	journalSvc := service.NewJournalService(journalRepo, documentRepo, childRepo, journalCaps,
		service.WithJournalLogger(logr))

	notificationSvc := service.NewNotificationService(redisClient, cfg.Notifications,
		service.WithNotificationLogger(logr))
	hactSvc := service.NewHACTService(partnerRepo, documentRepo, cfg.HACT,
		service.WithHACTLogger(logr))

	transitionSvc := service.NewTransitionService(
		documentRepo, childRepo, reservationRepo, attachmentRepo, participantRepo,
		roleSvc, permSvc, rollupSvc, journalSvc, cfg.Engine,
		service.WithTransitionLogger(logr),
		service.WithNotifier(notificationSvc),
		service.WithHACTRecounter(hactSvc),
	)
	documentSvc := service.NewDocumentService(
		documentRepo, childRepo, sequenceRepo, participantRepo, reservationRepo,
		timeframeRepo, roleSvc, permSvc, rollupSvc, journalSvc, transitionSvc,
		service.WithDocumentLogger(logr),
	)
	amendmentSvc := service.NewAmendmentService(documentRepo, childRepo, roleSvc, journalSvc,
		service.WithAmendmentLogger(logr))
	reservationSvc := service.NewReservationService(documentRepo, reservationRepo, childRepo, rollupSvc, journalSvc,
		service.WithReservationLogger(logr))
	visionSvc := service.NewVisionService(documentRepo, reservationRepo, resultRepo, journalSvc, cfg.Vision,
		service.WithVisionLogger(logr))
	attachmentSvc := service.NewAttachmentService(documentRepo, attachmentRepo, blobs, signer,
		service.WithAttachmentLogger(logr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hactSvc.Start(ctx)
	defer hactSvc.Stop()

	// Handlers.
	handlers := handler.Handlers{
		Documents:    handler.NewDocumentHandler(documentSvc),
		Transitions:  handler.NewTransitionHandler(transitionSvc, metricsSvc),
		History:      handler.NewHistoryHandler(journalSvc, roleSvc),
		Reservations: handler.NewReservationHandler(reservationSvc),
		Amendments:   handler.NewAmendmentHandler(amendmentSvc),
		Attachments:  handler.NewAttachmentHandler(attachmentSvc),
		Vision:       handler.NewVisionHandler(visionSvc),
		Metrics:      handler.NewMetricsHandler(metricsSvc),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterPublicRoutes(r, handlers)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	handler.RegisterRoutes(api, handlers)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Sugar().Infow("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
