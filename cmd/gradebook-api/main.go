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
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-gradebook/internal/handler"
	"github.com/noah-isme/canvas-gradebook/internal/middleware"
	"github.com/noah-isme/canvas-gradebook/internal/repository"
	"github.com/noah-isme/canvas-gradebook/internal/service"
	"github.com/noah-isme/canvas-gradebook/pkg/canvas"
	"github.com/noah-isme/canvas-gradebook/pkg/config"
	"github.com/noah-isme/canvas-gradebook/pkg/jobs"
	"github.com/noah-isme/canvas-gradebook/pkg/logger"
	corsmiddleware "github.com/noah-isme/canvas-gradebook/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/canvas-gradebook/pkg/middleware/requestid"
	"github.com/noah-isme/canvas-gradebook/pkg/storage"
)

// @title Canvas Gradebook API
// @version 0.1.0
// @description Fetches Canvas course structure and produces per-student grade sheets with drop rules applied.
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	store, err := repository.OpenStructureStore(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open structure store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	client := canvas.NewClient(canvas.Options{
		BaseURL:  cfg.Canvas.BaseURL,
		PerPage:  cfg.Canvas.PerPage,
		Timeout:  cfg.Canvas.Timeout,
		Observer: metrics,
		Logger:   logr,
	})

	structures := service.NewStructureService(store, metrics, logr)
	courses := service.NewCourseService(client, structures, cfg.Canvas.AttendanceAssignment, validate, logr)
	grades := service.NewGradeService(client, structures, metrics, cfg.Grading.NotYetGraded, validate, logr)
	exporter := service.NewExportService(grades, service.SheetMarkers{
		Drop: cfg.Grading.DropMarker,
		Omit: cfg.Grading.OmitMarker,
	}, logr, nil, nil)

	exportHandler := handler.NewExportHandler(nil, grades, cfg.APIPrefix)
	if cfg.Exports.Enabled {
		reports, queue, err := startExports(ctx, cfg, courses, exporter, logr)
		if err != nil {
			logr.Fatal("failed to start export worker", zap.Error(err))
		}
		defer queue.Stop()
		exportHandler = handler.NewExportHandler(reports, grades, cfg.APIPrefix)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.Register(r, cfg.APIPrefix, handler.Handlers{
		Courses: handler.NewCourseHandler(courses),
		Grades:  handler.NewGradeHandler(grades, exporter),
		Exports: exportHandler,
		Metrics: handler.NewMetricsHandler(metrics, store.Backend()),
	}, middleware.CanvasToken(cfg.Canvas.Token))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", store.Backend()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func startExports(ctx context.Context, cfg *config.Config, courses *service.CourseService, exporter *service.ExportService, logr *zap.Logger) (*service.ReportService, *jobs.Queue, error) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	reports := service.NewReportService(courses, exporter, files, nil, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Exports.ResultTTL,
		CleanupInterval: time.Hour,
	})
	queue := jobs.NewQueue("roster-exports", reports.HandleJob, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		OnGiveUp:   func(j jobs.Job, err error) { reports.MarkFailed(j.ID, err) },
		Logger:     logr,
	})
	queue.Start(ctx)
	reports.SetQueue(queue)
	reports.StartCleanup(ctx)
	return reports, queue, nil
}
