package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/tutor_scheduler/internal/app"
	"github.com/Freeeeeet/tutor_scheduler/internal/config"
	"github.com/Freeeeeet/tutor_scheduler/internal/controller"
	"github.com/Freeeeeet/tutor_scheduler/internal/controller/handlers"
	"github.com/Freeeeeet/tutor_scheduler/internal/export"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/observability"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/Freeeeeet/tutor_scheduler/internal/storage"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// release проставляется при сборке: -ldflags "-X main.release=..."
var release = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	logger.Sugar().Infow("Starting tutor scheduler",
		"environment", cfg.Environment,
		"release", release,
		"location", cfg.Location.String(),
		"bot_enabled", cfg.TelegramToken != "")

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Environment, release)
	if err != nil {
		logger.Warn("Sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		flush()
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := app.ConnectDB(ctx, cfg.GetDBDSN(), cfg.DBInitRetries, cfg.DBInitDelay, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	err = migrator.Run(ctx)
	_ = migrator.Close()
	if err != nil {
		return err
	}

	// Репозитории
	userRepo := repository.NewUserRepository(pool)
	lessonRepo := repository.NewLessonRepository(pool)
	materialRepo := repository.NewMaterialRepository(pool)
	leadRepo := repository.NewLeadRepository(pool)

	blobs, err := storage.NewLocalStorage(cfg.MaterialsDir)
	if err != nil {
		return err
	}

	// Почта: SendGrid если задан ключ, иначе письма только в лог
	var mailer notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.SendgridAPIKey != "" {
		mailer = notify.NewSendgridNotifier(cfg.SendgridAPIKey, cfg.MailFromName, cfg.MailFrom)
	}

	// Сервисы
	userService := service.NewUserService(userRepo, logger)
	lessonService := service.NewLessonService(lessonRepo, userRepo, service.LessonOptions{
		FallbackRateCents: cfg.FallbackRateCents,
		PastDueGrace:      cfg.PastDueGrace,
	}, logger)
	reportService := service.NewReportService(lessonRepo, userRepo, export.NewLessonsExcel(), service.ReportOptions{
		Location: cfg.Location,
		Currency: cfg.CurrencySymbol,
	}, logger)
	studentService := service.NewStudentService(userRepo, logger)
	materialService := service.NewMaterialService(materialRepo, userRepo, blobs, storage.NewExtensionPolicy(cfg.AllowedExtensions), logger)
	leadService := service.NewLeadService(leadRepo, userRepo, mailer, cfg.TeacherEmail, logger)

	app.StartHTTP(ctx, cfg.HTTPAddr, app.NewHTTPHandler(pool, leadService, logger), logger)

	scheduler := app.NewScheduler(logger)
	defer scheduler.Stop()

	if cfg.TelegramToken == "" {
		logger.Warn("TELEGRAM_TOKEN is not set, bot and reminders are disabled")
		<-ctx.Done()
		return nil
	}

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		return err
	}

	scheduler.Every(ctx, cfg.ReminderInterval, "past_due_reminders",
		app.PastDueReminders(lessonService, userRepo, notify.NewTelegramNotifier(b), cfg.Location, logger))

	botController := controller.NewBotController(b, controller.Services{
		Users:     userService,
		Lessons:   lessonService,
		Reports:   reportService,
		Students:  studentService,
		Materials: materialService,
	}, handlers.Options{
		Location:      cfg.Location,
		Currency:      cfg.CurrencySymbol,
		TelegramToken: cfg.TelegramToken,
	}, logger)

	if err := botController.RegisterHandlers(ctx); err != nil {
		// без меню команд бот всё равно работает
		logger.Warn("Failed to register bot commands menu", zap.Error(err))
	}

	return botController.Start(ctx)
}
