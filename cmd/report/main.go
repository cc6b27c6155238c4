// Команда report выгружает отчёт учителя и картинку недели без бота:
//
//	report -teacher 1 -from 2026-03-01 -to 2026-03-31 -out march.xlsx -week week.png
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/app"
	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/config"
	"github.com/Freeeeeet/tutor_scheduler/internal/export"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/report"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"go.uber.org/zap"
)

func main() {
	var (
		teacherID = flag.Int64("teacher", 0, "ID учителя")
		from      = flag.String("from", "", "начало периода, YYYY-MM-DD")
		to        = flag.String("to", "", "конец периода включительно, YYYY-MM-DD")
		student   = flag.String("student", "", "ID ученика")
		paid      = flag.String("paid", "", "статус оплаты: unpaid, partial, paid")
		method    = flag.String("method", "", "способ оплаты")
		out       = flag.String("out", "", "файл отчёта .xlsx (по умолчанию имя из отчёта)")
		week      = flag.String("week", "", "файл картинки недели .png")
		weekOf    = flag.String("week-of", "", "день недели для картинки, YYYY-MM-DD (по умолчанию сегодня)")
	)
	flag.Parse()

	if *teacherID <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx := context.Background()

	pool, err := app.ConnectDB(ctx, cfg.GetDBDSN(), 1, cfg.DBInitDelay, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	reports := service.NewReportService(repository.NewLessonRepository(pool), userRepo, export.NewLessonsExcel(), service.ReportOptions{
		Location: cfg.Location,
		Currency: cfg.CurrencySymbol,
	}, logger)

	id := authz.Identity{UserID: *teacherID, Role: model.RoleTeacher}

	res, err := reports.Export(ctx, id, report.RawFilter{
		From:          *from,
		To:            *to,
		StudentID:     *student,
		PaidStatus:    *paid,
		PaymentMethod: *method,
	})
	if err != nil {
		logger.Fatal("Failed to export report", zap.Error(err))
	}
	for _, w := range res.Summary.Warnings {
		logger.Warn("Filter value ignored", zap.String("field", w.Field), zap.String("value", w.Value), zap.String("reason", w.Message))
	}

	path := *out
	if path == "" {
		path = res.Filename
	}
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		logger.Fatal("Failed to write report", zap.Error(err))
	}
	fmt.Printf("%s: %d lessons, %d bytes\n", path, res.Summary.Totals.Count, len(res.Data))

	if *week == "" {
		return
	}

	day := time.Now().In(cfg.Location)
	if *weekOf != "" {
		if day, err = time.ParseInLocation("2006-01-02", *weekOf, cfg.Location); err != nil {
			logger.Fatal("Invalid -week-of", zap.Error(err))
		}
	}

	img, err := reports.WeekImage(ctx, id, day)
	if err != nil {
		logger.Fatal("Failed to render week", zap.Error(err))
	}
	if err := os.WriteFile(*week, img, 0o644); err != nil {
		logger.Fatal("Failed to write week image", zap.Error(err))
	}
	fmt.Printf("%s: week of %s\n", *week, export.WeekStart(day).Format("2006-01-02"))
}
