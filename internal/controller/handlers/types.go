package handlers

import (
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"go.uber.org/zap"
)

// Options параметры отображения и загрузки файлов
type Options struct {
	Location      *time.Location
	Currency      string
	TelegramToken string // для скачивания документов из Telegram
	Now           func() time.Time
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService     *service.UserService
	lessonService   *service.LessonService
	reportService   *service.ReportService
	studentService  *service.StudentService
	materialService *service.MaterialService
	opts            Options
	logger          *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	lessonService *service.LessonService,
	reportService *service.ReportService,
	studentService *service.StudentService,
	materialService *service.MaterialService,
	opts Options,
	logger *zap.Logger,
) *Handlers {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handlers{
		userService:     userService,
		lessonService:   lessonService,
		reportService:   reportService,
		studentService:  studentService,
		materialService: materialService,
		opts:            opts,
		logger:          logger,
	}
}
