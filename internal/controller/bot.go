package controller

import (
	"context"

	"github.com/Freeeeeet/tutor_scheduler/internal/controller/handlers"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Services сервисы, которые использует бот
type Services struct {
	Users     *service.UserService
	Lessons   *service.LessonService
	Reports   *service.ReportService
	Students  *service.StudentService
	Materials *service.MaterialService
}

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	services Services,
	opts handlers.Options,
	logger *zap.Logger,
) *BotController {
	// Создаём обработчики команд
	cmdHandlers := handlers.NewHandlers(
		services.Users,
		services.Lessons,
		services.Reports,
		services.Students,
		services.Materials,
		opts,
		logger,
	)

	return &BotController{
		bot:      botInstance,
		handlers: cmdHandlers,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	command := func(name string, handler bot.HandlerFunc) {
		c.bot.RegisterHandler(bot.HandlerTypeMessageText, name, bot.MatchTypeCommandStartOnly, handler)
	}

	command("start", c.handlers.HandleStart)
	command("help", c.handlers.HandleHelp)
	command("lessons", c.handlers.HandleLessons)
	command("week", c.handlers.HandleWeek)
	command("materials", c.handlers.HandleMaterials)
	command("getmaterial", c.handlers.HandleGetMaterial)

	// Команды для учителей
	command("newlesson", c.handlers.HandleNewLesson)
	command("reschedule", c.handlers.HandleReschedule)
	command("done", c.handlers.HandleDone)
	command("cancel", c.handlers.HandleCancel)
	command("paid", c.handlers.HandlePaid)
	command("payment", c.handlers.HandlePayment)
	command("report", c.handlers.HandleReport)
	command("students", c.handlers.HandleStudents)
	command("rate", c.handlers.HandleRate)
	command("grade", c.handlers.HandleGrade)
	command("material", c.handlers.HandleAddMaterial)
	command("delmaterial", c.handlers.HandleDeleteMaterial)

	// Команды администратора
	command("assign", c.handlers.HandleAssign)
	command("role", c.handlers.HandleRole)

	// Документ с подписью /material
	c.bot.RegisterHandlerMatchFunc(handlers.IsMaterialUpload, c.handlers.HandleMaterialUpload)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handlers.HandleCallback)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "lessons", Description: "📅 Мои уроки"},
		{Command: "week", Description: "🗓 Расписание недели"},
		{Command: "materials", Description: "📚 Материалы"},
		{Command: "newlesson", Description: "➕ Записать урок (учитель)"},
		{Command: "report", Description: "📊 Отчёт в Excel (учитель)"},
		{Command: "students", Description: "👥 Мои ученики (учитель)"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота; блокирует до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
