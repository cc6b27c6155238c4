package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"go.uber.org/zap"
)

// LeadInput заявка с формы обратной связи. Website - скрытое поле-ловушка для ботов.
type LeadInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone" validate:"required,max=50"`
	Email   string `json:"email" validate:"omitempty,email,max=200"`
	Message string `json:"message" validate:"max=4000"`
	Website string `json:"website" validate:"-"`
}

// LeadResult итог обработки заявки
type LeadResult struct {
	Lead      *model.Lead
	Spam      bool
	Persisted bool
	Notified  bool
}

type LeadService struct {
	leadRepo       LeadStore
	userRepo       UserStore
	notifier       notify.Notifier
	recipientEmail string
	logger         *zap.Logger
}

// NewLeadService recipientEmail - адрес учителя из настроек; если пуст,
// письмо уходит самому первому учителю
func NewLeadService(leadRepo LeadStore, userRepo UserStore, notifier notify.Notifier, recipientEmail string, logger *zap.Logger) *LeadService {
	return &LeadService{
		leadRepo:       leadRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		recipientEmail: strings.TrimSpace(recipientEmail),
		logger:         logger,
	}
}

// Submit сохраняет заявку и уведомляет учителя. Сбой отправки не отменяет
// сохранённую заявку; ошибка возвращается только если не удалось ни то, ни другое.
func (s *LeadService) Submit(ctx context.Context, in LeadInput) (*LeadResult, error) {
	if strings.TrimSpace(in.Website) != "" {
		s.logger.Info("Lead dropped by honeypot")
		return &LeadResult{Spam: true}, nil
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	lead := &model.Lead{
		Name:    in.Name,
		Phone:   in.Phone,
		Email:   in.Email,
		Message: in.Message,
	}
	result := &LeadResult{Lead: lead}

	persistErr := s.leadRepo.Create(ctx, lead)
	if persistErr != nil {
		s.logger.Error("Failed to persist lead", zap.Error(persistErr))
	} else {
		result.Persisted = true
	}

	notifyErr := s.notifyTeacher(ctx, lead)
	if notifyErr != nil {
		s.logger.Warn("Failed to notify about lead",
			zap.Int64("lead_id", lead.ID),
			zap.Error(notifyErr),
		)
	} else {
		result.Notified = true
	}

	if persistErr != nil && notifyErr != nil {
		return result, fmt.Errorf("lead lost: persist: %w", persistErr)
	}

	s.logger.Info("Lead received",
		zap.Int64("lead_id", lead.ID),
		zap.Bool("persisted", result.Persisted),
		zap.Bool("notified", result.Notified),
	)
	return result, nil
}

func (s *LeadService) notifyTeacher(ctx context.Context, lead *model.Lead) error {
	recipient, err := s.recipient(ctx)
	if err != nil {
		return err
	}
	if recipient == "" {
		return fmt.Errorf("no teacher email configured")
	}

	return s.notifier.Send(ctx, notify.Message{
		Subject: LeadSubject(lead),
		Body:    LeadBody(lead),
		To:      recipient,
		ReplyTo: lead.Email,
	})
}

func (s *LeadService) recipient(ctx context.Context) (string, error) {
	if s.recipientEmail != "" {
		return s.recipientEmail, nil
	}

	teacher, err := s.userRepo.FirstTeacher(ctx)
	if err != nil {
		return "", fmt.Errorf("get default teacher: %w", err)
	}
	if teacher == nil {
		return "", nil
	}
	return strings.TrimSpace(teacher.Email), nil
}

func LeadSubject(lead *model.Lead) string {
	return "Новая заявка с сайта - " + lead.Name
}

func LeadBody(lead *model.Lead) string {
	lines := []string{
		"Получена новая заявка с сайта:",
		"- Имя: " + lead.Name,
		"- Телефон: " + lead.Phone,
		"- Email: " + orDash(lead.Email),
		"- Сообщение: " + orDash(lead.Message),
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
