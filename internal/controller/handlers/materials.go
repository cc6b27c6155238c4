package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	usageMaterial    = "/material <ученик> <название> [ссылка], описание со второй строки"
	usageMaterials   = "/materials <ученик>"
	usageGetMaterial = "/getmaterial <материал>"
	usageDelMaterial = "/delmaterial <материал>"

	// лимит Bot API на скачивание файлов
	maxDocumentBytes = 20 << 20
)

// HandleMaterials ученик видит свои материалы, учитель - материалы ученика
func (h *Handlers) HandleMaterials(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, id, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	studentID := user.ID
	if !user.IsStudent() {
		args := commandArgs(update.Message.Text)
		if len(args) != 1 {
			h.sendUsage(ctx, b, chatID, usageMaterials)
			return
		}
		var err error
		if studentID, err = parseID(args[0], "student_id"); err != nil {
			h.replyParseError(ctx, b, chatID, err, usageMaterials)
			return
		}
	}

	materials, err := h.materialService.ListForStudent(ctx, id, studentID)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	if len(materials) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Материалов пока нет.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 %d %s:\n\n", len(materials), formatting.PluralizeMaterials(len(materials)))
	for _, m := range materials {
		sb.WriteString(materialLine(m))
		sb.WriteString("\n")
	}
	h.sendMessage(ctx, b, chatID, strings.TrimRight(sb.String(), "\n"))
}

func materialLine(m *model.Material) string {
	line := fmt.Sprintf("#%d %s (%s)", m.ID, m.Title, formatting.FormatDate(m.CreatedAt))
	if m.HasFile() {
		line += "\n   📎 " + m.FileName + ": /getmaterial " + fmt.Sprint(m.ID)
	}
	if m.LinkURL != "" {
		line += "\n   🔗 " + m.LinkURL
	}
	if m.Description != "" {
		line += "\n   " + m.Description
	}
	return line
}

// HandleGetMaterial отправляет файл материала документом
func (h *Handlers) HandleGetMaterial(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		h.sendUsage(ctx, b, chatID, usageGetMaterial)
		return
	}
	materialID, err := parseID(args[0], "material_id")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageGetMaterial)
		return
	}

	m, rc, err := h.materialService.Open(ctx, id, materialID)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		h.sendError(ctx, b, chatID, fmt.Errorf("read material file: %w", err))
		return
	}

	h.sendDocument(ctx, b, chatID, m.FileName, data, "📎 "+m.Title)
}

// HandleDeleteMaterial /delmaterial <материал>
func (h *Handlers) HandleDeleteMaterial(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		h.sendUsage(ctx, b, chatID, usageDelMaterial)
		return
	}
	materialID, err := parseID(args[0], "material_id")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageDelMaterial)
		return
	}

	if err := h.materialService.Delete(ctx, id, materialID); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}
	h.sendMessage(ctx, b, chatID, fmt.Sprintf("🗑 Материал #%d удалён", materialID))
}

// HandleAddMaterial /material текстом: ссылка или описание без файла
func (h *Handlers) HandleAddMaterial(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	in, err := parseMaterial(update.Message.Text)
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageMaterial)
		return
	}

	h.addMaterial(ctx, b, chatID, id, in)
}

// IsMaterialUpload документ с подписью /material
func IsMaterialUpload(update *models.Update) bool {
	if update.Message == nil || update.Message.Document == nil {
		return false
	}
	fields := strings.Fields(update.Message.Caption)
	return len(fields) > 0 && commandName(fields[0]) == "/material"
}

// HandleMaterialUpload сохраняет присланный документ как материал ученика
func (h *Handlers) HandleMaterialUpload(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID
	doc := update.Message.Document

	in, err := parseMaterial(update.Message.Caption)
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageMaterial)
		return
	}

	if doc.FileSize > maxDocumentBytes {
		h.sendMessage(ctx, b, chatID, "❌ Файл больше 20 МБ, Telegram не даст его скачать. Пришлите ссылку.")
		return
	}

	body, err := h.downloadFile(ctx, b, doc.FileID)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}
	defer body.Close()

	in.File = &service.MaterialFile{Name: doc.FileName, Reader: io.LimitReader(body, maxDocumentBytes)}
	h.addMaterial(ctx, b, chatID, id, in)
}

func (h *Handlers) addMaterial(ctx context.Context, b *bot.Bot, chatID int64, id authz.Identity, in service.AddMaterialInput) {
	m, err := h.materialService.Add(ctx, id, in)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}
	h.sendMessage(ctx, b, chatID, "✅ Материал добавлен\n\n"+materialLine(m))
}

// downloadFile скачивает файл по file_id через файловый эндпоинт Bot API
func (h *Handlers) downloadFile(ctx context.Context, b *bot.Bot, fileID string) (io.ReadCloser, error) {
	f, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if h.opts.TelegramToken == "" {
		return nil, fmt.Errorf("telegram token is not configured")
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", h.opts.TelegramToken, f.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		h.logger.Warn("Telegram file download failed", zap.String("status", resp.Status))
		return nil, fmt.Errorf("telegram file status: %s", resp.Status)
	}
	return resp.Body, nil
}

// parseMaterial первая строка: /material <ученик> <название> [ссылка];
// остальные строки - описание
func parseMaterial(text string) (service.AddMaterialInput, error) {
	var in service.AddMaterialInput

	first, rest, _ := strings.Cut(text, "\n")
	args := commandArgs(first)
	if len(args) < 2 {
		return in, errUsage
	}

	studentID, err := parseID(args[0], "student_id")
	if err != nil {
		return in, err
	}
	in.StudentID = studentID

	words := args[1:]
	if last := words[len(words)-1]; len(words) > 1 && isLink(last) {
		in.LinkURL = last
		words = words[:len(words)-1]
	}
	in.Title = strings.Join(words, " ")
	in.Description = strings.TrimSpace(rest)
	return in, nil
}

func isLink(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// commandName "/material@my_bot" -> "/material"
func commandName(s string) string {
	name, _, _ := strings.Cut(s, "@")
	return strings.ToLower(name)
}
