// Package keyboard собирает inline клавиатуры и разбирает их callback data.
package keyboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
)

// Builder упрощает создание inline клавиатур
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

// NewBuilder создаёт новый builder клавиатуры
func NewBuilder() *Builder {
	return &Builder{
		rows: make([][]models.InlineKeyboardButton, 0),
	}
}

// Row добавляет новый ряд кнопок
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Button создаёт кнопку
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// Len число рядов
func (b *Builder) Len() int {
	return len(b.rows)
}

// Build создаёт финальную клавиатуру
func (b *Builder) Build() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: b.rows,
	}
}

// Data собирает callback data: "prefix:arg1:arg2"
func Data(prefix string, args ...string) string {
	return strings.Join(append([]string{prefix}, args...), ":")
}

// Parse разбирает callback data на префикс и аргументы
func Parse(data string) (prefix string, args []string) {
	parts := strings.Split(data, ":")
	return parts[0], parts[1:]
}

// ParseID извлекает ID из аргумента callback data
func ParseID(args []string, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("callback data: missing argument %d", i)
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("callback data: invalid id %q", args[i])
	}
	return id, nil
}
