package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/pricing"
)

// errUsage неверное число аргументов, отвечаем подсказкой по формату
var errUsage = errors.New("usage")

const (
	dateLayout  = "02.01.2006"
	clockLayout = "15:04"
)

// commandArgs аргументы команды без самой команды ("/done@bot 5" -> ["5"])
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return fields[1:]
}

func parseID(s, field string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NewValidation(field, "must be a positive number")
	}
	return id, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, apperr.NewValidation("date", "expected dd.mm.yyyy")
	}
	return d, nil
}

// parseDateTime "dd.mm.yyyy" + "HH:MM" в часовом поясе loc
func parseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := parseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	c, err := time.Parse(clockLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, apperr.NewValidation("time", "expected HH:MM")
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}

// parsePaymentMethod "none" или "-" сбрасывают способ оплаты
func parsePaymentMethod(s string) (*model.PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "-", "нет":
		return nil, nil
	}
	m, ok := model.ParsePaymentMethod(s)
	if !ok {
		return nil, apperr.NewValidation("payment_method", "one of "+paymentMethodList())
	}
	return &m, nil
}

func parseAmount(s, field string) (int64, error) {
	cents, err := pricing.ParseAmount(s)
	if err != nil {
		return 0, apperr.NewValidation(field, "expected amount like 110 or 99.50")
	}
	return cents, nil
}

func paymentMethodList() string {
	methods := model.PaymentMethods()
	names := make([]string, 0, len(methods))
	for _, m := range methods {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

// argOrEmpty "-" означает пропущенный аргумент
func argOrEmpty(args []string, i int) string {
	if i >= len(args) || args[i] == "-" {
		return ""
	}
	return args[i]
}
