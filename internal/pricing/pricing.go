// Package pricing считает стоимость уроков. Все суммы хранятся в целых центах,
// перевод в десятичный вид делается только при отображении.
package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// DefaultFallbackRateCents системная ставка за час, если других нет (110.00)
const DefaultFallbackRateCents int64 = 11000

// DeriveRate выбирает ставку: явная, затем ставка ученика, затем запасная
func DeriveRate(explicitCents, studentDefaultCents, fallbackCents int64) int64 {
	if explicitCents > 0 {
		return explicitCents
	}
	if studentDefaultCents > 0 {
		return studentDefaultCents
	}
	return fallbackCents
}

// Cost стоимость урока по минутам и почасовой ставке, округление до цента
func Cost(durationMinutes int, rateCents int64) int64 {
	if durationMinutes <= 0 || rateCents <= 0 {
		return 0
	}
	return int64(math.Round(float64(rateCents) * float64(durationMinutes) / 60))
}

// AmountDue остаток к оплате, никогда не отрицательный
func AmountDue(costCents, paidCents int64) int64 {
	if due := costCents - paidCents; due > 0 {
		return due
	}
	return 0
}

// StatusFor статус оплаты по сумме уже внесённых денег
func StatusFor(costCents, paidCents int64) model.PaidStatus {
	switch {
	case paidCents <= 0:
		return model.PaidStatusUnpaid
	case paidCents >= costCents:
		return model.PaidStatusPaid
	default:
		return model.PaidStatusPartial
	}
}

// LessonCost стоимость урока по снимку ставки
func LessonCost(l *model.Lesson) int64 {
	return Cost(l.DurationMinutes, l.HourlyRateAtBookingCents)
}

// LessonAmountDue остаток к оплате по уроку
func LessonAmountDue(l *model.Lesson) int64 {
	return AmountDue(LessonCost(l), l.PaidAmountCents)
}

// Hours переводит минуты в часы с точностью до двух знаков
func Hours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}

// FormatCents форматирует сумму в центах: 16500 -> "165.00 ₪"
func FormatCents(cents int64, symbol string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	s := fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
	if symbol == "" {
		return s
	}
	return s + " " + symbol
}

// ParseAmount разбирает десятичную сумму ("110", "99.5", "12,30") в центы.
// Отрицательные суммы и больше двух знаков после запятой не допускаются.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount %q", s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}

	var fracCents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("amount %q must have at most two decimals", s)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		fracCents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", s, err)
		}
	}

	if units > math.MaxInt64/100-1 {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	return units*100 + fracCents, nil
}
