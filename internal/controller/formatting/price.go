package formatting

import "github.com/Freeeeeet/tutor_scheduler/internal/pricing"

// FormatPrice сумма в центах с символом валюты
func FormatPrice(cents int64, currency string) string {
	return pricing.FormatCents(cents, currency)
}

// FormatRate почасовая ставка
func FormatRate(cents int64, currency string) string {
	return pricing.FormatCents(cents, currency) + "/ч"
}
