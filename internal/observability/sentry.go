package observability

import (
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/getsentry/sentry-go"
)

// InitSentry включает отправку ошибок; с пустым DSN ничего не делает
func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr отправляет только неожиданные ошибки: конфликты расписания,
// ошибки валидации и доступа в Sentry не попадают
func CaptureErr(err error) {
	if err == nil || apperr.IsExpected(err) {
		return
	}
	sentry.CaptureException(err)
}
