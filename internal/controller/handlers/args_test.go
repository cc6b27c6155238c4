package handlers

import (
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandArgs(t *testing.T) {
	assert.Equal(t, []string{"5"}, commandArgs("/done@tutor_bot 5"))
	assert.Equal(t, []string{}, commandArgs("/lessons"))
	assert.Nil(t, commandArgs("   "))
}

func TestParseID(t *testing.T) {
	id, err := parseID("#42", "lesson_id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-1"} {
		_, err := parseID(bad, "lesson_id")
		assert.True(t, apperr.IsValidation(err), "input %q", bad)
	}
}

func TestParseDateTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("IST", 2*60*60)

	got, err := parseDateTime("02.03.2026", "15:30", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC), got.UTC())

	_, err = parseDateTime("2026-03-02", "15:30", loc)
	assert.True(t, apperr.IsValidation(err))
	_, err = parseDateTime("02.03.2026", "25:00", loc)
	assert.True(t, apperr.IsValidation(err))
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := parsePaymentMethod("cash")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.PaymentMethodCash, *m)

	for _, reset := range []string{"none", "-", "нет"} {
		m, err := parsePaymentMethod(reset)
		require.NoError(t, err)
		assert.Nil(t, m)
	}

	_, err = parsePaymentMethod("barter")
	assert.True(t, apperr.IsValidation(err))
}

func TestParseNewLesson(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  error
		minutes  int
		rate     int64
		validErr bool
	}{
		{name: "defaults", args: []string{"10", "02.03.2026", "15:00"}},
		{name: "duration and rate", args: []string{"10", "02.03.2026", "15:00", "90", "150"}, minutes: 90, rate: 15000},
		{name: "skip duration", args: []string{"10", "02.03.2026", "15:00", "-", "99.50"}, rate: 9950},
		{name: "too few", args: []string{"10", "02.03.2026"}, wantErr: errUsage},
		{name: "bad duration", args: []string{"10", "02.03.2026", "15:00", "zero"}, validErr: true},
		{name: "bad student", args: []string{"x", "02.03.2026", "15:00"}, validErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := parseNewLesson(tt.args, time.UTC)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.validErr:
				assert.True(t, apperr.IsValidation(err), "got %v", err)
			default:
				require.NoError(t, err)
				assert.Equal(t, int64(10), in.StudentID)
				assert.Equal(t, time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), in.StartAt)
				assert.Equal(t, tt.minutes, in.DurationMinutes)
				assert.Equal(t, tt.rate, in.HourlyRateCents)
			}
		})
	}
}

func TestParseReschedule(t *testing.T) {
	id, start, end, err := parseReschedule([]string{"7", "03.03.2026", "10:00", "11:30"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, 90*time.Minute, end.Sub(start))

	_, _, _, err = parseReschedule([]string{"7", "03.03.2026", "10:00"}, time.UTC)
	assert.ErrorIs(t, err, errUsage)
}

func TestParseMaterial(t *testing.T) {
	in, err := parseMaterial("/material 10 Дроби, часть 2 https://example.com/fractions\nРешить 1-10\nи 15")
	require.NoError(t, err)
	assert.Equal(t, int64(10), in.StudentID)
	assert.Equal(t, "Дроби, часть 2", in.Title)
	assert.Equal(t, "https://example.com/fractions", in.LinkURL)
	assert.Equal(t, "Решить 1-10\nи 15", in.Description)

	in, err = parseMaterial("/material 10 https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", in.Title, "single word is the title")
	assert.Empty(t, in.LinkURL)

	_, err = parseMaterial("/material 10")
	assert.ErrorIs(t, err, errUsage)
}

func TestReportFilterSkipsDashes(t *testing.T) {
	raw := reportFilter([]string{"2026-03-01", "-", "10", "paid"})

	assert.Equal(t, "2026-03-01", raw.From)
	assert.Empty(t, raw.To)
	assert.Equal(t, "10", raw.StudentID)
	assert.Equal(t, "paid", raw.PaidStatus)
	assert.Empty(t, raw.PaymentMethod)
}
