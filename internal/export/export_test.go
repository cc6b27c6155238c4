package export

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleLessons() []*model.Lesson {
	cash := model.PaymentMethodCash
	start := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	return []*model.Lesson{
		{ID: 1, TeacherID: 1, StudentID: 10, StartAt: start, EndAt: start.Add(90 * time.Minute), DurationMinutes: 90,
			Status: model.LessonStatusDone, HourlyRateAtBookingCents: 11000, PaidStatus: model.PaidStatusPaid, PaidAmountCents: 16500, PaymentMethod: &cash},
		{ID: 2, TeacherID: 1, StudentID: 20, StartAt: start.Add(24 * time.Hour), EndAt: start.Add(25 * time.Hour), DurationMinutes: 60,
			Status: model.LessonStatusScheduled, HourlyRateAtBookingCents: 12000, PaidStatus: model.PaidStatusUnpaid},
		{ID: 3, TeacherID: 1, StudentID: 20, StartAt: start.Add(48 * time.Hour), EndAt: start.Add(49 * time.Hour), DurationMinutes: 60,
			Status: model.LessonStatusCancelled, HourlyRateAtBookingCents: 12000, PaidStatus: model.PaidStatusUnpaid},
	}
}

func TestLessonsExcelExport(t *testing.T) {
	names := map[int64]string{10: "Noa", 20: "Amit"}
	f, warnings := report.ParseFilter(report.RawFilter{From: "2026-03-01", PaidStatus: "bogus"}, time.UTC)
	summary := report.Aggregate(sampleLessons()[:1], f, names, time.UTC)
	summary.Warnings = warnings

	exp := NewLessonsExcel()
	data, err := exp.Export(LessonsReport{
		TeacherName:  "Limor",
		Summary:      summary,
		StudentNames: names,
		Currency:     "₪",
		GeneratedAt:  time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(sheetLessons)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Noa", rows[1][3])
	assert.Equal(t, "03.03.2026", rows[1][1])
	assert.Equal(t, "165", rows[1][6])
	assert.Equal(t, "cash", rows[1][9])

	students, err := wb.GetRows(sheetStudents)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "2026-03-03", students[1][5])

	summaryRows, err := wb.GetRows(sheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Учитель", "Limor"}, summaryRows[0])

	var sawWarning bool
	for _, r := range summaryRows {
		if len(r) > 0 && r[0] == "пропущено: paid_status" {
			sawWarning = true
		}
	}
	assert.True(t, sawWarning)
}

func TestLessonsExcelFilename(t *testing.T) {
	name := NewLessonsExcel().Filename(LessonsReport{TeacherName: "Limor / Cohen", GeneratedAt: time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)})
	assert.Equal(t, "lessons-summary-Limor _ Cohen-20260310-1830.xlsx", name)
}

func TestRenderWeek(t *testing.T) {
	data, err := RenderWeek(WeekView{
		Day:     time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		Lessons: sampleLessons(),
		Names:   map[int64]string{10: "Noa", 20: "Amit"},
		NameOf:  model.PartyStudent,
		Now:     time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Equal(t, imageHeight, img.Bounds().Dy())
}

func TestWeekStart(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), WeekStart(sunday))
}

func TestCalculateHourRangeDefaults(t *testing.T) {
	week := normalizeToWeekBounds(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	h := calculateHourRange(nil, week, time.UTC)
	assert.Equal(t, defaultMinHour-hourPaddingTop, h.start)
	assert.Equal(t, defaultMaxHour+hourPaddingBot, h.end)
}
