package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/pricing"
	"github.com/Freeeeeet/tutor_scheduler/internal/report"
	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary  = "Сводка"
	sheetLessons  = "Уроки"
	sheetStudents = "Ученики"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// LessonsReport данные для выгрузки сводки по проведённым урокам
type LessonsReport struct {
	TeacherName  string
	Summary      report.Summary
	StudentNames map[int64]string
	Currency     string
	Location     *time.Location
	GeneratedAt  time.Time
}

// LessonsExcel выгружает сводку в xlsx
type LessonsExcel struct{}

func NewLessonsExcel() *LessonsExcel {
	return &LessonsExcel{}
}

func (e *LessonsExcel) ContentType() string { return xlsxContentType }

func (e *LessonsExcel) Extension() string { return "xlsx" }

// Filename имя файла выгрузки
func (e *LessonsExcel) Filename(r LessonsReport) string {
	return sanitizeFileName(fmt.Sprintf("lessons-summary-%s-%s.xlsx",
		nonEmpty(r.TeacherName), r.GeneratedAt.Format("20060102-1504")))
}

func (e *LessonsExcel) Export(r LessonsReport) ([]byte, error) {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummarySheet(f, r); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetLessons); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	if err := writeLessonsSheet(f, r, loc); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetStudents); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	if err := writeStudentsSheet(f, r); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, r LessonsReport) error {
	s := r.Summary
	rows := [][]any{
		{"Учитель", nonEmpty(r.TeacherName)},
		{"Сформировано", r.GeneratedAt.Format("02.01.2006 15:04")},
		{},
		{"Фильтр", "Значение"},
	}

	described := s.Filter.Describe()
	if len(described) == 0 {
		rows = append(rows, []any{"-", "без фильтров"})
	}
	keys := make([]string, 0, len(described))
	for k := range described {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := described[k]
		if k == "student_id" && s.Filter.StudentID != nil {
			if name, ok := r.StudentNames[*s.Filter.StudentID]; ok && name != "" {
				v = name
			}
		}
		rows = append(rows, []any{k, v})
	}
	for _, w := range s.Warnings {
		rows = append(rows, []any{"пропущено: " + w.Field, w.Value})
	}

	rows = append(rows,
		[]any{},
		[]any{"Уроков", s.Totals.Count},
		[]any{"Минут", s.Totals.Minutes},
		[]any{"Часов", s.Totals.Hours},
		[]any{"Сумма", centsToFloat(s.Totals.CostCents)},
		[]any{"Валюта", r.Currency},
	)

	return writeRows(f, sheetSummary, rows)
}

func writeLessonsSheet(f *excelize.File, r LessonsReport, loc *time.Location) error {
	rows := [][]any{{"ID", "Дата", "Время", "Ученик", "Минут", "Ставка", "Стоимость", "Оплачено", "Статус оплаты", "Способ оплаты"}}
	for _, l := range r.Summary.Lessons {
		start := l.StartAt.In(loc)
		method := ""
		if l.PaymentMethod != nil {
			method = string(*l.PaymentMethod)
		}
		rows = append(rows, []any{
			l.ID,
			start.Format("02.01.2006"),
			start.Format("15:04") + "-" + l.EndAt.In(loc).Format("15:04"),
			studentName(r.StudentNames, l.StudentID),
			l.DurationMinutes,
			centsToFloat(l.HourlyRateAtBookingCents),
			centsToFloat(pricing.LessonCost(l)),
			centsToFloat(l.PaidAmountCents),
			PaidStatusTitle(l.PaidStatus),
			method,
		})
	}

	if err := writeRows(f, sheetLessons, rows); err != nil {
		return err
	}
	return ApplyDefaultExcelFormatting(f, sheetLessons, 1)
}

func writeStudentsSheet(f *excelize.File, r LessonsReport) error {
	rows := [][]any{{"Ученик", "Уроков", "Часов", "Сумма", "Способы оплаты", "Даты"}}
	for _, st := range r.Summary.Students {
		methods := make([]string, 0, len(st.PaymentMethods))
		for _, m := range st.PaymentMethods {
			methods = append(methods, string(m))
		}
		rows = append(rows, []any{
			st.Name,
			st.Count,
			st.Hours,
			centsToFloat(st.CostCents),
			strings.Join(methods, ", "),
			strings.Join(st.Dates, ", "),
		})
	}

	if err := writeRows(f, sheetStudents, rows); err != nil {
		return err
	}
	return ApplyDefaultExcelFormatting(f, sheetStudents, 1)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func studentName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func centsToFloat(cents int64) float64 {
	return float64(cents) / 100
}

func nonEmpty(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return s
}

// PaidStatusTitle подпись статуса оплаты для отчётов
func PaidStatusTitle(s model.PaidStatus) string {
	switch s {
	case model.PaidStatusPaid:
		return "Оплачен"
	case model.PaidStatusPartial:
		return "Частично"
	default:
		return "Не оплачен"
	}
}
