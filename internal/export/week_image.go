package export

import (
	"bytes"
	"image/color"
	"strconv"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Константы размеров и отступов
const (
	imageWidth         = 1400
	imageHeight        = 900
	headerHeight       = 100
	leftLabelsWidth    = 80
	legendWidth        = 120
	dayPaddingX        = 8
	minLessonHeight    = 8.0
	lessonBorderRadius = 6.0
	shadowOffset       = 3.0
	totalDaysInWeek    = 7
	hourPaddingTop     = 1
	hourPaddingBot     = 1
	defaultMinHour     = 8
	defaultMaxHour     = 20
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	lessonScheduledColor = color.RGBA{255, 182, 193, 255}
	lessonDoneColor      = color.RGBA{133, 193, 85, 220}
	lessonCancelledColor = color.RGBA{158, 158, 158, 200}
	lessonTextColor      = color.RGBA{20, 24, 28, 230}
	lessonActiveText     = color.RGBA{120, 40, 50, 255}
	lessonShadowColor    = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

// WeekView данные для картинки недели
type WeekView struct {
	Day      time.Time // любой день нужной недели
	Lessons  []*model.Lesson
	Names    map[int64]string // подпись на уроке: имя ученика (или учителя для ученика)
	NameOf   model.Party      // чьё имя подписывать
	Now      time.Time
	Location *time.Location
	Face     font.Face // nil = basicfont
}

type weekBounds struct {
	start time.Time
	end   time.Time
}

type hourRange struct {
	start int
	end   int
	total int
}

// WeekStart понедельник недели, в которую попадает день
func WeekStart(day time.Time) time.Time {
	return normalizeToWeekBounds(day).start
}

// RenderWeek рисует расписание недели (Пн-Вс) в PNG
func RenderWeek(v WeekView) ([]byte, error) {
	loc := v.Location
	if loc == nil {
		loc = time.UTC
	}
	face := v.Face
	if face == nil {
		face = basicfont.Face7x13
	}
	now := v.Now.In(loc)

	week := normalizeToWeekBounds(v.Day.In(loc))
	today := normalizeToDay(now)
	shouldHighlightToday := isTodayInWeek(today, week)

	lessonsByDay := groupLessonsByDay(v.Lessons, week, loc)
	hours := calculateHourRange(v.Lessons, week, loc)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(face)

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week)
	drawHourLabels(dc, hours, cellHeight)

	currentDate := week.start
	for dayIndex := 0; dayIndex < totalDaysInWeek; dayIndex++ {
		x := float64(leftLabelsWidth + dayIndex*dayWidth)
		y := float64(headerHeight)
		isToday := shouldHighlightToday && isSameDay(currentDate, today)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, dayIndex, isToday)
		drawDayHeader(dc, currentDate, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, l := range lessonsByDay[currentDate.Format("2006-01-02")] {
			drawLesson(dc, l, v, loc, x, y, dayWidth, hours, cellHeight)
		}

		currentDate = currentDate.AddDate(0, 0, 1)
	}

	if shouldHighlightToday {
		drawCurrentTimeLine(dc, now, hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalizeToWeekBounds нормализует дату к границам недели (Пн-Вс)
func normalizeToWeekBounds(date time.Time) weekBounds {
	normalized := normalizeToDay(date)

	daysSinceMonday := int(normalized.Weekday()) - 1
	if normalized.Weekday() == time.Sunday {
		daysSinceMonday = 6
	}

	start := normalized.AddDate(0, 0, -daysSinceMonday)
	return weekBounds{start: start, end: start.AddDate(0, 0, 6)}
}

func normalizeToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isTodayInWeek(today time.Time, week weekBounds) bool {
	return !today.Before(week.start) && !today.After(week.end)
}

func isSameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func groupLessonsByDay(lessons []*model.Lesson, week weekBounds, loc *time.Location) map[string][]*model.Lesson {
	byDay := make(map[string][]*model.Lesson)
	for _, l := range lessons {
		start := l.StartAt.In(loc)
		if start.Before(week.start) || !start.Before(week.end.AddDate(0, 0, 1)) {
			continue
		}
		key := start.Format("2006-01-02")
		byDay[key] = append(byDay[key], l)
	}
	return byDay
}

// calculateHourRange диапазон часов по урокам недели с небольшим запасом
func calculateHourRange(lessons []*model.Lesson, week weekBounds, loc *time.Location) hourRange {
	minHour, maxHour := 24, 0
	for _, l := range lessons {
		start, end := l.StartAt.In(loc), l.EndAt.In(loc)
		if start.Before(week.start) || !start.Before(week.end.AddDate(0, 0, 1)) {
			continue
		}
		endH := end.Hour()
		if end.Minute() > 0 || !isSameDay(start, end) {
			endH++
		}
		if !isSameDay(start, end) {
			endH = 24
		}
		if start.Hour() < minHour {
			minHour = start.Hour()
		}
		if endH > maxHour {
			maxHour = endH
		}
	}

	if minHour == 24 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	startHour := max(minHour-hourPaddingTop, 0)
	endHour := min(maxHour+hourPaddingBot, 24)
	return hourRange{start: startHour, end: endHour, total: endHour - startHour}
}

func drawHeader(dc *gg.Context, week weekBounds) {
	title := week.start.Format("January 2006")
	if week.start.Month() != week.end.Month() {
		title = week.start.Format("January") + " - " + week.end.Format("January 2006")
	}
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, 20, float64(headerHeight)/4, 0, 0.5)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	dc.SetColor(hourLabelColor)
	for hIdx := 0; hIdx <= hours.total; hIdx++ {
		y := float64(headerHeight) + float64(hIdx)*cellHeight
		dc.DrawStringAnchored(formatHourLabel(hours.start+hIdx), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("02.01"), x+float64(dayWidth)/2, y-30, 0.5, 0.5)
	dc.DrawStringAnchored(date.Format("Mon"), x+float64(dayWidth)/2, y-12, 0.5, 0.5)
}

func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)
	for hIdx := 0; hIdx <= hours.total; hIdx++ {
		hy := y + float64(hIdx)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

func drawLesson(dc *gg.Context, l *model.Lesson, v WeekView, loc *time.Location, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	start, end := l.StartAt.In(loc), l.EndAt.In(loc)
	startHour := float64(start.Hour()) + float64(start.Minute())/60.0
	endHour := float64(end.Hour()) + float64(end.Minute())/60.0
	if !isSameDay(start, end) {
		endHour = 24
	}

	lessonY := y + (startHour-float64(hours.start))*cellHeight
	lessonHeight := max((endHour-startHour)*cellHeight, minLessonHeight)

	fillColor := lessonColor(l.Status)
	width := float64(dayWidth) - float64(dayPaddingX*2)

	// Тень
	dc.SetColor(lessonShadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, lessonY+2+shadowOffset, width, lessonHeight-4, lessonBorderRadius)
	dc.Fill()

	dc.SetColor(fillColor)
	dc.DrawRoundedRectangle(x+dayPaddingX, lessonY+2, width, lessonHeight-4, lessonBorderRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fillColor, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, lessonY+2, width, lessonHeight-4, lessonBorderRadius)
	dc.Stroke()

	txtColor := lessonTextColor
	if l.IsActive() {
		txtColor = lessonActiveText
	}
	dc.SetColor(txtColor)
	txtX := x + dayPaddingX + 8
	txtY := lessonY + 16
	dc.DrawString(start.Format("15:04")+"-"+end.Format("15:04"), txtX, txtY)

	if lessonHeight > 30 {
		name := v.Names[l.PartyID(v.NameOf)]
		if name == "" {
			name = "#" + strconv.FormatInt(l.PartyID(v.NameOf), 10)
		}
		if r := []rune(name); len(r) > 20 {
			name = string(r[:17]) + "..."
		}
		dc.DrawString(name, txtX, txtY+16)
	}
}

func lessonColor(status model.LessonStatus) color.RGBA {
	switch status {
	case model.LessonStatusDone:
		return lessonDoneColor
	case model.LessonStatusCancelled:
		return lessonCancelledColor
	default:
		return lessonScheduledColor
	}
}

// darkenColor затемняет цвет на указанный множитель
func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	currentHour := float64(now.Hour()) + float64(now.Minute())/60.0
	if currentHour < float64(hours.start) || currentHour > float64(hours.end) {
		return
	}

	y := float64(headerHeight) + (currentHour-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), y, float64(leftLabelsWidth+totalDaysInWeek*dayWidth), y)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	liX := float64(leftLabelsWidth + totalDaysInWeek*dayWidth + 10)
	liY := float64(imageHeight) - 100.0 + 22

	legendItems := []struct {
		Label string
		Clr   color.Color
	}{
		{"Scheduled", lessonScheduledColor},
		{"Done", lessonDoneColor},
		{"Cancelled", lessonCancelledColor},
	}

	boxW, boxH := 20.0, 14.0
	for _, item := range legendItems {
		dc.SetColor(item.Clr)
		dc.DrawRoundedRectangle(liX, liY, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.Label, liX+boxW+8, liY+boxH/2, 0, 0.5)
		liY += boxH + 14
	}
}

func formatHourLabel(h int) string {
	if h < 10 {
		return "0" + strconv.Itoa(h) + ":00"
	}
	return strconv.Itoa(h) + ":00"
}
