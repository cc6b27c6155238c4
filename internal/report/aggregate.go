// Package report собирает сводку по проведённым урокам: фильтр, итоги и разбивку по ученикам.
package report

import (
	"sort"
	"strconv"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/pricing"
)

type Totals struct {
	Count     int
	CostCents int64
	Minutes   int
	Hours     float64
}

type StudentSummary struct {
	StudentID      int64
	Name           string
	Count          int
	CostCents      int64
	Minutes        int
	Hours          float64
	PaymentMethods []model.PaymentMethod
	Dates          []string // YYYY-MM-DD по возрастанию, без повторов
}

type Summary struct {
	Filter   Filter
	Lessons  []*model.Lesson // по убыванию начала
	Totals   Totals
	Students []StudentSummary
	Warnings []Warning
}

// Aggregate фильтрует уроки и считает итоги. names: studentID -> имя для отображения.
func Aggregate(lessons []*model.Lesson, f Filter, names map[int64]string, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}

	matched := make([]*model.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if l != nil && f.Match(l) {
			matched = append(matched, l)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].StartAt.Equal(matched[j].StartAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].StartAt.After(matched[j].StartAt)
	})

	type group struct {
		summary StudentSummary
		methods map[model.PaymentMethod]struct{}
		dates   map[string]struct{}
	}
	groups := make(map[int64]*group)

	var totals Totals
	for _, l := range matched {
		cost := pricing.LessonCost(l)
		totals.Count++
		totals.CostCents += cost
		totals.Minutes += l.DurationMinutes

		g, ok := groups[l.StudentID]
		if !ok {
			g = &group{
				summary: StudentSummary{StudentID: l.StudentID, Name: displayName(names, l.StudentID)},
				methods: make(map[model.PaymentMethod]struct{}),
				dates:   make(map[string]struct{}),
			}
			groups[l.StudentID] = g
		}
		g.summary.Count++
		g.summary.CostCents += cost
		g.summary.Minutes += l.DurationMinutes
		if l.PaymentMethod != nil {
			g.methods[*l.PaymentMethod] = struct{}{}
		}
		g.dates[l.StartAt.In(loc).Format(dateLayout)] = struct{}{}
	}
	totals.Hours = pricing.Hours(totals.Minutes)

	students := make([]StudentSummary, 0, len(groups))
	for _, g := range groups {
		s := g.summary
		s.Hours = pricing.Hours(s.Minutes)
		s.PaymentMethods = sortedMethods(g.methods)
		s.Dates = sortedKeys(g.dates)
		students = append(students, s)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name == students[j].Name {
			return students[i].StudentID < students[j].StudentID
		}
		return students[i].Name < students[j].Name
	})

	return Summary{
		Filter:   f,
		Lessons:  matched,
		Totals:   totals,
		Students: students,
	}
}

func displayName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return "#" + strconv.FormatInt(id, 10)
}

// методы в порядке model.PaymentMethods()
func sortedMethods(set map[model.PaymentMethod]struct{}) []model.PaymentMethod {
	out := make([]model.PaymentMethod, 0, len(set))
	for _, m := range model.PaymentMethods() {
		if _, ok := set[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
