// Package schedule проверяет пересечения уроков по полуоткрытым интервалам [start, end).
package schedule

import (
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// Interval полуоткрытый интервал [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps касание концов пересечением не считается
func (i Interval) Overlaps(other Interval) bool {
	return other.End.After(i.Start) && other.Start.Before(i.End)
}

func LessonInterval(l *model.Lesson) Interval {
	return Interval{Start: l.StartAt, End: l.EndAt}
}

// FindConflict возвращает неотменённый урок участника, пересекающийся с [start, end).
// Урок с excludeID (редактируемый) пропускается. Из нескольких конфликтов
// возвращается самый ранний по началу.
func FindConflict(lessons []*model.Lesson, party model.Party, partyID int64, window Interval, excludeID int64) *model.Lesson {
	var found *model.Lesson
	for _, l := range lessons {
		if l == nil || l.PartyID(party) != partyID || !l.BlocksSchedule() {
			continue
		}
		if excludeID != 0 && l.ID == excludeID {
			continue
		}
		if !window.Overlaps(LessonInterval(l)) {
			continue
		}
		if found == nil || l.StartAt.Before(found.StartAt) ||
			(l.StartAt.Equal(found.StartAt) && l.ID < found.ID) {
			found = l
		}
	}
	return found
}

// CheckBoth проверяет обе стороны урока: сначала учителя, затем ученика
func CheckBoth(lessons []*model.Lesson, teacherID, studentID int64, window Interval, excludeID int64) error {
	sides := []struct {
		party model.Party
		id    int64
	}{
		{model.PartyTeacher, teacherID},
		{model.PartyStudent, studentID},
	}

	for _, side := range sides {
		if c := FindConflict(lessons, side.party, side.id, window, excludeID); c != nil {
			return &apperr.ConflictError{
				Side:     side.party,
				LessonID: c.ID,
				Start:    c.StartAt,
				End:      c.EndAt,
			}
		}
	}
	return nil
}
