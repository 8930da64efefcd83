package scheduler

import (
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
)

// slotMinutes matches the external trigger's cadence. A schedule fires in the
// run whose slot contains its window start, and only in that run — the slot
// test is what debounces firing across adjacent invocations.
const slotMinutes = 30

type Matcher struct {
	loc      *time.Location
	maxBatch int
}

func NewMatcher(loc *time.Location, maxBatch int) *Matcher {
	return &Matcher{loc: loc, maxBatch: maxBatch}
}

// SelectDue picks the schedules that should execute in the current slot.
// A schedule is due when its window starts inside the slot, its window has
// not already ended, and its weekday/date recurrence matches today. Output is
// capped at maxBatch; overflow is silently deferred to the next invocation.
func (m *Matcher) SelectDue(now time.Time, schedules []*domain.BudgetSchedule) []*domain.BudgetSchedule {
	local := now.In(m.loc)
	minuteOfDay := local.Hour()*60 + local.Minute()
	slotStart := minuteOfDay - minuteOfDay%slotMinutes

	var due []*domain.BudgetSchedule
	for _, s := range schedules {
		start := s.StartMinute()
		if start < slotStart || start >= slotStart+slotMinutes {
			continue
		}
		if minuteOfDay >= s.EndMinute() {
			continue
		}
		if !m.dateMatches(local, s) {
			continue
		}
		due = append(due, s)
		if len(due) == m.maxBatch {
			break
		}
	}
	return due
}

func (m *Matcher) dateMatches(local time.Time, s *domain.BudgetSchedule) bool {
	if len(s.SpecificDates) > 0 {
		today := local.Format("2006-01-02")
		for _, d := range s.SpecificDates {
			if d == today {
				return true
			}
		}
		return false
	}

	// An empty weekday list, or one covering the whole week, means daily.
	if len(s.DaysOfWeek) == 0 || len(s.DaysOfWeek) >= 7 {
		return true
	}
	weekday := int(local.Weekday())
	for _, d := range s.DaysOfWeek {
		if d == weekday {
			return true
		}
	}
	return false
}
