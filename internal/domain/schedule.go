package domain

import (
	"errors"
	"time"
)

var (
	ErrScheduleNotFound    = errors.New("schedule not found")
	ErrInvalidTimeWindow   = errors.New("window end must be after window start")
	ErrScheduleAlreadySet  = errors.New("schedule is already in the requested state")
	ErrCredentialsNotFound = errors.New("shop credentials not found")
)

type CampaignKind string

const (
	CampaignAuto   CampaignKind = "auto"
	CampaignManual CampaignKind = "manual"
)

// BudgetSchedule is a user-defined rule: during the daily window
// [HourStart:MinuteStart, HourEnd:MinuteEnd) set the campaign's daily budget
// to Budget. Windows are expressed in the scheduler's reference timezone.
//
// SpecificDates (YYYY-MM-DD) overrides DaysOfWeek when non-empty. An empty
// DaysOfWeek, or one covering all seven days, means the rule applies daily.
type BudgetSchedule struct {
	ID           int64
	ShopID       int64
	CampaignID   int64
	CampaignKind CampaignKind
	Budget       int64 // integer currency units

	HourStart   int
	MinuteStart int
	HourEnd     int
	MinuteEnd   int

	DaysOfWeek    []int // time.Weekday values, 0 = Sunday
	SpecificDates []string

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StartMinute returns the window start as minute-of-day.
func (s *BudgetSchedule) StartMinute() int {
	return s.HourStart*60 + s.MinuteStart
}

// EndMinute returns the window end as minute-of-day.
func (s *BudgetSchedule) EndMinute() int {
	return s.HourEnd*60 + s.MinuteEnd
}
