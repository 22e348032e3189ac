package content

import (
	"errors"
	"time"
)

var (
	// ErrInvalidDueDate дата не в формате YYYY-MM-DD.
	ErrInvalidDueDate = errors.New("invalid due date")
	// ErrDueDateOutOfRange дата родов дальше срока беременности или давно прошла.
	ErrDueDateOutOfRange = errors.New("due date out of range")
)

const (
	pregnancyDays = 280
	// После предполагаемой даты трекер ещё две недели считается актуальным.
	overdueDays = 14
	day         = 24 * time.Hour
)

// Milestone событие беременности, привязанное к неделе.
type Milestone struct {
	Week  int    `json:"week"`
	Title string `json:"title"`
}

// DeliveryTracker состояние беременности на текущую дату.
type DeliveryTracker struct {
	DueDate       string      `json:"due_date"`
	Week          int         `json:"week"`
	Day           int         `json:"day"`
	Trimester     int         `json:"trimester"`
	DaysRemaining int         `json:"days_remaining"`
	Progress      float64     `json:"progress"`
	Upcoming      []Milestone `json:"upcoming"`
}

var milestones = []Milestone{
	{Week: 8, Title: "First prenatal visit and dating scan"},
	{Week: 12, Title: "NT scan and first-trimester screening"},
	{Week: 16, Title: "Start iron and calcium supplements"},
	{Week: 20, Title: "Anomaly scan"},
	{Week: 24, Title: "Glucose tolerance test"},
	{Week: 28, Title: "Tdap vaccine and third-trimester check"},
	{Week: 32, Title: "Growth scan"},
	{Week: 36, Title: "Pack the hospital bag"},
	{Week: 40, Title: "Due date"},
}

// Track считает неделю, триместр и ближайшие события по дате родов dueDate
// относительно now. Дата родов принимается за 280-й день беременности.
func Track(dueDate string, now time.Time) (*DeliveryTracker, error) {
	due, err := time.Parse("2006-01-02", dueDate)
	if err != nil {
		return nil, ErrInvalidDueDate
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	remaining := int(due.Sub(today) / day)
	elapsed := pregnancyDays - remaining
	if elapsed < 0 || remaining < -overdueDays {
		return nil, ErrDueDateOutOfRange
	}

	week := elapsed / 7
	t := &DeliveryTracker{
		DueDate:       dueDate,
		Week:          week,
		Day:           elapsed % 7,
		Trimester:     trimester(week),
		DaysRemaining: max(remaining, 0),
		Progress:      min(float64(elapsed)/pregnancyDays, 1),
		Upcoming:      make([]Milestone, 0, 3),
	}
	for _, m := range milestones {
		if m.Week > week && len(t.Upcoming) < 3 {
			t.Upcoming = append(t.Upcoming, m)
		}
	}
	return t, nil
}

func trimester(week int) int {
	switch {
	case week < 13:
		return 1
	case week < 27:
		return 2
	default:
		return 3
	}
}
