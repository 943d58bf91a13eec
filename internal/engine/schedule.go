package engine

import (
	"time"

	"binwatch-backend/internal/models"
)

// scheduleConfig maps bin id to reminder interval in hours. Only the
// uniform setForAll is used today; the per-bin map is kept as the data model.
type scheduleConfig struct {
	intervals map[int]int
	setAt     *time.Time
}

func newScheduleConfig() *scheduleConfig {
	return &scheduleConfig{intervals: make(map[int]int)}
}

func (c *scheduleConfig) active() bool {
	return len(c.intervals) > 0
}

func (c *scheduleConfig) setForAll(bins []models.Bin, hours int, now time.Time) int {
	hours = models.ClampScheduleHours(hours)
	next := make(map[int]int, len(bins))
	for _, b := range bins {
		next[b.ID] = hours
	}
	t := now
	c.intervals = next
	c.setAt = &t
	return hours
}

func (c *scheduleConfig) clear() {
	c.intervals = make(map[int]int)
	c.setAt = nil
}

func (c *scheduleConfig) view() models.Schedule {
	s := models.Schedule{
		Active:    c.active(),
		Intervals: make(map[int]int, len(c.intervals)),
	}
	for id, h := range c.intervals {
		s.Intervals[id] = h
	}
	if c.setAt != nil {
		t := *c.setAt
		s.SetAt = &t
	}
	return s
}

// reminders computes the next reminder per scheduled bin. The interval
// counts from the later of the last emptying and the schedule save.
func (c *scheduleConfig) reminders(states []models.BinState, now time.Time) []models.Reminder {
	out := []models.Reminder{}
	if c.setAt == nil {
		return out
	}
	for _, st := range states {
		hours, ok := c.intervals[st.BinID]
		if !ok {
			continue
		}
		from := *c.setAt
		if st.LastEmptiedAt != nil && st.LastEmptiedAt.After(from) {
			from = *st.LastEmptiedAt
		}
		due := from.Add(time.Duration(hours) * time.Hour)
		out = append(out, models.Reminder{
			BinID:         st.BinID,
			BinName:       st.Name,
			IntervalHours: hours,
			DueAt:         due,
			Overdue:       !now.Before(due),
		})
	}
	return out
}
