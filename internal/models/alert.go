package models

import "time"

const (
	MinThreshold     = 50
	MaxThreshold     = 100
	DefaultThreshold = 80

	MinScheduleHours     = 1
	MaxScheduleHours     = 168
	DefaultScheduleHours = 24
)

// ClampThreshold bounds a custom alert threshold to [50,100].
func ClampThreshold(pct int) int {
	if pct < MinThreshold {
		return MinThreshold
	}
	if pct > MaxThreshold {
		return MaxThreshold
	}
	return pct
}

// ClampScheduleHours bounds a reminder interval to [1,168].
func ClampScheduleHours(hours int) int {
	if hours < MinScheduleHours {
		return MinScheduleHours
	}
	if hours > MaxScheduleHours {
		return MaxScheduleHours
	}
	return hours
}

type AlertPriority string

const (
	PriorityNone   AlertPriority = "none"
	PriorityMedium AlertPriority = "medium"
	PriorityHigh   AlertPriority = "high"
)

type AlertReason string

const (
	ReasonCriticalBand    AlertReason = "critical_band"
	ReasonCustomThreshold AlertReason = "custom_threshold"
	ReasonWarningBand     AlertReason = "warning_band"
)

type Alert struct {
	BinID     int           `json:"bin_id"`
	BinName   string        `json:"bin_name"`
	FillLevel int           `json:"fill_level"`
	Priority  AlertPriority `json:"priority"`
	Reason    AlertReason   `json:"reason"`
}

// AlertSetting is the per-bin custom alert configuration. Threshold is nil
// when no custom threshold has been saved for the bin.
type AlertSetting struct {
	BinID     int    `json:"bin_id"`
	BinName   string `json:"bin_name"`
	Threshold *int   `json:"threshold,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// Schedule is a copy of the collection reminder configuration.
type Schedule struct {
	Active    bool        `json:"active"`
	Intervals map[int]int `json:"intervals"`
	SetAt     *time.Time  `json:"set_at,omitempty"`
}

// Reminder tells when a bin is next due for a collection reminder.
type Reminder struct {
	BinID         int       `json:"bin_id"`
	BinName       string    `json:"bin_name"`
	IntervalHours int       `json:"interval_hours"`
	DueAt         time.Time `json:"due_at"`
	Overdue       bool      `json:"overdue"`
}

type Attention struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
}

// NextCollection summarizes the bin most in need of emptying.
type NextCollection struct {
	BinID     int    `json:"bin_id,omitempty"`
	Timeframe string `json:"timeframe"`
	Message   string `json:"message"`
	Status    Status `json:"status"`
}

// ThresholdRequest is the request body for PUT /api/bins/{id}/threshold
type ThresholdRequest struct {
	Percentage int `json:"percentage"`
}

// AlertToggleRequest is the request body for the alert enable endpoints
type AlertToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleRequest is the request body for PUT /api/schedule
type ScheduleRequest struct {
	Hours   int  `json:"hours"`
	Confirm bool `json:"confirm"`
}

// FleetUsage totals stored volume against total capacity across all bins.
type FleetUsage struct {
	UsedLiters     float64 `json:"used_liters"`
	CapacityLiters float64 `json:"capacity_liters"`
	Percent        float64 `json:"percent"`
}
