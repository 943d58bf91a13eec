package models

import (
	"math"
	"time"
)

// Fixed deployment constants for the bin fleet.
const (
	BinCount              = 4
	DefaultCapacityLiters = 5.0

	CriticalFillLevel = 90
	WarningFillLevel  = 75

	MinFillLevel = 0
	MaxFillLevel = 100
)

type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// StatusFor derives the status band from a fill level.
func StatusFor(fillLevel int) Status {
	switch {
	case fillLevel >= CriticalFillLevel:
		return StatusCritical
	case fillLevel >= WarningFillLevel:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// ClampFillLevel bounds a reading to [0,100].
func ClampFillLevel(level int) int {
	if level < MinFillLevel {
		return MinFillLevel
	}
	if level > MaxFillLevel {
		return MaxFillLevel
	}
	return level
}

// VolumeLiters is the occupied volume for a fill level, rounded to centiliters.
func VolumeLiters(fillLevel int, capacityLiters float64) float64 {
	v := float64(fillLevel) / 100 * capacityLiters
	return math.Round(v*100) / 100
}

// Bin is a registry record. It never changes after startup.
type Bin struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	CapacityLiters float64 `json:"capacity_liters"`
	Color          string  `json:"color"`
}

// BinState is a point-in-time view of one bin. Status and VolumeLiters are
// filled in from FillLevel when the state is read.
type BinState struct {
	BinID          int        `json:"bin_id"`
	Name           string     `json:"name"`
	Color          string     `json:"color"`
	CapacityLiters float64    `json:"capacity_liters"`
	FillLevel      int        `json:"fill_level"`
	Status         Status     `json:"status"`
	VolumeLiters   float64    `json:"volume_liters"`
	LastEmptiedAt  *time.Time `json:"last_emptied_at,omitempty"`
}

// BinStateResponse is what we send to the client with ISO timestamps
type BinStateResponse struct {
	BinID            int     `json:"bin_id"`
	Name             string  `json:"name"`
	Color            string  `json:"color"`
	CapacityLiters   float64 `json:"capacity_liters"`
	FillLevel        int     `json:"fill_level"`
	Status           Status  `json:"status"`
	VolumeLiters     float64 `json:"volume_liters"`
	LastEmptiedIso   *string `json:"lastEmptiedIso,omitempty"`
	LastEmptiedLabel string  `json:"last_emptied"`
}

// ToBinStateResponse converts a BinState to BinStateResponse
func (s BinState) ToBinStateResponse() BinStateResponse {
	resp := BinStateResponse{
		BinID:            s.BinID,
		Name:             s.Name,
		Color:            s.Color,
		CapacityLiters:   s.CapacityLiters,
		FillLevel:        s.FillLevel,
		Status:           s.Status,
		VolumeLiters:     s.VolumeLiters,
		LastEmptiedLabel: "never",
	}

	if s.LastEmptiedAt != nil {
		iso := s.LastEmptiedAt.Format(time.RFC3339)
		resp.LastEmptiedIso = &iso
		resp.LastEmptiedLabel = s.LastEmptiedAt.Format("Jan 02, 3:04 PM")
	}

	return resp
}

// ToBinStateResponses converts a slice in order.
func ToBinStateResponses(states []BinState) []BinStateResponse {
	out := make([]BinStateResponse, len(states))
	for i, s := range states {
		out[i] = s.ToBinStateResponse()
	}
	return out
}

// ReadingRequest is the request body for POST /api/bins/{id}/readings
type ReadingRequest struct {
	FillLevel int `json:"fill_level"`
}
