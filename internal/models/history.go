package models

import "time"

type Action string

const (
	ActionEmptied   Action = "Emptied"
	ActionCollected Action = "Collected"
)

// HistoryEntry is an immutable ledger record. Bin name, fill level and
// volume are snapshots taken when the event happened.
type HistoryEntry struct {
	ID           int64     `json:"id"`
	BinID        int       `json:"bin_id"`
	BinName      string    `json:"bin_name"`
	Action       Action    `json:"action"`
	FillLevel    int       `json:"fill_level"`
	VolumeLiters float64   `json:"volume_liters"`
	Timestamp    time.Time `json:"timestamp"`
}

// HistoryEntryResponse is what we send to the client
type HistoryEntryResponse struct {
	ID           int64   `json:"id"`
	BinID        int     `json:"binId"`
	BinName      string  `json:"binName"`
	Action       Action  `json:"action"`
	FillLevel    int     `json:"fillLevel"`
	VolumeLiters float64 `json:"volumeLiters"`
	TimestampIso string  `json:"timestampIso"`
	Date         string  `json:"date"` // formatted date
}

// ToHistoryEntryResponse converts a HistoryEntry to HistoryEntryResponse
func (e HistoryEntry) ToHistoryEntryResponse() HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:           e.ID,
		BinID:        e.BinID,
		BinName:      e.BinName,
		Action:       e.Action,
		FillLevel:    e.FillLevel,
		VolumeLiters: e.VolumeLiters,
		TimestampIso: e.Timestamp.Format(time.RFC3339),
		Date:         e.Timestamp.Format("Jan 02, 03:04 PM"),
	}
}

func ToHistoryEntryResponses(entries []HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = e.ToHistoryEntryResponse()
	}
	return out
}
