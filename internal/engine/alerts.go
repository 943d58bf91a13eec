package engine

import "binwatch-backend/internal/models"

// alertTriggered: the critical band always triggers; otherwise the bin's
// custom threshold must be enabled and reached.
func alertTriggered(cfg *alertConfig, st models.BinState) bool {
	return st.FillLevel >= models.CriticalFillLevel || cfg.customTriggered(st.BinID, st.FillLevel)
}

// classifyAlert applies the alert priority rule to one bin.
func classifyAlert(cfg *alertConfig, st models.BinState) (models.AlertPriority, models.AlertReason) {
	switch {
	case st.FillLevel >= models.CriticalFillLevel:
		return models.PriorityHigh, models.ReasonCriticalBand
	case cfg.customTriggered(st.BinID, st.FillLevel):
		return models.PriorityHigh, models.ReasonCustomThreshold
	case st.FillLevel >= models.WarningFillLevel &&
		(cfg.isEnabled(st.BinID) || st.Status == models.StatusWarning || st.Status == models.StatusCritical):
		return models.PriorityMedium, models.ReasonWarningBand
	default:
		return models.PriorityNone, ""
	}
}

func collectAlerts(cfg *alertConfig, states []models.BinState) []models.Alert {
	alerts := []models.Alert{}
	for _, st := range states {
		p, reason := classifyAlert(cfg, st)
		if p == models.PriorityNone {
			continue
		}
		alerts = append(alerts, models.Alert{
			BinID:     st.BinID,
			BinName:   st.Name,
			FillLevel: st.FillLevel,
			Priority:  p,
			Reason:    reason,
		})
	}
	return alerts
}
