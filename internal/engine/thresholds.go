package engine

import "binwatch-backend/internal/models"

// alertConfig keeps custom thresholds and alert toggles in separate maps:
// a bin can have alerting enabled without a threshold, and the reverse.
type alertConfig struct {
	thresholds map[int]int
	enabled    map[int]bool
}

func newAlertConfig() *alertConfig {
	return &alertConfig{
		thresholds: make(map[int]int),
		enabled:    make(map[int]bool),
	}
}

// setThreshold stores a clamped threshold and turns alerting on for the bin.
func (c *alertConfig) setThreshold(binID, pct int) int {
	pct = models.ClampThreshold(pct)
	c.thresholds[binID] = pct
	c.enabled[binID] = true
	return pct
}

func (c *alertConfig) setEnabled(binID int, enabled bool) {
	c.enabled[binID] = enabled
}

func (c *alertConfig) threshold(binID int) (int, bool) {
	pct, ok := c.thresholds[binID]
	return pct, ok
}

func (c *alertConfig) isEnabled(binID int) bool {
	return c.enabled[binID]
}

// customTriggered is true when alerting is on and a configured threshold
// has been reached.
func (c *alertConfig) customTriggered(binID, fillLevel int) bool {
	pct, ok := c.thresholds[binID]
	return ok && c.enabled[binID] && fillLevel >= pct
}

func (c *alertConfig) clear() {
	c.thresholds = make(map[int]int)
	c.enabled = make(map[int]bool)
}

func (c *alertConfig) settings(bins []models.Bin) []models.AlertSetting {
	out := make([]models.AlertSetting, len(bins))
	for i, b := range bins {
		s := models.AlertSetting{BinID: b.ID, BinName: b.Name, Enabled: c.enabled[b.ID]}
		if pct, ok := c.thresholds[b.ID]; ok {
			p := pct
			s.Threshold = &p
		}
		out[i] = s
	}
	return out
}
