// Package engine owns the authoritative bin monitoring state: fill levels,
// derived status, alert and schedule configuration and the history ledger.
//
// Every command runs under a single write lock covering both the state
// mutation and the ledger append, so readers observe either the state
// before a command or the state after it, never a mix. Events describing
// committed commands are published inside the same critical section and
// carry a sequence number, so sinks see them in commit order.
package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"binwatch-backend/internal/events"
	"binwatch-backend/internal/models"
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// Notifier receives events for committed commands. Publish must not block.
type Notifier interface {
	Publish(e events.Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(events.Event) {}

// ResetPolicy decides what CommandReset does with the history ledger.
type ResetPolicy int

const (
	RetainHistory ResetPolicy = iota
	ClearHistory
)

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithSeed sets startup fill levels by bin id. Reset returns to these.
func WithSeed(levels map[int]int) Option {
	return func(e *Engine) { e.seed = levels }
}

func WithResetPolicy(p ResetPolicy) Option {
	return func(e *Engine) { e.resetPolicy = p }
}

// Engine is safe for concurrent use.
type Engine struct {
	mu sync.RWMutex

	registry *Registry
	store    *stateStore
	alerts   *alertConfig
	schedule *scheduleConfig
	ledger   *ledger

	clock       Clock
	notifier    Notifier
	seed        map[int]int
	resetPolicy ResetPolicy

	// last published event
	seq uint64
}

// New creates an Engine over a fixed registry.
func New(registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		alerts:   newAlertConfig(),
		schedule: newScheduleConfig(),
		ledger:   newLedger(),
		clock:    time.Now,
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.store = newStateStore(registry, e.seed)
	return e
}

func (e *Engine) Registry() *Registry { return e.registry }

// Now reads the engine's clock.
func (e *Engine) Now() time.Time { return e.clock() }

// EmptyResult describes the outcome of emptying or collecting one bin.
// Entry is nil when the bin was already empty.
type EmptyResult struct {
	Bin          models.BinState      `json:"bin"`
	Entry        *models.HistoryEntry `json:"entry,omitempty"`
	AlreadyEmpty bool                 `json:"already_empty"`
	Message      string               `json:"message"`
}

type EmptyAllResult struct {
	Bins         []models.BinState     `json:"bins"`
	Entries      []models.HistoryEntry `json:"entries"`
	AlreadyEmpty bool                  `json:"already_empty"`
	Message      string                `json:"message"`
}

type ResetResult struct {
	Bins           []models.BinState `json:"bins"`
	HistoryCleared bool              `json:"history_cleared"`
}

// AlertStatus is the alert evaluation for one bin.
type AlertStatus struct {
	BinID     int                  `json:"bin_id"`
	BinName   string               `json:"bin_name"`
	FillLevel int                  `json:"fill_level"`
	Triggered bool                 `json:"triggered"`
	Priority  models.AlertPriority `json:"priority"`
	Reason    models.AlertReason   `json:"reason,omitempty"`
}

// ReadAll returns every bin's state in registry order.
func (e *Engine) ReadAll() []models.BinState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.readAll()
}

// Read returns one bin's state.
func (e *Engine) Read(binID int) (models.BinState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.read(binID)
}

// ApplyReading records a new fill level. Out-of-range readings are clamped.
func (e *Engine) ApplyReading(binID, fillLevel int) (models.BinState, error) {
	e.mu.Lock()
	st, err := e.store.applyReading(binID, fillLevel)
	if err != nil {
		e.mu.Unlock()
		return models.BinState{}, err
	}
	e.publishLocked(events.TypeReading, []models.BinState{st}, nil, "")
	e.mu.Unlock()

	if st.FillLevel != fillLevel {
		slog.Debug("[READING] Fill level clamped", "bin_id", binID, "raw", fillLevel, "stored", st.FillLevel)
	}
	return st, nil
}

// CommandEmptyBin empties one bin and records an Emptied entry with the
// level it had before. A bin that is already empty is left untouched and
// reported as AlreadyEmpty.
func (e *Engine) CommandEmptyBin(binID int) (EmptyResult, error) {
	return e.emptyOne(binID, models.ActionEmptied)
}

// CommandCollectBin is CommandEmptyBin recorded as a collection.
func (e *Engine) CommandCollectBin(binID int) (EmptyResult, error) {
	return e.emptyOne(binID, models.ActionCollected)
}

func (e *Engine) emptyOne(binID int, action models.Action) (EmptyResult, error) {
	e.mu.Lock()
	res, err := e.emptyOneLocked(binID, action)
	if err == nil && !res.AlreadyEmpty {
		e.publishLocked(events.TypeBinEmptied, []models.BinState{res.Bin}, []models.HistoryEntry{*res.Entry}, res.Message)
	}
	e.mu.Unlock()
	if err != nil {
		return EmptyResult{}, err
	}

	if res.AlreadyEmpty {
		slog.Info("[EMPTY-BIN] Bin already empty", "bin_id", binID)
		return res, nil
	}

	slog.Info("[EMPTY-BIN] Bin emptied",
		"bin_id", binID,
		"action", action,
		"fill_level", res.Entry.FillLevel,
		"entry_id", res.Entry.ID,
	)
	return res, nil
}

func (e *Engine) emptyOneLocked(binID int, action models.Action) (EmptyResult, error) {
	bin, ok := e.registry.Lookup(binID)
	if !ok {
		return EmptyResult{}, &NotFoundError{BinID: binID}
	}
	before, err := e.store.read(binID)
	if err != nil {
		return EmptyResult{}, err
	}
	if before.FillLevel == 0 {
		return EmptyResult{
			Bin:          before,
			AlreadyEmpty: true,
			Message:      fmt.Sprintf("%s is already empty", bin.Name),
		}, nil
	}

	now := e.clock()
	after, err := e.store.emptyBin(binID, now)
	if err != nil {
		return EmptyResult{}, err
	}
	entry := e.ledger.append(bin, action, before.FillLevel, now)

	verb := "emptied"
	if action == models.ActionCollected {
		verb = "collected"
	}
	return EmptyResult{
		Bin:     after,
		Entry:   &entry,
		Message: fmt.Sprintf("%s %s at %s at %d%% capacity", bin.Name, verb, now.Format("3:04 PM"), before.FillLevel),
	}, nil
}

// CommandEmptyAll empties every bin holding waste and appends one Emptied
// entry per bin, in registry order. When nothing holds waste it is a no-op.
func (e *Engine) CommandEmptyAll() EmptyAllResult {
	e.mu.Lock()
	res := e.emptyAllLocked()
	if !res.AlreadyEmpty {
		e.publishLocked(events.TypeBinsEmptied, res.Bins, res.Entries, res.Message)
	}
	e.mu.Unlock()

	if res.AlreadyEmpty {
		slog.Info("[EMPTY-ALL] All bins already empty")
		return res
	}

	slog.Info("[EMPTY-ALL] Bins emptied", "count", len(res.Entries))
	return res
}

func (e *Engine) emptyAllLocked() EmptyAllResult {
	before := e.store.readAll()
	var withWaste []models.BinState
	for _, st := range before {
		if st.FillLevel > 0 {
			withWaste = append(withWaste, st)
		}
	}
	if len(withWaste) == 0 {
		return EmptyAllResult{
			Bins:         before,
			Entries:      []models.HistoryEntry{},
			AlreadyEmpty: true,
			Message:      "All bins are already empty",
		}
	}

	now := e.clock()
	e.store.emptyAll(now)

	entries := make([]models.HistoryEntry, 0, len(withWaste))
	names := make([]string, 0, len(withWaste))
	for _, st := range withWaste {
		bin, _ := e.registry.Lookup(st.BinID)
		entries = append(entries, e.ledger.append(bin, models.ActionEmptied, st.FillLevel, now))
		names = append(names, bin.Name)
	}

	return EmptyAllResult{
		Bins:    e.store.readAll(),
		Entries: entries,
		Message: fmt.Sprintf("All bins (%s) emptied at %s", strings.Join(names, ", "), now.Format("3:04 PM")),
	}
}

// CommandReset restores startup fill levels and clears alert and schedule
// configuration. The ledger is cleared only under ClearHistory.
func (e *Engine) CommandReset() ResetResult {
	e.mu.Lock()
	e.store.reset()
	e.alerts.clear()
	e.schedule.clear()
	cleared := e.resetPolicy == ClearHistory
	if cleared {
		e.ledger.clear()
	}
	res := ResetResult{Bins: e.store.readAll(), HistoryCleared: cleared}
	e.publishLocked(events.TypeReset, res.Bins, nil, "")
	e.mu.Unlock()

	slog.Info("[RESET] Engine reset", "history_cleared", cleared)
	return res
}

// SetThreshold saves a clamped custom threshold and enables alerting for
// the bin.
func (e *Engine) SetThreshold(binID, percentage int) (models.AlertSetting, error) {
	e.mu.Lock()
	bin, ok := e.registry.Lookup(binID)
	if !ok {
		e.mu.Unlock()
		return models.AlertSetting{}, &NotFoundError{BinID: binID}
	}
	pct := e.alerts.setThreshold(binID, percentage)
	setting := models.AlertSetting{BinID: binID, BinName: bin.Name, Threshold: &pct, Enabled: true}
	e.publishLocked(events.TypeThreshold, nil, nil, fmt.Sprintf("%s alert threshold set to %d%%", bin.Name, pct))
	e.mu.Unlock()

	if pct != percentage {
		slog.Debug("[THRESHOLD] Threshold clamped", "bin_id", binID, "raw", percentage, "stored", pct)
	}
	slog.Info("[THRESHOLD] Threshold saved", "bin_id", binID, "percentage", pct)
	return setting, nil
}

// SetAlertEnabled turns custom alerting on or off for one bin.
func (e *Engine) SetAlertEnabled(binID int, enabled bool) (models.AlertSetting, error) {
	e.mu.Lock()
	bin, ok := e.registry.Lookup(binID)
	if !ok {
		e.mu.Unlock()
		return models.AlertSetting{}, &NotFoundError{BinID: binID}
	}
	e.alerts.setEnabled(binID, enabled)
	setting := e.alerts.settings([]models.Bin{bin})[0]
	e.publishLocked(events.TypeAlerts, nil, nil, "")
	e.mu.Unlock()

	return setting, nil
}

// SetAllAlertsEnabled sets the same alert flag for every registered bin.
func (e *Engine) SetAllAlertsEnabled(enabled bool) []models.AlertSetting {
	e.mu.Lock()
	bins := e.registry.Bins()
	for _, b := range bins {
		e.alerts.setEnabled(b.ID, enabled)
	}
	settings := e.alerts.settings(bins)
	e.publishLocked(events.TypeAlerts, nil, nil, "Alert settings updated successfully")
	e.mu.Unlock()

	slog.Info("[ALERTS] Alert settings updated", "enabled", enabled, "bins", len(bins))
	return settings
}

// AlertSettings returns the custom alert configuration in registry order.
func (e *Engine) AlertSettings() []models.AlertSetting {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.alerts.settings(e.registry.bins)
}

// IsAlertTriggered is true at or above the critical band, or when the
// bin's custom threshold is enabled and reached.
func (e *Engine) IsAlertTriggered(binID int) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, err := e.store.read(binID)
	if err != nil {
		return false, err
	}
	return alertTriggered(e.alerts, st), nil
}

// AlertStatus evaluates both the trigger and the priority rule for a bin.
func (e *Engine) AlertStatus(binID int) (AlertStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, err := e.store.read(binID)
	if err != nil {
		return AlertStatus{}, err
	}
	p, reason := classifyAlert(e.alerts, st)
	return AlertStatus{
		BinID:     st.BinID,
		BinName:   st.Name,
		FillLevel: st.FillLevel,
		Triggered: alertTriggered(e.alerts, st),
		Priority:  p,
		Reason:    reason,
	}, nil
}

// Alerts lists every bin whose alert priority is not none.
func (e *Engine) Alerts() []models.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return collectAlerts(e.alerts, e.store.readAll())
}

func (e *Engine) HasActiveSchedule() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.schedule.active()
}

// SetScheduleForAll writes one clamped interval for every bin. If a
// schedule is already active the caller must pass confirmOverwrite, else
// ErrScheduleConfirmationRequired is returned and nothing changes.
func (e *Engine) SetScheduleForAll(hours int, confirmOverwrite bool) (models.Schedule, error) {
	e.mu.Lock()
	if e.schedule.active() && !confirmOverwrite {
		current := e.schedule.view()
		e.mu.Unlock()
		return current, ErrScheduleConfirmationRequired
	}
	stored := e.schedule.setForAll(e.registry.bins, hours, e.clock())
	view := e.schedule.view()
	e.publishLocked(events.TypeSchedule, nil, nil, fmt.Sprintf("Collection reminder every %d hours", stored))
	e.mu.Unlock()

	slog.Info("[SCHEDULE] Collection schedule saved", "hours", stored, "overwrite", confirmOverwrite)
	return view, nil
}

func (e *Engine) Schedule() models.Schedule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.schedule.view()
}

// Reminders returns when each scheduled bin is next due.
func (e *Engine) Reminders() []models.Reminder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.schedule.reminders(e.store.readAll(), e.clock())
}

// Query returns ledger entries inside the window, most recent first.
func (e *Engine) Query(w Window) []models.HistoryEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.query(w, e.clock())
}

// HistoryLen is the number of entries currently in the ledger.
func (e *Engine) HistoryLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.len()
}

// Seq is the sequence number of the last published event.
func (e *Engine) Seq() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.seq
}

// publishLocked must be called with the write lock held. The notifier
// never blocks, so events leave the engine in commit order.
func (e *Engine) publishLocked(t events.Type, bins []models.BinState, entries []models.HistoryEntry, msg string) {
	e.seq++
	e.notifier.Publish(events.Event{
		Seq:       e.seq,
		Type:      t,
		Timestamp: e.clock(),
		Bins:      bins,
		Entries:   entries,
		Message:   msg,
	})
}
