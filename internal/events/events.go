// Package events fans engine state changes out to dashboards and feeds.
package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"binwatch-backend/internal/models"
)

type Type string

const (
	TypeReading     Type = "bin_reading"
	TypeBinEmptied  Type = "bin_emptied"
	TypeBinsEmptied Type = "bins_emptied"
	TypeThreshold   Type = "threshold_updated"
	TypeAlerts      Type = "alerts_updated"
	TypeSchedule    Type = "schedule_updated"
	TypeReset       Type = "reset"
)

// Event is published as a command commits. Bins holds the
// post-command state of the bins the command touched; Entries holds any
// ledger entries it appended. Seq increases by one per committed command.
type Event struct {
	Seq       uint64                `json:"seq"`
	Type      Type                  `json:"type"`
	Timestamp time.Time             `json:"timestamp"`
	Bins      []models.BinState     `json:"bins,omitempty"`
	Entries   []models.HistoryEntry `json:"entries,omitempty"`
	Message   string                `json:"message,omitempty"`
}

// Sink receives dispatched events.
type Sink interface {
	Name() string
	Send(ctx context.Context, e Event) error
}

const defaultSendTimeout = 5 * time.Second

// Dispatcher queues events and delivers them to every sink from a single
// goroutine, so publishers never wait on network I/O.
type Dispatcher struct {
	queue       chan Event
	sendTimeout time.Duration
	dropped     atomic.Int64

	mu    sync.RWMutex
	sinks []Sink
}

// NewDispatcher creates a Dispatcher with the given queue size.
func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		queue:       make(chan Event, buffer),
		sendTimeout: defaultSendTimeout,
		sinks:       sinks,
	}
}

// AddSink registers another sink.
func (d *Dispatcher) AddSink(s Sink) {
	d.mu.Lock()
	d.sinks = append(d.sinks, s)
	d.mu.Unlock()
	slog.Info("[EVENTS] Sink registered", "sink", s.Name())
}

// Publish enqueues an event. When the queue is full the event is dropped.
func (d *Dispatcher) Publish(e Event) {
	select {
	case d.queue <- e:
	default:
		d.dropped.Add(1)
		slog.Warn("[EVENTS] Queue full, dropping event", "type", e.Type)
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run delivers events until ctx is cancelled, then drains what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case e := <-d.queue:
			d.deliver(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-d.queue:
					d.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	d.mu.RLock()
	sinks := make([]Sink, len(d.sinks))
	copy(sinks, d.sinks)
	d.mu.RUnlock()

	for _, s := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		if err := s.Send(ctx, e); err != nil {
			slog.Error("[EVENTS] Sink failed", "sink", s.Name(), "type", e.Type, "error", err)
		}
		cancel()
	}
}
