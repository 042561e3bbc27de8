package generation

import (
	"context"
	"sync"
	"time"

	"reelforge/internal/infra"
)

// Stream event types, in the order a subscriber can observe them.
const (
	StreamEventConnected = "connected"
	StreamEventProgress  = "progress"
	StreamEventComplete  = "complete"
	StreamEventError     = "error"
)

// StreamEvent is one push-channel message.
type StreamEvent struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Message  string    `json:"message,omitempty"`
}

type subscriber chan StreamEvent

// Broadcaster fans aggregate snapshots out to per-project subscribers on a
// fixed tick. Snapshots are recomputed from the job store each tick, so the
// stream is at most one tick stale and carries no state of its own.
type Broadcaster struct {
	agg      *Aggregator
	interval time.Duration
	logger   infra.Logger

	mu   sync.RWMutex
	subs map[string]map[subscriber]struct{}
}

// NewBroadcaster constructs the push adapter over the shared aggregator.
func NewBroadcaster(agg *Aggregator, interval time.Duration, logger infra.Logger) *Broadcaster {
	if interval <= 0 {
		interval = snapshotTTL
	}
	return &Broadcaster{
		agg:      agg,
		interval: interval,
		logger:   logger,
		subs:     make(map[string]map[subscriber]struct{}),
	}
}

// Subscribe registers a listener for the project and returns its event
// channel plus a cancel func. A connected event is delivered immediately.
func (b *Broadcaster) Subscribe(projectID string) (<-chan StreamEvent, func()) {
	ch := make(subscriber, 8)

	b.mu.Lock()
	if b.subs[projectID] == nil {
		b.subs[projectID] = make(map[subscriber]struct{})
	}
	b.subs[projectID][ch] = struct{}{}
	b.mu.Unlock()

	ch <- StreamEvent{Type: StreamEventConnected}

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[projectID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, projectID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Run ticks until the context ends, recomputing and broadcasting a snapshot
// for every project that currently has subscribers.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

func (b *Broadcaster) tick(ctx context.Context) {
	for _, projectID := range b.activeProjects() {
		snap, err := b.agg.ProjectSnapshot(ctx, projectID)
		if err != nil {
			b.logger.Error().Err(err).Str("project_id", projectID).Msg("snapshot recompute failed")
			b.broadcast(projectID, StreamEvent{Type: StreamEventError, Message: "progress unavailable"})
			continue
		}
		ev := StreamEvent{Type: StreamEventProgress, Snapshot: snap}
		if snap.Done && snap.TotalJobs > 0 {
			ev.Type = StreamEventComplete
		}
		b.broadcast(projectID, ev)
	}
}

func (b *Broadcaster) activeProjects() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	return ids
}

// broadcast delivers without blocking; a subscriber that cannot keep up drops
// ticks rather than stalling the loop, the next tick carries fresher state.
func (b *Broadcaster) broadcast(projectID string, ev StreamEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[projectID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// ActiveJobCount is the "is this generating" query UI affordances rely on.
// It is a pure read over the job store so every consumer agrees.
func (a *Aggregator) ActiveJobCount(ctx context.Context, projectID string) (int, error) {
	jobs, err := a.jobs.ListByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	active := 0
	for i := range jobs {
		if jobs[i].Status.Active() {
			active++
		}
	}
	return active, nil
}
