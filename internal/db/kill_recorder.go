package db

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/combatcore/internal/model"
)

const (
	defaultKillBuffer = 256
	killFlushBatch    = 64
)

// KillStore persists kill credit.
type KillStore interface {
	RecordKills(ctx context.Context, kills []KillCredit) error
}

// KillRecorder takes kill credit from the shard goroutine and writes it in
// the background. UnitKilled never blocks: when the queue is full the kill
// is dropped and counted.
type KillRecorder struct {
	store     KillStore
	encounter uuid.UUID
	queue     chan KillCredit
	dropped   atomic.Int64
	now       func() time.Time
}

// NewKillRecorder creates a recorder for encounter. buffer <= 0 selects the
// default queue size.
func NewKillRecorder(store KillStore, encounter uuid.UUID, buffer int) *KillRecorder {
	if buffer <= 0 {
		buffer = defaultKillBuffer
	}
	return &KillRecorder{
		store:     store,
		encounter: encounter,
		queue:     make(chan KillCredit, buffer),
		now:       time.Now,
	}
}

// UnitKilled queues kill credit for victim.
func (r *KillRecorder) UnitKilled(killer model.ObjectID, victim *model.Combatant) {
	k := KillCredit{
		Encounter:   r.encounter,
		Killer:      killer,
		Victim:      victim.ID(),
		VictimName:  victim.Name(),
		VictimLevel: victim.Level(),
		KilledAt:    r.now(),
	}
	select {
	case r.queue <- k:
	default:
		r.dropped.Add(1)
		slog.Warn("kill credit queue full, dropping",
			"encounter", r.encounter,
			"victim", k.Victim)
	}
}

// Dropped returns how many kills were lost to a full queue.
func (r *KillRecorder) Dropped() int64 { return r.dropped.Load() }

// Run writes queued kills until ctx is cancelled, then flushes what is left.
func (r *KillRecorder) Run(ctx context.Context) error {
	batch := make([]KillCredit, 0, killFlushBatch)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := r.store.RecordKills(ctx, batch); err != nil {
			slog.Error("recording kill credit",
				"encounter", r.encounter,
				"kills", len(batch),
				"error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			drain := context.WithoutCancel(ctx)
			for {
				select {
				case k := <-r.queue:
					batch = append(batch, k)
					if len(batch) == killFlushBatch {
						flush(drain)
					}
				default:
					flush(drain)
					return nil
				}
			}
		case k := <-r.queue:
			batch = append(batch, k)
		drainReady:
			for len(batch) < killFlushBatch {
				select {
				case k := <-r.queue:
					batch = append(batch, k)
				default:
					break drainReady
				}
			}
			flush(ctx)
		}
	}
}
