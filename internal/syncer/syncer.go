// Package syncer assembles the data a server sync would send. Nothing is
// transmitted: there is no sync server, so Sync builds the payload, reports
// what it holds and marks the run as done.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/seastarlegal/seastar/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AutoSyncKey is the setting that enables sync.
const AutoSyncKey = "autoSync"

// Source is the part of the record store the syncer reads.
type Source interface {
	Collections() []string
	GetAll(ctx context.Context, collection string) ([]model.Record, error)
	Setting(ctx context.Context, key string) (any, bool, error)
}

type Payload struct {
	ID        uuid.UUID                 `json:"id"`
	Timestamp string                    `json:"timestamp"`
	Data      map[string][]model.Record `json:"data"`
}

type Result struct {
	Synced    bool           `json:"synced"`
	Skipped   bool           `json:"skipped,omitempty"`
	Timestamp string         `json:"timestamp"`
	PayloadID string         `json:"payloadId,omitempty"`
	Counts    map[string]int `json:"counts,omitempty"`
}

type Syncer struct {
	src     Source
	log     *zap.Logger
	now     func() time.Time
	workers int
}

type Option func(*Syncer)

func WithLogger(l *zap.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// WithWorkers bounds how many collections are read at once.
func WithWorkers(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.workers = n
		}
	}
}

func New(src Source, opts ...Option) *Syncer {
	s := &Syncer{src: src, log: zap.NewNop(), now: time.Now, workers: 4}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Payload reads every collection into one payload.
func (s *Syncer) Payload(ctx context.Context) (*Payload, error) {
	p := &Payload{
		ID:        uuid.New(),
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Data:      map[string][]model.Record{},
	}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, name := range s.src.Collections() {
		g.Go(func() error {
			records, err := s.src.GetAll(ctx, name)
			if err != nil {
				return fmt.Errorf("reading %s: %w", name, err)
			}
			mu.Lock()
			p.Data[name] = records
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

// Enabled reports the autoSync setting. A missing setting counts as enabled.
func (s *Syncer) Enabled(ctx context.Context) (bool, error) {
	v, ok, err := s.src.Setting(ctx, AutoSyncKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	b, isBool := v.(bool)
	return !isBool || b, nil
}

// Sync builds the payload unless autoSync is off and force is unset.
func (s *Syncer) Sync(ctx context.Context, force bool) (*Result, error) {
	ts := s.now().UTC().Format(time.RFC3339)
	if !force {
		enabled, err := s.Enabled(ctx)
		if err != nil {
			return nil, err
		}
		if !enabled {
			s.log.Info("sync skipped, autoSync is off")
			return &Result{Skipped: true, Timestamp: ts}, nil
		}
	}

	p, err := s.Payload(ctx)
	if err != nil {
		return nil, fmt.Errorf("building sync payload: %w", err)
	}
	counts := make(map[string]int, len(p.Data))
	total := 0
	for name, records := range p.Data {
		counts[name] = len(records)
		total += len(records)
	}
	s.log.Info("sync payload ready", zap.String("payload", p.ID.String()), zap.Int("records", total))
	return &Result{Synced: true, Timestamp: ts, PayloadID: p.ID.String(), Counts: counts}, nil
}
