// Package memory provides in-memory implementations of the ledger ports.
// They back the default data backend and double as test collaborators.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"scadenze/internal/core"
	"scadenze/internal/ledger"
)

// Ledger is an in-memory posting store.
type Ledger struct {
	mu       sync.Mutex
	seq      int64
	postings map[string]ledger.Posting
}

var _ ledger.Store = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{postings: make(map[string]ledger.Posting)}
}

func (l *Ledger) CreatePosting(_ context.Context, p ledger.Posting) (string, error) {
	if err := p.Amount.Validate(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	p.ID = fmt.Sprintf("mem:%d", l.seq)
	l.postings[p.ID] = p
	return p.ID, nil
}

func (l *Ledger) DeletePosting(_ context.Context, postingID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.postings[postingID]; !ok {
		return fmt.Errorf("posting %s not found", postingID)
	}
	delete(l.postings, postingID)
	return nil
}

func (l *Ledger) ListPostings(_ context.Context) ([]ledger.Posting, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ledger.Posting, 0, len(l.postings))
	for _, p := range l.postings {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Persistence is an in-memory obligation persistence.
type Persistence struct {
	mu      sync.Mutex
	records map[int64]core.Obligation
}

var _ ledger.ObligationPersistence = (*Persistence)(nil)

func NewPersistence() *Persistence {
	return &Persistence{records: make(map[int64]core.Obligation)}
}

func (p *Persistence) CreateObligation(_ context.Context, o core.Obligation) error {
	if err := o.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.records[o.ID]; ok {
		return fmt.Errorf("obligation %d already exists", o.ID)
	}
	p.records[o.ID] = o
	return nil
}

func (p *Persistence) UpdateObligation(_ context.Context, o core.Obligation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.records[o.ID]; !ok {
		return fmt.Errorf("obligation %d not found", o.ID)
	}
	p.records[o.ID] = o
	return nil
}

func (p *Persistence) DeleteObligation(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.records[id]; !ok {
		return fmt.Errorf("obligation %d not found", id)
	}
	delete(p.records, id)
	return nil
}

func (p *Persistence) ToggleObligation(_ context.Context, id int64, active bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.records[id]
	if !ok {
		return fmt.Errorf("obligation %d not found", id)
	}
	o.IsActive = active
	p.records[id] = o
	return nil
}

func (p *Persistence) ListObligations(_ context.Context) ([]core.Obligation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.Obligation, 0, len(p.records))
	for _, o := range p.records {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
