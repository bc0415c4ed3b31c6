package engine

import (
	"context"

	"scadenze/internal/core"
	"scadenze/internal/ledger"
	"scadenze/internal/store"
)

// Mutation is one optimistic state change. Apply updates the in-memory store
// immediately, Commit issues the matching durable call, and Rollback restores
// the pre-mutation snapshot when Commit fails. Implementations carry their
// own snapshot; the engine only sequences the three steps.
type Mutation interface {
	Apply() error
	Rollback()
	Commit(ctx context.Context) error
}

type createMutation struct {
	store   *store.Store
	persist ledger.ObligationPersistence
	record  core.Obligation
}

func (m *createMutation) Apply() error {
	m.store.Insert(m.record)
	return nil
}

func (m *createMutation) Rollback() {
	m.store.Remove(m.record.ID)
}

func (m *createMutation) Commit(ctx context.Context) error {
	return m.persist.CreateObligation(ctx, m.record)
}

type updateMutation struct {
	store   *store.Store
	persist ledger.ObligationPersistence
	prev    core.Obligation
	next    core.Obligation
}

func (m *updateMutation) Apply() error {
	if !m.store.Replace(m.next) {
		return ErrNotFound
	}
	return nil
}

func (m *updateMutation) Rollback() {
	m.store.Replace(m.prev)
}

func (m *updateMutation) Commit(ctx context.Context) error {
	return m.persist.UpdateObligation(ctx, m.next)
}

type toggleMutation struct {
	store   *store.Store
	persist ledger.ObligationPersistence
	id      int64
	prev    bool
	next    bool
}

func (m *toggleMutation) Apply() error {
	if !m.store.SetActive(m.id, m.next) {
		return ErrNotFound
	}
	return nil
}

func (m *toggleMutation) Rollback() {
	m.store.SetActive(m.id, m.prev)
}

func (m *toggleMutation) Commit(ctx context.Context) error {
	return m.persist.ToggleObligation(ctx, m.id, m.next)
}

// advanceMutation moves the scheduling cursor, for both mark-paid and skip.
// When contribution is non-nil the payment is also tracked locally so a later
// delete can cascade it.
type advanceMutation struct {
	store        *store.Store
	persist      ledger.ObligationPersistence
	prev         core.Obligation
	next         core.Obligation
	contribution *core.Contribution
}

func (m *advanceMutation) Apply() error {
	if !m.store.Replace(m.next) {
		return ErrNotFound
	}
	if m.contribution != nil {
		m.store.AddContribution(*m.contribution)
	}
	return nil
}

func (m *advanceMutation) Rollback() {
	m.store.Replace(m.prev)
	if m.contribution != nil {
		m.store.RemoveContribution(m.prev.ID, m.contribution.PostingID)
	}
}

func (m *advanceMutation) Commit(ctx context.Context) error {
	return m.persist.UpdateObligation(ctx, m.next)
}
