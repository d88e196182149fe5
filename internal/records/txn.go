package records

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Txn stages day replacements on top of the snapshot taken at Begin.
// Nothing is visible to readers until Commit succeeds. A Txn is not safe for
// concurrent use; it must end with Commit or Discard.
type Txn struct {
	store  *Store
	base   *Snapshot
	staged map[string]DayEntry // nil/empty value = delete date
	done   bool
}

// Entry returns the date's entry as seen by this transaction
func (t *Txn) Entry(date string) DayEntry {
	if entry, ok := t.staged[date]; ok {
		return entry.Clone()
	}
	return t.base.Entry(date)
}

// ReplaceDay stages a full replacement of the date's entry. An empty entry
// stages deletion of the date.
func (t *Txn) ReplaceDay(date string, entry DayEntry) error {
	if t.done {
		return ErrTxnClosed
	}
	if err := ValidateDate(date); err != nil {
		return err
	}
	if err := entry.validate(); err != nil {
		return err
	}
	t.staged[date] = entry.Clone()
	return nil
}

// SetEntry stages one person's absence on top of the date's current entry
func (t *Txn) SetEntry(date, person string, typ AbsenceType) error {
	if t.done {
		return ErrTxnClosed
	}
	if err := ValidateDate(date); err != nil {
		return err
	}
	if err := ValidatePerson(person); err != nil {
		return err
	}
	if !typ.Valid() {
		return &ValidationError{Field: "type", Value: typ.String(), Err: ErrInvalidType}
	}
	entry := t.Entry(date)
	entry[person] = typ
	t.staged[date] = entry
	return nil
}

// RemoveEntry stages removal of one person from the date. Removing the last
// person deletes the date.
func (t *Txn) RemoveEntry(date, person string) error {
	if t.done {
		return ErrTxnClosed
	}
	if err := ValidateDate(date); err != nil {
		return err
	}
	entry := t.Entry(date)
	delete(entry, person)
	t.staged[date] = entry
	return nil
}

// Discard abandons the staged changes. Safe to call after Commit.
func (t *Txn) Discard() {
	if t.done {
		return
	}
	t.done = true
	t.store.release()
}

// Commit writes the full staged state to disk and publishes it. The commit is
// bounded by the store's commit timeout; on timeout the transaction slot is
// released and ErrCommitTimeout is returned unless the rename had already
// happened. On failure neither the file nor the in-memory state change.
func (t *Txn) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxnClosed
	}
	t.done = true
	s := t.store
	defer s.release()

	next := t.base.apply(t.staged)
	data, err := encodeSnapshot(next)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	w := &pendingWrite{}
	result := make(chan error, 1)
	go func() {
		result <- s.persist(data, w)
	}()

	select {
	case err := <-result:
		if err != nil {
			s.logger.Error("Commit failed, state rolled back",
				zap.String("file", s.path),
				zap.Int("staged_dates", len(t.staged)),
				zap.Error(err))
			return err
		}
	case <-ctx.Done():
		if w.abandon() {
			s.logger.Error("Commit timed out, state rolled back",
				zap.String("file", s.path),
				zap.Duration("timeout", s.commitTimeout))
			return fmt.Errorf("%w: %v", ErrCommitTimeout, ctx.Err())
		}
		// rename already landed; the write is durable
	}

	s.current.Store(next)
	s.logger.Info("Records committed",
		zap.String("file", s.path),
		zap.Int("staged_dates", len(t.staged)),
		zap.Int("dates", next.Len()))
	return nil
}

// Update runs fn inside a transaction and commits it. fn errors discard the
// transaction.
func (s *Store) Update(ctx context.Context, fn func(*Txn) error) error {
	txn, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(txn); err != nil {
		txn.Discard()
		return err
	}
	return txn.Commit(ctx)
}

// ReplaceDay is a single-day transaction: Begin, ReplaceDay, Commit
func (s *Store) ReplaceDay(ctx context.Context, date string, entry DayEntry) error {
	return s.Update(ctx, func(txn *Txn) error {
		return txn.ReplaceDay(date, entry)
	})
}

// IsTimeout reports whether err is a commit watchdog timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrCommitTimeout)
}
