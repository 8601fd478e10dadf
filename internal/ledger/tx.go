package ledger

// Tx journals ledger mutations so a multi-transfer operation either
// applies completely or not at all. Every mutating primitive records
// an undo closure before applying its change; Rollback replays the
// journal in reverse. Rollback after Commit is a no-op, so the usual
// shape is:
//
//	tx := l.Begin()
//	defer tx.Rollback()
//	... transfers ...
//	tx.Commit()
type Tx struct {
	undo []func()
	done bool
}

// Begin starts a transaction journal.
func (l *Ledger) Begin() *Tx {
	return &Tx{}
}

func (t *Tx) record(fn func()) {
	t.undo = append(t.undo, fn)
}

// Commit discards the journal, making all changes final.
func (t *Tx) Commit() {
	t.done = true
	t.undo = nil
}

// Rollback undoes every journaled change unless already committed.
func (t *Tx) Rollback() {
	if t.done {
		return
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.done = true
}
