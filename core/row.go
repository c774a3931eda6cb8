package core

import "context"

// Row is the type-erased view of an entity handled by a Model.
//
// Entities become rows by embedding Base:
//
//	type User struct {
//	    core.Base
//	    ID    int64  `db:"id"`
//	    Email string `db:"email"`
//	}
type Row interface {
	// Transaction returns the transaction the row was last read or written
	// through, or nil once that transaction has finished.
	Transaction() *Tx
	// IsPersisted reports whether the row exists in the database.
	IsPersisted() bool
	// IsDeleted reports whether the row was deleted through its model.
	IsDeleted() bool

	base() *Base
}

// Base carries the per-row state the ORM needs. Embed it in every entity
// used with a Model.
//
// Base is not safe for concurrent use: a row belongs to one goroutine at a time.
type Base struct {
	tx        *Tx
	persisted bool
	deleted   bool
}

func (b *Base) base() *Base { return b }

// Transaction returns the row's active transaction, if any.
func (b *Base) Transaction() *Tx {
	return b.tx
}

// IsPersisted reports whether the row exists in the database.
func (b *Base) IsPersisted() bool {
	return b.persisted
}

// IsDeleted reports whether the row was deleted.
func (b *Base) IsDeleted() bool {
	return b.deleted
}

// UseTransaction binds the row to tx until tx commits or rolls back.
func (b *Base) UseTransaction(tx *Tx) {
	if tx == nil || b.tx == tx {
		return
	}
	b.tx = tx

	release := func(context.Context) error {
		if b.tx == tx {
			b.tx = nil
		}
		return nil
	}
	tx.After(TxCommit, release)
	tx.After(TxRollback, release)
}

func (b *Base) setPersisted(persisted bool) {
	b.persisted = persisted
}

func (b *Base) setDeleted() {
	b.deleted = true
}

// asRow returns the Row view of an entity pointer.
func asRow(doc any) (Row, bool) {
	row, ok := doc.(Row)
	return row, ok
}
