package repository

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// txState is what a transaction carries through the context: the gorm handle
// and the hooks queued for after a successful commit.
type txState struct {
	db          *gorm.DB
	afterCommit []func()
}

func (st *txState) runHooks() {
	for _, fn := range st.afterCommit {
		fn()
	}
	st.afterCommit = nil
}

// TransactionManager runs a function inside one database transaction. The
// transaction travels in the context; repositories pick it up via GetDB.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	// Nested calls join the outer transaction and its hooks.
	if _, ok := ctx.Value(txKey).(*txState); ok {
		return fn(ctx)
	}

	st := &txState{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st.db = tx
		return fn(context.WithValue(ctx, txKey, st))
	})
	if err != nil {
		return err
	}
	st.runHooks()
	return nil
}

// AfterCommit defers fn until the transaction in ctx commits. Hooks are
// dropped on rollback. Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if st, ok := ctx.Value(txKey).(*txState); ok {
		st.afterCommit = append(st.afterCommit, fn)
		return
	}
	fn()
}

// GetDB returns the transaction handle from ctx, or rootDB outside one.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if st, ok := ctx.Value(txKey).(*txState); ok && st.db != nil {
		return st.db.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
