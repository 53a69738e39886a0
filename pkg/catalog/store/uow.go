package store

import (
	"context"

	"gorm.io/gorm"
)

// UnitOfWork is an explicit transaction handle. Store methods that accept
// a *UnitOfWork join the transaction when the handle is non-nil and run
// in autocommit mode otherwise, so callers compose multi-row pipelines
// without nested transaction bookkeeping.
type UnitOfWork struct {
	tx *gorm.DB
}

// RunInUnitOfWork executes fn inside a transaction. When uow is non-nil
// the function joins the caller's transaction instead of opening a new
// one, which makes participation flat rather than nested: commit and
// rollback always belong to the outermost caller.
func (s *GORMStore) RunInUnitOfWork(ctx context.Context, uow *UnitOfWork, fn func(uow *UnitOfWork) error) error {
	if uow != nil {
		return fn(uow)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UnitOfWork{tx: tx})
	})
}

// conn returns the connection for the given unit of work, falling back to
// the store's root connection for autocommit operations.
func (s *GORMStore) conn(ctx context.Context, uow *UnitOfWork) *gorm.DB {
	if uow != nil {
		return uow.tx
	}
	return s.db.WithContext(ctx)
}
