package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/plaidbridge/pkg/db"
	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
)

// Base carries the connection shared by the storage repositories and the
// translation from driver errors to API error codes.
type Base struct {
	db *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{db: conn}
}

// DB returns the connection scoped to ctx. A nil ctx yields the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Transaction runs fn in a transaction bound to ctx. Returning an error rolls back.
func (b Base) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.DB(ctx).Transaction(fn)
}

// Labels names the messages Classify attaches for each outcome.
type Labels struct {
	NotFound  string
	Duplicate string
	Op        string
}

// Classify maps a storage error to a typed error: missing rows become
// NOT_FOUND, unique violations CONFLICT, and anything else INTERNAL with the
// Op label. Empty labels disable the matching branch.
func Classify(err error, labels Labels) error {
	switch {
	case err == nil:
		return nil
	case labels.NotFound != "" && db.IsNotFound(err):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, labels.NotFound)
	case labels.Duplicate != "" && db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, labels.Duplicate)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, labels.Op)
	}
}
