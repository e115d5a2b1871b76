package items

import (
	"context"
	"time"

	"github.com/angelmondragon/plaidbridge/internal/repo"
	"github.com/angelmondragon/plaidbridge/pkg/db/models"
	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
	"github.com/angelmondragon/plaidbridge/pkg/pagination"
	"gorm.io/gorm"
)

func itemLabels(op string) repo.Labels {
	return repo.Labels{NotFound: "item not found", Op: op}
}

// Repository persists linked Plaid items.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to item operations.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Create inserts a new item. A second row for the same Plaid item_id is a conflict.
func (r *Repository) Create(ctx context.Context, item *models.PlaidItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	return repo.Classify(r.DB(ctx).Create(item).Error, repo.Labels{Duplicate: "item already linked", Op: "create item"})
}

// FindByItemID loads the item with the given Plaid item_id.
func (r *Repository) FindByItemID(ctx context.Context, itemID string) (*models.PlaidItem, error) {
	var item models.PlaidItem
	if err := r.DB(ctx).Where("item_id = ?", itemID).First(&item).Error; err != nil {
		return nil, repo.Classify(err, itemLabels("load item"))
	}
	return &item, nil
}

// ListByUser returns one page of a user's items ordered by creation time.
func (r *Repository) ListByUser(ctx context.Context, clientUserID string, params pagination.Params) (pagination.Page[models.PlaidItem], error) {
	return r.list(ctx, r.DB(ctx).Where("client_user_id = ?", clientUserID), params)
}

// ListAll pages through every stored item regardless of owner.
func (r *Repository) ListAll(ctx context.Context, params pagination.Params) (pagination.Page[models.PlaidItem], error) {
	return r.list(ctx, r.DB(ctx), params)
}

func (r *Repository) list(ctx context.Context, query *gorm.DB, params pagination.Params) (pagination.Page[models.PlaidItem], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.PlaidItem]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		clause, args := cursor.After()
		query = query.Where(clause, args...)
	}

	var rows []models.PlaidItem
	if err := query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[models.PlaidItem]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list items")
	}

	return pagination.Trim(rows, params.Limit, func(item models.PlaidItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
	}), nil
}

// UpdateCursor stores the transactions/sync cursor for an item.
func (r *Repository) UpdateCursor(ctx context.Context, itemID, cursor string) error {
	res := r.DB(ctx).
		Model(&models.PlaidItem{}).
		Where("item_id = ?", itemID).
		Updates(map[string]any{
			"transactions_cursor": cursor,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update cursor")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return nil
}

// Delete removes an item and returns the deleted row.
func (r *Repository) Delete(ctx context.Context, itemID string) (*models.PlaidItem, error) {
	var deleted models.PlaidItem
	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).First(&deleted).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PlaidItem{}, "id = ?", deleted.ID).Error
	})
	if err != nil {
		return nil, repo.Classify(err, itemLabels("delete item"))
	}
	return &deleted, nil
}
