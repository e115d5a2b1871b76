package items

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/plaidbridge/pkg/config"
	"github.com/angelmondragon/plaidbridge/pkg/db"
	"github.com/angelmondragon/plaidbridge/pkg/db/models"
	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
	"github.com/angelmondragon/plaidbridge/pkg/migrate"
	"github.com/angelmondragon/plaidbridge/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupItemsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.PlaidItem{}))
	return conn
}

func newItem(itemID, userID string, createdAt time.Time) *models.PlaidItem {
	institution := "ins_109508"
	return &models.PlaidItem{
		ItemID:                itemID,
		ClientUserID:          userID,
		InstitutionID:         &institution,
		AccessTokenCiphertext: "v1:sealed-" + itemID,
		CreatedAt:             createdAt,
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(setupItemsTestDB(t))
	ctx := context.Background()

	item := newItem("item-1", "user-1", time.Time{})
	require.NoError(t, repo.Create(ctx, item))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", item.ID.String())
	assert.False(t, item.CreatedAt.IsZero())

	found, err := repo.FindByItemID(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, item.ID, found.ID)
	assert.Equal(t, "user-1", found.ClientUserID)
	assert.Equal(t, "v1:sealed-item-1", found.AccessTokenCiphertext)
	require.NotNil(t, found.InstitutionID)
	assert.Equal(t, "ins_109508", *found.InstitutionID)
	assert.Nil(t, found.TransactionsCursor)

	_, err = repo.FindByItemID(ctx, "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryCreateDuplicateIsConflict(t *testing.T) {
	repo := NewRepository(setupItemsTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newItem("item-dup", "user-1", time.Time{})))
	err := repo.Create(ctx, newItem("item-dup", "user-2", time.Time{}))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestRepositoryListByUserPaginates(t *testing.T) {
	repo := NewRepository(setupItemsTestDB(t))
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newItem(fmt.Sprintf("item-%d", i), "user-1", base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, newItem("item-other", "user-2", base)))

	first, err := repo.ListByUser(ctx, "user-1", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "item-0", first.Items[0].ItemID)
	assert.Equal(t, "item-1", first.Items[1].ItemID)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.ListByUser(ctx, "user-1", pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "item-2", second.Items[0].ItemID)

	third, err := repo.ListByUser(ctx, "user-1", pagination.Params{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.Equal(t, "item-4", third.Items[0].ItemID)
	assert.Empty(t, third.NextCursor)

	_, err = repo.ListByUser(ctx, "user-1", pagination.Params{Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRepositoryListAllSpansUsers(t *testing.T) {
	repo := NewRepository(setupItemsTestDB(t))
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newItem("item-a", "user-1", base)))
	require.NoError(t, repo.Create(ctx, newItem("item-b", "user-2", base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newItem("item-c", "user-3", base.Add(2*time.Minute))))

	first, err := repo.ListAll(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "item-a", first.Items[0].ItemID)
	assert.Equal(t, "item-b", first.Items[1].ItemID)

	rest, err := repo.ListAll(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Equal(t, "item-c", rest.Items[0].ItemID)
	assert.Empty(t, rest.NextCursor)
}

func TestRepositoryUpdateCursor(t *testing.T) {
	repo := NewRepository(setupItemsTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newItem("item-sync", "user-1", time.Time{})))
	require.NoError(t, repo.UpdateCursor(ctx, "item-sync", "cursor-42"))

	found, err := repo.FindByItemID(ctx, "item-sync")
	require.NoError(t, err)
	require.NotNil(t, found.TransactionsCursor)
	assert.Equal(t, "cursor-42", *found.TransactionsCursor)

	err = repo.UpdateCursor(ctx, "missing", "cursor")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewRepository(setupItemsTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newItem("item-gone", "user-1", time.Time{})))
	deleted, err := repo.Delete(ctx, "item-gone")
	require.NoError(t, err)
	assert.Equal(t, "item-gone", deleted.ItemID)

	_, err = repo.FindByItemID(ctx, "item-gone")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = repo.Delete(ctx, "item-gone")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryAgainstMigratedSchema(t *testing.T) {
	ctx := context.Background()
	client, err := db.New(ctx, config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "items.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.SQL()
	require.NoError(t, err)
	require.NoError(t, migrate.Run(ctx, sqlDB, client.Driver(), filepath.Join("..", "..", migrate.DefaultDir), "up"))

	repo := NewRepository(client.DB())
	require.NoError(t, repo.Create(ctx, newItem("item-m", "user-1", time.Time{})))
	err = repo.Create(ctx, newItem("item-m", "user-1", time.Time{}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	require.NoError(t, repo.UpdateCursor(ctx, "item-m", "c1"))
	page, err := repo.ListByUser(ctx, "user-1", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].TransactionsCursor)
	assert.Equal(t, "c1", *page.Items[0].TransactionsCursor)
}
