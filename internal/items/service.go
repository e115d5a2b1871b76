package items

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/plaidbridge/pkg/config"
	"github.com/angelmondragon/plaidbridge/pkg/db/models"
	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
	"github.com/angelmondragon/plaidbridge/pkg/logger"
	"github.com/angelmondragon/plaidbridge/pkg/pagination"
	"github.com/angelmondragon/plaidbridge/pkg/plaid"
	pkgredis "github.com/angelmondragon/plaidbridge/pkg/redis"
	"github.com/google/uuid"
)

const (
	defaultSyncPageSize = 100
	defaultMaxSyncPages = 10
	syncLockTTL         = 2 * time.Minute
	syncLockScope       = "transactions_sync"
	sweepBatchSize      = 50
	categoriesCacheTTL  = 24 * time.Hour

	webhookTypeTransactions     = "TRANSACTIONS"
	webhookTypeItem             = "ITEM"
	webhookCodePermissionRevoke = "USER_PERMISSION_REVOKED"
)

// Service links Plaid items for end users and proxies item-scoped reads.
type Service interface {
	CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResult, error)
	Link(ctx context.Context, req LinkItemRequest) (*ItemSummary, error)
	List(ctx context.Context, clientUserID string, params pagination.Params) (pagination.Page[ItemSummary], error)
	Accounts(ctx context.Context, clientUserID, itemID string) (*AccountsResult, error)
	SyncTransactions(ctx context.Context, clientUserID, itemID string) (*SyncResult, error)
	Remove(ctx context.Context, clientUserID, itemID string) error
	Categories(ctx context.Context) ([]plaid.Category, error)
	HandleWebhook(ctx context.Context, verification string, body []byte) (*WebhookEvent, error)
	SyncAll(ctx context.Context) (*SweepResult, error)
}

type plaidAPI interface {
	CreateLinkToken(ctx context.Context, req plaid.CreateLinkTokenRequest) (*plaid.CreateLinkTokenResponse, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*plaid.ExchangePublicTokenResponse, error)
	GetItem(ctx context.Context, accessToken string) (*plaid.GetItemResponse, error)
	GetAccounts(ctx context.Context, accessToken string, opts *plaid.AccountsOptions) (*plaid.GetAccountsResponse, error)
	SyncTransactions(ctx context.Context, accessToken, cursor string, count int) (*plaid.SyncTransactionsResponse, error)
	RemoveItem(ctx context.Context, accessToken string) (*plaid.RemoveItemResponse, error)
	GetCategories(ctx context.Context) (*plaid.GetCategoriesResponse, error)
}

type itemRepository interface {
	Create(ctx context.Context, item *models.PlaidItem) error
	FindByItemID(ctx context.Context, itemID string) (*models.PlaidItem, error)
	ListByUser(ctx context.Context, clientUserID string, params pagination.Params) (pagination.Page[models.PlaidItem], error)
	ListAll(ctx context.Context, params pagination.Params) (pagination.Page[models.PlaidItem], error)
	UpdateCursor(ctx context.Context, itemID, cursor string) error
	Delete(ctx context.Context, itemID string) (*models.PlaidItem, error)
}

type tokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

type syncLocker interface {
	LockKey(scope, id string) string
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) error
}

// errSyncInProgress marks lock contention so sweeps and webhooks can tell it
// apart from an upstream 409.
var errSyncInProgress = errors.New("sync lock held by another worker")

type responseCache interface {
	CacheKey(parts ...string) string
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type webhookVerifier interface {
	Verify(ctx context.Context, signedJWT string, body []byte) error
}

// ServiceParams bundles the dependencies required to build an items service.
// Locker, Cache and Verifier are optional.
type ServiceParams struct {
	Repo         itemRepository
	Plaid        plaidAPI
	Sealer       tokenSealer
	Locker       syncLocker
	Cache        responseCache
	Verifier     webhookVerifier
	PlaidConfig  config.PlaidConfig
	Logger       *logger.Logger
	SyncPageSize int
	MaxSyncPages int
}

type service struct {
	repo         itemRepository
	plaid        plaidAPI
	sealer       tokenSealer
	locker       syncLocker
	cache        responseCache
	verifier     webhookVerifier
	plaidCfg     config.PlaidConfig
	logg         *logger.Logger
	syncPageSize int
	maxSyncPages int
}

// NewService constructs the items service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("item repository is required")
	}
	if params.Plaid == nil {
		return nil, fmt.Errorf("plaid client is required")
	}
	if params.Sealer == nil {
		return nil, fmt.Errorf("token sealer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.SyncPageSize <= 0 {
		params.SyncPageSize = defaultSyncPageSize
	}
	if params.MaxSyncPages <= 0 {
		params.MaxSyncPages = defaultMaxSyncPages
	}
	return &service{
		repo:         params.Repo,
		plaid:        params.Plaid,
		sealer:       params.Sealer,
		locker:       params.Locker,
		cache:        params.Cache,
		verifier:     params.Verifier,
		plaidCfg:     params.PlaidConfig,
		logg:         params.Logger,
		syncPageSize: params.SyncPageSize,
		maxSyncPages: params.MaxSyncPages,
	}, nil
}

func (s *service) CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResult, error) {
	userID := strings.TrimSpace(req.ClientUserID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client_user_id is required")
	}

	plaidReq := plaid.CreateLinkTokenRequest{
		User:         plaid.LinkTokenUser{ClientUserID: userID},
		ClientName:   s.plaidCfg.ClientName,
		Language:     s.plaidCfg.Language,
		CountryCodes: s.plaidCfg.CountryCodes,
		Products:     s.plaidCfg.Products,
		Webhook:      s.plaidCfg.WebhookURL,
		RedirectURI:  s.plaidCfg.RedirectURI,
	}

	// Update mode re-authenticates an existing item instead of adding products.
	if req.ItemID != "" {
		_, accessToken, err := s.loadOwned(ctx, userID, req.ItemID)
		if err != nil {
			return nil, err
		}
		plaidReq.AccessToken = accessToken
		plaidReq.Products = nil
	}

	resp, err := s.plaid.CreateLinkToken(ctx, plaidReq)
	if err != nil {
		return nil, err
	}
	return &LinkTokenResult{
		LinkToken:  resp.LinkToken,
		Expiration: resp.Expiration,
		RequestID:  resp.RequestID,
	}, nil
}

func (s *service) Link(ctx context.Context, req LinkItemRequest) (*ItemSummary, error) {
	userID := strings.TrimSpace(req.ClientUserID)
	if userID == "" || strings.TrimSpace(req.PublicToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client_user_id and public_token are required")
	}
	ctx = s.logg.WithUserID(ctx, userID)

	exchanged, err := s.plaid.ExchangePublicToken(ctx, req.PublicToken)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithItemID(ctx, exchanged.ItemID)

	sealed, err := s.sealer.Seal(exchanged.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal access token")
	}

	item := &models.PlaidItem{
		ItemID:                exchanged.ItemID,
		ClientUserID:          userID,
		AccessTokenCiphertext: sealed,
	}

	// The item already exists at Plaid, so a failed lookup only costs the institution id.
	if details, err := s.plaid.GetItem(ctx, exchanged.AccessToken); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "item lookup failed after exchange")
	} else {
		item.InstitutionID = details.Item.InstitutionID
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "plaid item linked")

	summary := summaryFromModel(*item)
	return &summary, nil
}

func (s *service) List(ctx context.Context, clientUserID string, params pagination.Params) (pagination.Page[ItemSummary], error) {
	userID := strings.TrimSpace(clientUserID)
	if userID == "" {
		return pagination.Page[ItemSummary]{}, pkgerrors.New(pkgerrors.CodeValidation, "client_user_id is required")
	}
	page, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return pagination.Page[ItemSummary]{}, err
	}
	out := make([]ItemSummary, 0, len(page.Items))
	for _, item := range page.Items {
		out = append(out, summaryFromModel(item))
	}
	return pagination.Page[ItemSummary]{Items: out, NextCursor: page.NextCursor}, nil
}

func (s *service) Accounts(ctx context.Context, clientUserID, itemID string) (*AccountsResult, error) {
	_, accessToken, err := s.loadOwned(ctx, clientUserID, itemID)
	if err != nil {
		return nil, err
	}
	resp, err := s.plaid.GetAccounts(ctx, accessToken, nil)
	if err != nil {
		return nil, err
	}
	accounts := resp.Accounts
	if accounts == nil {
		accounts = []plaid.Account{}
	}
	return &AccountsResult{ItemID: itemID, Accounts: accounts}, nil
}

func (s *service) SyncTransactions(ctx context.Context, clientUserID, itemID string) (*SyncResult, error) {
	item, accessToken, err := s.loadOwned(ctx, clientUserID, itemID)
	if err != nil {
		return nil, err
	}
	return s.syncItem(ctx, item, accessToken)
}

// syncLockTTL covers a full run of maxSyncPages upstream calls, each bounded
// by the Plaid HTTP timeout.
func (s *service) syncLockTTL() time.Duration {
	ttl := time.Duration(s.maxSyncPages) * s.plaidCfg.HTTPTimeout
	if ttl < syncLockTTL {
		return syncLockTTL
	}
	return ttl
}

func (s *service) syncItem(ctx context.Context, item *models.PlaidItem, accessToken string) (*SyncResult, error) {
	ctx = s.logg.WithItemID(ctx, item.ItemID)

	if s.locker != nil {
		key := s.locker.LockKey(syncLockScope, item.ItemID)
		owner := uuid.NewString()
		acquired, err := s.locker.AcquireLock(ctx, key, owner, s.syncLockTTL())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire sync lock")
		}
		if !acquired {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, errSyncInProgress, "transactions sync already in progress")
		}
		defer func() {
			if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key, owner); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release sync lock failed")
			}
		}()
	}

	start := ""
	if item.TransactionsCursor != nil {
		start = *item.TransactionsCursor
	}

	result := &SyncResult{
		ItemID:   item.ItemID,
		Added:    []plaid.Transaction{},
		Modified: []plaid.Transaction{},
		Removed:  []plaid.RemovedTransaction{},
	}
	cursor := start
	for result.Pages < s.maxSyncPages {
		page, err := s.plaid.SyncTransactions(ctx, accessToken, cursor, s.syncPageSize)
		if err != nil {
			return nil, err
		}
		result.Pages++
		result.Added = append(result.Added, page.Added...)
		result.Modified = append(result.Modified, page.Modified...)
		result.Removed = append(result.Removed, page.Removed...)
		cursor = page.NextCursor
		result.HasMore = page.HasMore
		if !page.HasMore {
			break
		}
	}
	result.NextCursor = cursor

	if cursor != start {
		if err := s.repo.UpdateCursor(ctx, item.ItemID, cursor); err != nil {
			return nil, err
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"pages":    result.Pages,
		"added":    len(result.Added),
		"modified": len(result.Modified),
		"removed":  len(result.Removed),
		"has_more": result.HasMore,
	}), "transactions synced")
	return result, nil
}

// SyncAll pulls pending transactions for every stored item. A failing item is
// counted and logged; the sweep moves on to the next one.
func (s *service) SyncAll(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{}
	params := pagination.Params{Limit: sweepBatchSize}
	for {
		page, err := s.repo.ListAll(ctx, params)
		if err != nil {
			return result, err
		}
		for i := range page.Items {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			item := &page.Items[i]
			result.Items++
			itemCtx := s.logg.WithItemID(ctx, item.ItemID)

			accessToken, err := s.sealer.Open(item.AccessTokenCiphertext)
			if err != nil {
				result.Failed++
				s.logg.Error(itemCtx, "open access token", err)
				continue
			}
			synced, err := s.syncItem(itemCtx, item, accessToken)
			switch {
			case err == nil:
				result.Synced++
				result.Added += len(synced.Added)
				result.Modified += len(synced.Modified)
				result.Removed += len(synced.Removed)
			case errors.Is(err, errSyncInProgress):
				result.Skipped++
			default:
				result.Failed++
				s.logg.Warn(s.logg.WithFields(itemCtx, map[string]any{
					"error":     err.Error(),
					"retryable": pkgerrors.Retryable(err),
				}), "item sync failed")
			}
		}
		if page.NextCursor == "" {
			break
		}
		params.Cursor = page.NextCursor
	}
	return result, nil
}

func (s *service) Remove(ctx context.Context, clientUserID, itemID string) error {
	_, accessToken, err := s.loadOwned(ctx, clientUserID, itemID)
	if err != nil {
		return err
	}
	ctx = s.logg.WithItemID(ctx, itemID)

	if _, err := s.plaid.RemoveItem(ctx, accessToken); err != nil {
		// Already gone upstream; drop the local row anyway.
		if !plaid.IsErrorCode(err, plaid.ErrorCodeItemNotFound) && !plaid.IsErrorCode(err, plaid.ErrorCodeInvalidAccessToken) {
			return err
		}
		s.logg.Warn(ctx, "item already removed at plaid")
	}

	if _, err := s.repo.Delete(ctx, itemID); err != nil {
		return err
	}
	s.logg.Info(ctx, "plaid item removed")
	return nil
}

func (s *service) Categories(ctx context.Context) ([]plaid.Category, error) {
	var key string
	if s.cache != nil {
		key = s.cache.CacheKey("categories")
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var cached []plaid.Category
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return cached, nil
			}
		case !pkgredis.IsMiss(err):
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "categories cache read failed")
		}
	}

	resp, err := s.plaid.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	categories := resp.Categories
	if categories == nil {
		categories = []plaid.Category{}
	}

	if s.cache != nil {
		if payload, err := json.Marshal(categories); err == nil {
			if err := s.cache.Set(ctx, key, string(payload), categoriesCacheTTL); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "categories cache write failed")
			}
		}
	}
	return categories, nil
}

func (s *service) HandleWebhook(ctx context.Context, verification string, body []byte) (*WebhookEvent, error) {
	if s.verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "webhook verification is not configured")
	}
	if err := s.verifier.Verify(ctx, verification, body); err != nil {
		return nil, err
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook body")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"webhook_type": event.WebhookType,
		"webhook_code": event.WebhookCode,
		"item_id":      event.ItemID,
	})
	s.logg.Info(ctx, "plaid webhook received")

	if event.ItemID == "" {
		return &event, nil
	}

	switch {
	case event.WebhookType == webhookTypeTransactions && event.WebhookCode == plaid.WebhookCodeSyncUpdatesAvailable:
		item, err := s.repo.FindByItemID(ctx, event.ItemID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return &event, nil
			}
			return nil, err
		}
		accessToken, err := s.sealer.Open(item.AccessTokenCiphertext)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open access token")
		}
		if _, err := s.syncItem(ctx, item, accessToken); err != nil && !errors.Is(err, errSyncInProgress) {
			return nil, err
		}
	case event.WebhookType == webhookTypeItem && event.WebhookCode == webhookCodePermissionRevoke:
		if _, err := s.repo.Delete(ctx, event.ItemID); err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
	}
	return &event, nil
}

// loadOwned returns the item and its decrypted access token. Items owned by
// another user are reported as not found.
func (s *service) loadOwned(ctx context.Context, clientUserID, itemID string) (*models.PlaidItem, string, error) {
	userID := strings.TrimSpace(clientUserID)
	if userID == "" || strings.TrimSpace(itemID) == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "client_user_id and item_id are required")
	}
	item, err := s.repo.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, "", err
	}
	if item.ClientUserID != userID {
		return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	accessToken, err := s.sealer.Open(item.AccessTokenCiphertext)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open access token")
	}
	return item, accessToken, nil
}
