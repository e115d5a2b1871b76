package items

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/plaidbridge/pkg/config"
	"github.com/angelmondragon/plaidbridge/pkg/db/models"
	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
	"github.com/angelmondragon/plaidbridge/pkg/logger"
	"github.com/angelmondragon/plaidbridge/pkg/pagination"
	"github.com/angelmondragon/plaidbridge/pkg/plaid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type stubRepo struct {
	items     map[string]*models.PlaidItem
	createErr error
	cursors   map[string]string
	deleted   []string
}

func newStubRepo(items ...*models.PlaidItem) *stubRepo {
	r := &stubRepo{items: map[string]*models.PlaidItem{}, cursors: map[string]string{}}
	for _, item := range items {
		r.items[item.ItemID] = item
	}
	return r
}

func (r *stubRepo) Create(_ context.Context, item *models.PlaidItem) error {
	if r.createErr != nil {
		return r.createErr
	}
	item.ID = uuid.New()
	item.CreatedAt = time.Now().UTC()
	r.items[item.ItemID] = item
	return nil
}

func (r *stubRepo) FindByItemID(_ context.Context, itemID string) (*models.PlaidItem, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return item, nil
}

func (r *stubRepo) ListByUser(_ context.Context, clientUserID string, _ pagination.Params) (pagination.Page[models.PlaidItem], error) {
	var out []models.PlaidItem
	for _, item := range r.items {
		if item.ClientUserID == clientUserID {
			out = append(out, *item)
		}
	}
	return pagination.Page[models.PlaidItem]{Items: out}, nil
}

func (r *stubRepo) ListAll(context.Context, pagination.Params) (pagination.Page[models.PlaidItem], error) {
	out := make([]models.PlaidItem, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, *item)
	}
	return pagination.Page[models.PlaidItem]{Items: out}, nil
}

func (r *stubRepo) UpdateCursor(_ context.Context, itemID, cursor string) error {
	r.cursors[itemID] = cursor
	return nil
}

func (r *stubRepo) Delete(_ context.Context, itemID string) (*models.PlaidItem, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	delete(r.items, itemID)
	r.deleted = append(r.deleted, itemID)
	return item, nil
}

type stubPlaid struct {
	linkReq       plaid.CreateLinkTokenRequest
	exchange      *plaid.ExchangePublicTokenResponse
	exchangeErr   error
	getItemErr    error
	accounts      []plaid.Account
	accountsToken string
	syncPages     []plaid.SyncTransactionsResponse
	syncCursors   []string
	syncErr       error
	onSync        func()
	syncFailures  map[string]error
	removeErr     error
	removedTokens []string
	categories    []plaid.Category
	categoryCalls int
}

func (p *stubPlaid) CreateLinkToken(_ context.Context, req plaid.CreateLinkTokenRequest) (*plaid.CreateLinkTokenResponse, error) {
	p.linkReq = req
	return &plaid.CreateLinkTokenResponse{
		ResponseMeta: plaid.ResponseMeta{RequestID: "req-link"},
		LinkToken:    "link-sandbox-1",
		Expiration:   time.Date(2025, 1, 1, 4, 0, 0, 0, time.UTC),
	}, nil
}

func (p *stubPlaid) ExchangePublicToken(context.Context, string) (*plaid.ExchangePublicTokenResponse, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.exchange, nil
}

func (p *stubPlaid) GetItem(context.Context, string) (*plaid.GetItemResponse, error) {
	if p.getItemErr != nil {
		return nil, p.getItemErr
	}
	institution := plaid.SandboxInstitutionID
	return &plaid.GetItemResponse{Item: plaid.Item{ItemID: p.exchange.ItemID, InstitutionID: &institution}}, nil
}

func (p *stubPlaid) GetAccounts(_ context.Context, accessToken string, _ *plaid.AccountsOptions) (*plaid.GetAccountsResponse, error) {
	p.accountsToken = accessToken
	return &plaid.GetAccountsResponse{Accounts: p.accounts}, nil
}

func (p *stubPlaid) SyncTransactions(_ context.Context, accessToken string, cursor string, _ int) (*plaid.SyncTransactionsResponse, error) {
	p.syncCursors = append(p.syncCursors, cursor)
	if p.onSync != nil {
		p.onSync()
	}
	if p.syncErr != nil {
		return nil, p.syncErr
	}
	if err := p.syncFailures[accessToken]; err != nil {
		return nil, err
	}
	page := p.syncPages[0]
	if len(p.syncPages) > 1 {
		p.syncPages = p.syncPages[1:]
	}
	return &page, nil
}

func (p *stubPlaid) RemoveItem(_ context.Context, accessToken string) (*plaid.RemoveItemResponse, error) {
	p.removedTokens = append(p.removedTokens, accessToken)
	if p.removeErr != nil {
		return nil, p.removeErr
	}
	return &plaid.RemoveItemResponse{}, nil
}

func (p *stubPlaid) GetCategories(context.Context) (*plaid.GetCategoriesResponse, error) {
	p.categoryCalls++
	return &plaid.GetCategoriesResponse{Categories: p.categories}, nil
}

// stubSealer "encrypts" by prefixing, which is enough to prove the service never stores plaintext.
type stubSealer struct{}

func (stubSealer) Seal(plaintext string) (string, error) { return "sealed:" + plaintext, nil }

func (stubSealer) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, "sealed:") {
		return "", errors.New("bad ciphertext")
	}
	return strings.TrimPrefix(sealed, "sealed:"), nil
}

// stubLocker tracks the owner of each held key and only releases keys for their owner.
type stubLocker struct {
	held     map[string]string
	released []string
	ttls     []time.Duration
}

func (l *stubLocker) LockKey(scope, id string) string { return scope + ":" + id }

func (l *stubLocker) AcquireLock(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = owner
	l.ttls = append(l.ttls, ttl)
	return true, nil
}

func (l *stubLocker) ReleaseLock(_ context.Context, key, owner string) error {
	if l.held[key] != owner {
		return nil
	}
	delete(l.held, key)
	l.released = append(l.released, key)
	return nil
}

type stubCache struct {
	data map[string]string
}

func (c *stubCache) CacheKey(parts ...string) string { return strings.Join(parts, ":") }

func (c *stubCache) Get(_ context.Context, key string) (string, error) {
	v, ok := c.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (c *stubCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.data[key] = value.(string)
	return nil
}

type stubVerifier struct {
	err error
}

func (v stubVerifier) Verify(context.Context, string, []byte) error { return v.err }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "items-test", Output: io.Discard})
}

func ownedItem(itemID, userID string) *models.PlaidItem {
	return &models.PlaidItem{
		ID:                    uuid.New(),
		ItemID:                itemID,
		ClientUserID:          userID,
		AccessTokenCiphertext: "sealed:access-" + itemID,
	}
}

func newTestService(t *testing.T, params ServiceParams) Service {
	t.Helper()
	if params.Sealer == nil {
		params.Sealer = stubSealer{}
	}
	if params.Logger == nil {
		params.Logger = testLogger()
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	cases := []ServiceParams{
		{Plaid: &stubPlaid{}, Sealer: stubSealer{}, Logger: testLogger()},
		{Repo: newStubRepo(), Sealer: stubSealer{}, Logger: testLogger()},
		{Repo: newStubRepo(), Plaid: &stubPlaid{}, Logger: testLogger()},
		{Repo: newStubRepo(), Plaid: &stubPlaid{}, Sealer: stubSealer{}},
	}
	for i, params := range cases {
		if _, err := NewService(params); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestCreateLinkTokenUsesConfiguredDefaults(t *testing.T) {
	api := &stubPlaid{}
	svc := newTestService(t, ServiceParams{
		Repo:  newStubRepo(),
		Plaid: api,
		PlaidConfig: config.PlaidConfig{
			ClientName:   "plaidbridge",
			Products:     []string{plaid.ProductTransactions},
			CountryCodes: []string{"US", "CA"},
			Language:     "en",
			WebhookURL:   "https://example.com/webhooks/plaid",
		},
	})

	res, err := svc.CreateLinkToken(context.Background(), LinkTokenRequest{ClientUserID: " user-1 "})
	if err != nil {
		t.Fatalf("CreateLinkToken: %v", err)
	}
	if res.LinkToken != "link-sandbox-1" || res.RequestID != "req-link" {
		t.Fatalf("unexpected result %+v", res)
	}
	if api.linkReq.User.ClientUserID != "user-1" {
		t.Fatalf("client user id should be trimmed, got %q", api.linkReq.User.ClientUserID)
	}
	if api.linkReq.Webhook != "https://example.com/webhooks/plaid" || len(api.linkReq.CountryCodes) != 2 {
		t.Fatalf("config defaults not applied: %+v", api.linkReq)
	}
	if api.linkReq.AccessToken != "" {
		t.Fatalf("new link session must not carry an access token")
	}
}

func TestCreateLinkTokenUpdateMode(t *testing.T) {
	api := &stubPlaid{}
	svc := newTestService(t, ServiceParams{
		Repo:        newStubRepo(ownedItem("item-1", "user-1")),
		Plaid:       api,
		PlaidConfig: config.PlaidConfig{Products: []string{plaid.ProductAuth}},
	})

	if _, err := svc.CreateLinkToken(context.Background(), LinkTokenRequest{ClientUserID: "user-1", ItemID: "item-1"}); err != nil {
		t.Fatalf("CreateLinkToken: %v", err)
	}
	if api.linkReq.AccessToken != "access-item-1" {
		t.Fatalf("expected decrypted access token, got %q", api.linkReq.AccessToken)
	}
	if api.linkReq.Products != nil {
		t.Fatalf("update mode must not request products, got %v", api.linkReq.Products)
	}

	_, err := svc.CreateLinkToken(context.Background(), LinkTokenRequest{ClientUserID: "user-2", ItemID: "item-1"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign item, got %v", err)
	}
}

func TestCreateLinkTokenRequiresUser(t *testing.T) {
	svc := newTestService(t, ServiceParams{Repo: newStubRepo(), Plaid: &stubPlaid{}})
	_, err := svc.CreateLinkToken(context.Background(), LinkTokenRequest{ClientUserID: "  "})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLinkStoresSealedToken(t *testing.T) {
	repo := newStubRepo()
	api := &stubPlaid{exchange: &plaid.ExchangePublicTokenResponse{AccessToken: "access-sandbox-9", ItemID: "item-9"}}
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: api})

	summary, err := svc.Link(context.Background(), LinkItemRequest{ClientUserID: "user-1", PublicToken: "public-sandbox-9"})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if summary.ItemID != "item-9" || summary.InstitutionID == nil || *summary.InstitutionID != plaid.SandboxInstitutionID {
		t.Fatalf("unexpected summary %+v", summary)
	}
	stored := repo.items["item-9"]
	if stored == nil {
		t.Fatal("expected item to be stored")
	}
	if stored.AccessTokenCiphertext != "sealed:access-sandbox-9" {
		t.Fatalf("access token stored without sealing: %q", stored.AccessTokenCiphertext)
	}
}

func TestLinkToleratesItemLookupFailure(t *testing.T) {
	repo := newStubRepo()
	api := &stubPlaid{
		exchange:   &plaid.ExchangePublicTokenResponse{AccessToken: "access-1", ItemID: "item-1"},
		getItemErr: pkgerrors.New(pkgerrors.CodeTransport, "upstream unreachable"),
	}
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: api})

	summary, err := svc.Link(context.Background(), LinkItemRequest{ClientUserID: "user-1", PublicToken: "public-1"})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if summary.InstitutionID != nil {
		t.Fatalf("expected no institution id, got %v", *summary.InstitutionID)
	}
}

func TestLinkPropagatesErrors(t *testing.T) {
	apiErr := &plaid.APIError{ErrorType: plaid.ErrorTypeInvalidInput, ErrorCode: plaid.ErrorCodeInvalidPublicToken, StatusCode: 400}
	api := &stubPlaid{exchangeErr: pkgerrors.Wrap(pkgerrors.CodeValidation, apiErr, "plaid item/public_token/exchange failed")}
	svc := newTestService(t, ServiceParams{Repo: newStubRepo(), Plaid: api})

	_, err := svc.Link(context.Background(), LinkItemRequest{ClientUserID: "user-1", PublicToken: "bad"})
	if !plaid.IsErrorCode(err, plaid.ErrorCodeInvalidPublicToken) {
		t.Fatalf("expected plaid error to propagate, got %v", err)
	}

	repo := newStubRepo()
	repo.createErr = pkgerrors.New(pkgerrors.CodeConflict, "item already linked")
	api = &stubPlaid{exchange: &plaid.ExchangePublicTokenResponse{AccessToken: "a", ItemID: "i"}}
	svc = newTestService(t, ServiceParams{Repo: repo, Plaid: api})
	_, err = svc.Link(context.Background(), LinkItemRequest{ClientUserID: "user-1", PublicToken: "p"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestListReturnsSummaries(t *testing.T) {
	cursor := "c1"
	synced := ownedItem("item-1", "user-1")
	synced.TransactionsCursor = &cursor
	svc := newTestService(t, ServiceParams{
		Repo:  newStubRepo(synced, ownedItem("item-2", "user-2")),
		Plaid: &stubPlaid{},
	})

	page, err := svc.List(context.Background(), "user-1", pagination.Params{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ItemID != "item-1" || !page.Items[0].Synced {
		t.Fatalf("unexpected page %+v", page)
	}

	if _, err := svc.List(context.Background(), "", pagination.Params{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAccountsUsesDecryptedToken(t *testing.T) {
	api := &stubPlaid{accounts: []plaid.Account{{AccountID: "acc-1", Name: "Checking"}}}
	svc := newTestService(t, ServiceParams{Repo: newStubRepo(ownedItem("item-1", "user-1")), Plaid: api})

	res, err := svc.Accounts(context.Background(), "user-1", "item-1")
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if api.accountsToken != "access-item-1" {
		t.Fatalf("unexpected token %q", api.accountsToken)
	}
	if len(res.Accounts) != 1 || res.Accounts[0].AccountID != "acc-1" {
		t.Fatalf("unexpected accounts %+v", res.Accounts)
	}

	if _, err := svc.Accounts(context.Background(), "user-2", "item-1"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}
}

func TestSyncTransactionsFollowsPagesAndStoresCursor(t *testing.T) {
	start := "cursor-0"
	item := ownedItem("item-1", "user-1")
	item.TransactionsCursor = &start
	repo := newStubRepo(item)
	locker := &stubLocker{held: map[string]string{}}
	api := &stubPlaid{syncPages: []plaid.SyncTransactionsResponse{
		{Added: []plaid.Transaction{{TransactionID: "tx-1"}}, NextCursor: "cursor-1", HasMore: true},
		{Modified: []plaid.Transaction{{TransactionID: "tx-0"}}, Removed: []plaid.RemovedTransaction{{TransactionID: "tx-old"}}, NextCursor: "cursor-2"},
	}}
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: api, Locker: locker})

	res, err := svc.SyncTransactions(context.Background(), "user-1", "item-1")
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}
	if res.Pages != 2 || res.NextCursor != "cursor-2" || res.HasMore {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Added) != 1 || len(res.Modified) != 1 || len(res.Removed) != 1 {
		t.Fatalf("unexpected deltas %+v", res)
	}
	if strings.Join(api.syncCursors, ",") != "cursor-0,cursor-1" {
		t.Fatalf("unexpected cursors sent %v", api.syncCursors)
	}
	if repo.cursors["item-1"] != "cursor-2" {
		t.Fatalf("cursor not persisted: %v", repo.cursors)
	}
	if len(locker.released) != 1 || len(locker.held) != 0 {
		t.Fatalf("lock not released: %+v", locker)
	}
}

func TestSyncTransactionsLeavesReassignedLock(t *testing.T) {
	const key = "transactions_sync:item-1"
	repo := newStubRepo(ownedItem("item-1", "user-1"))
	locker := &stubLocker{held: map[string]string{}}
	api := &stubPlaid{syncPages: []plaid.SyncTransactionsResponse{{NextCursor: "cursor-1"}}}
	// The lock expires mid-sync and another worker claims it.
	api.onSync = func() { locker.held[key] = "other-worker" }
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: api, Locker: locker})

	if _, err := svc.SyncTransactions(context.Background(), "user-1", "item-1"); err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}
	if got := locker.held[key]; got != "other-worker" {
		t.Fatalf("expected other-worker to keep the lock, got %q", got)
	}
	if len(locker.released) != 0 {
		t.Fatalf("lock released for the wrong owner: %v", locker.released)
	}
}

func TestSyncLockTTLCoversPageBudget(t *testing.T) {
	cases := []struct {
		name     string
		maxPages int
		timeout  time.Duration
		want     time.Duration
	}{
		{name: "page budget", maxPages: 10, timeout: 30 * time.Second, want: 5 * time.Minute},
		{name: "floor", maxPages: 2, timeout: time.Second, want: syncLockTTL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			locker := &stubLocker{held: map[string]string{}}
			svc := newTestService(t, ServiceParams{
				Repo:         newStubRepo(ownedItem("item-1", "user-1")),
				Plaid:        &stubPlaid{syncPages: []plaid.SyncTransactionsResponse{{NextCursor: "c"}}},
				Locker:       locker,
				PlaidConfig:  config.PlaidConfig{HTTPTimeout: tc.timeout},
				MaxSyncPages: tc.maxPages,
			})
			if _, err := svc.SyncTransactions(context.Background(), "user-1", "item-1"); err != nil {
				t.Fatalf("SyncTransactions: %v", err)
			}
			if len(locker.ttls) != 1 || locker.ttls[0] != tc.want {
				t.Fatalf("expected lock ttl %v, got %v", tc.want, locker.ttls)
			}
		})
	}
}

func TestSyncTransactionsStopsAtPageLimit(t *testing.T) {
	repo := newStubRepo(ownedItem("item-1", "user-1"))
	api := &stubPlaid{syncPages: []plaid.SyncTransactionsResponse{{NextCursor: "next", HasMore: true}}}
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: api, MaxSyncPages: 3})

	res, err := svc.SyncTransactions(context.Background(), "user-1", "item-1")
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}
	if res.Pages != 3 || !res.HasMore {
		t.Fatalf("expected to stop after 3 pages with more pending, got %+v", res)
	}
	if api.syncCursors[0] != "" {
		t.Fatalf("first sync must start with an empty cursor, got %q", api.syncCursors[0])
	}
}

func TestSyncTransactionsErrors(t *testing.T) {
	locker := &stubLocker{held: map[string]string{"transactions_sync:item-1": "other-worker"}}
	repo := newStubRepo(ownedItem("item-1", "user-1"))
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: &stubPlaid{}, Locker: locker})
	if _, err := svc.SyncTransactions(context.Background(), "user-1", "item-1"); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) || !errors.Is(err, errSyncInProgress) {
		t.Fatalf("expected conflict while lock held, got %v", err)
	}

	api := &stubPlaid{syncErr: pkgerrors.Wrap(pkgerrors.CodeValidation, &plaid.APIError{ErrorCode: plaid.ErrorCodeItemLoginRequired}, "plaid transactions/sync failed")}
	svc = newTestService(t, ServiceParams{Repo: repo, Plaid: api})
	if _, err := svc.SyncTransactions(context.Background(), "user-1", "item-1"); !plaid.IsErrorCode(err, plaid.ErrorCodeItemLoginRequired) {
		t.Fatalf("expected plaid error, got %v", err)
	}
	if _, ok := repo.cursors["item-1"]; ok {
		t.Fatal("cursor must not advance when sync fails")
	}
}

func TestSyncAllCountsOutcomes(t *testing.T) {
	broken := ownedItem("item-broken", "user-2")
	broken.AccessTokenCiphertext = "plaintext"
	repo := newStubRepo(
		ownedItem("item-ok", "user-1"),
		ownedItem("item-busy", "user-1"),
		ownedItem("item-login", "user-2"),
		broken,
	)
	locker := &stubLocker{held: map[string]string{"transactions_sync:item-busy": "other-worker"}}
	api := &stubPlaid{
		syncPages: []plaid.SyncTransactionsResponse{
			{Added: []plaid.Transaction{{TransactionID: "tx-1"}, {TransactionID: "tx-2"}}, NextCursor: "cursor-1"},
		},
		syncFailures: map[string]error{
			"access-item-login": pkgerrors.Wrap(pkgerrors.CodeValidation, &plaid.APIError{ErrorCode: plaid.ErrorCodeItemLoginRequired}, "plaid transactions/sync failed"),
		},
	}
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: api, Locker: locker})

	res, err := svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if res.Items != 4 || res.Synced != 1 || res.Skipped != 1 || res.Failed != 2 {
		t.Fatalf("unexpected sweep result %+v", res)
	}
	if res.Added != 2 {
		t.Fatalf("expected 2 added transactions, got %d", res.Added)
	}
	if repo.cursors["item-ok"] != "cursor-1" {
		t.Fatalf("cursor not persisted: %v", repo.cursors)
	}
	if _, ok := repo.cursors["item-login"]; ok {
		t.Fatal("failed item must keep its cursor")
	}
}

func TestUpstreamConflictIsNotLockContention(t *testing.T) {
	upstream := pkgerrors.Wrap(pkgerrors.CodeConflict, &plaid.APIError{ErrorType: "API_ERROR", ErrorCode: "INTERNAL_SERVER_ERROR"}, "plaid transactions/sync failed")
	repo := newStubRepo(ownedItem("item-1", "user-1"))
	locker := &stubLocker{held: map[string]string{}}
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: &stubPlaid{syncErr: upstream}, Locker: locker, Verifier: stubVerifier{}})

	res, err := svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if res.Failed != 1 || res.Skipped != 0 {
		t.Fatalf("expected upstream 409 counted as failed, got %+v", res)
	}

	_, err = svc.HandleWebhook(context.Background(), "jwt", []byte(`{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"item-1"}`))
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) || errors.Is(err, errSyncInProgress) {
		t.Fatalf("expected upstream conflict to surface, got %v", err)
	}

	locker.held["transactions_sync:item-1"] = "other-worker"
	if _, err := svc.HandleWebhook(context.Background(), "jwt", []byte(`{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"item-1"}`)); err != nil {
		t.Fatalf("lock contention should be ignored by webhooks, got %v", err)
	}
}

func TestSyncAllStopsOnCancel(t *testing.T) {
	repo := newStubRepo(ownedItem("item-1", "user-1"))
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: &stubPlaid{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.SyncAll(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestRemoveDeletesUpstreamAndLocally(t *testing.T) {
	repo := newStubRepo(ownedItem("item-1", "user-1"))
	api := &stubPlaid{}
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: api})

	if err := svc.Remove(context.Background(), "user-1", "item-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(api.removedTokens) != 1 || api.removedTokens[0] != "access-item-1" {
		t.Fatalf("unexpected upstream removal %v", api.removedTokens)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("expected local delete")
	}
}

func TestRemoveHandlesUpstreamErrors(t *testing.T) {
	gone := pkgerrors.Wrap(pkgerrors.CodeValidation, &plaid.APIError{ErrorCode: plaid.ErrorCodeItemNotFound}, "plaid item/remove failed")
	repo := newStubRepo(ownedItem("item-1", "user-1"))
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: &stubPlaid{removeErr: gone}})
	if err := svc.Remove(context.Background(), "user-1", "item-1"); err != nil {
		t.Fatalf("expected already-removed item to be tolerated, got %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatal("expected local delete")
	}

	down := pkgerrors.New(pkgerrors.CodeTransport, "upstream unreachable")
	repo = newStubRepo(ownedItem("item-1", "user-1"))
	svc = newTestService(t, ServiceParams{Repo: repo, Plaid: &stubPlaid{removeErr: down}})
	if err := svc.Remove(context.Background(), "user-1", "item-1"); !pkgerrors.IsCode(err, pkgerrors.CodeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("local row must survive a failed upstream removal")
	}
}

func TestCategoriesAreCached(t *testing.T) {
	api := &stubPlaid{categories: []plaid.Category{{CategoryID: "10000000", Group: plaid.CategoryGroupSpecial, Hierarchy: []string{"Bank Fees"}}}}
	cache := &stubCache{data: map[string]string{}}
	svc := newTestService(t, ServiceParams{Repo: newStubRepo(), Plaid: api, Cache: cache})

	for i := 0; i < 2; i++ {
		cats, err := svc.Categories(context.Background())
		if err != nil {
			t.Fatalf("Categories: %v", err)
		}
		if len(cats) != 1 || cats[0].Hierarchy[0] != "Bank Fees" {
			t.Fatalf("unexpected categories %+v", cats)
		}
	}
	if api.categoryCalls != 1 {
		t.Fatalf("expected one upstream call, got %d", api.categoryCalls)
	}
}

func TestHandleWebhook(t *testing.T) {
	repo := newStubRepo(ownedItem("item-1", "user-1"), ownedItem("item-2", "user-1"))
	api := &stubPlaid{syncPages: []plaid.SyncTransactionsResponse{{NextCursor: "after-hook"}}}
	svc := newTestService(t, ServiceParams{Repo: repo, Plaid: api, Verifier: stubVerifier{}})

	event, err := svc.HandleWebhook(context.Background(), "jwt", []byte(`{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"item-1"}`))
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if event.WebhookCode != plaid.WebhookCodeSyncUpdatesAvailable {
		t.Fatalf("unexpected event %+v", event)
	}
	if repo.cursors["item-1"] != "after-hook" {
		t.Fatalf("expected webhook to trigger sync, cursors=%v", repo.cursors)
	}

	if _, err := svc.HandleWebhook(context.Background(), "jwt", []byte(`{"webhook_type":"ITEM","webhook_code":"USER_PERMISSION_REVOKED","item_id":"item-2"}`)); err != nil {
		t.Fatalf("HandleWebhook revoke: %v", err)
	}
	if _, ok := repo.items["item-2"]; ok {
		t.Fatal("expected revoked item to be deleted")
	}

	if _, err := svc.HandleWebhook(context.Background(), "jwt", []byte(`{"webhook_type":"TRANSACTIONS","webhook_code":"SYNC_UPDATES_AVAILABLE","item_id":"unknown"}`)); err != nil {
		t.Fatalf("unknown items should be ignored, got %v", err)
	}
	if _, err := svc.HandleWebhook(context.Background(), "jwt", []byte(`not json`)); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandleWebhookRejectsUnverified(t *testing.T) {
	svc := newTestService(t, ServiceParams{
		Repo:     newStubRepo(),
		Plaid:    &stubPlaid{},
		Verifier: stubVerifier{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook verification token")},
	})
	if _, err := svc.HandleWebhook(context.Background(), "jwt", []byte(`{}`)); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	svc = newTestService(t, ServiceParams{Repo: newStubRepo(), Plaid: &stubPlaid{}})
	if _, err := svc.HandleWebhook(context.Background(), "jwt", []byte(`{}`)); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden without verifier, got %v", err)
	}
}
