package plaid

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Payment channels.
const (
	PaymentChannelOnline  = "online"
	PaymentChannelInStore = "in store"
	PaymentChannelOther   = "other"
)

type Transaction struct {
	TransactionID          string          `json:"transaction_id"`
	AccountID              string          `json:"account_id"`
	AccountOwner           *string         `json:"account_owner"`
	PendingTransactionID   *string         `json:"pending_transaction_id"`
	Pending                bool            `json:"pending"`
	PaymentChannel         string          `json:"payment_channel"`
	PaymentMeta            PaymentMeta     `json:"payment_meta"`
	Name                   string          `json:"name"`
	MerchantName           *string         `json:"merchant_name"`
	Location               Location        `json:"location"`
	AuthorizedDate         *civil.Date     `json:"authorized_date"`
	AuthorizedDatetime     *time.Time      `json:"authorized_datetime"`
	Date                   civil.Date      `json:"date"`
	Datetime               *time.Time      `json:"datetime"`
	CategoryID             *string         `json:"category_id"`
	Category               []string        `json:"category"`
	ISOCurrencyCode        *string         `json:"iso_currency_code"`
	UnofficialCurrencyCode *string         `json:"unofficial_currency_code"`
	Amount                 decimal.Decimal `json:"amount"`
	TransactionCode        *string         `json:"transaction_code"`
}

type PaymentMeta struct {
	ReferenceNumber  *string `json:"reference_number"`
	PPDID            *string `json:"ppd_id"`
	Payee            *string `json:"payee"`
	ByOrderOf        *string `json:"by_order_of"`
	Payer            *string `json:"payer"`
	PaymentMethod    *string `json:"payment_method"`
	PaymentProcessor *string `json:"payment_processor"`
	Reason           *string `json:"reason"`
}

type Location struct {
	Address     *string  `json:"address"`
	City        *string  `json:"city"`
	Region      *string  `json:"region"`
	PostalCode  *string  `json:"postal_code"`
	Country     *string  `json:"country"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	StoreNumber *string  `json:"store_number"`
}

// GetTransactionsOptions pages through transactions/get and investments/transactions/get.
type GetTransactionsOptions struct {
	AccountIDs []string `json:"account_ids,omitempty"`
	Count      int      `json:"count,omitempty"`
	Offset     int      `json:"offset,omitempty"`
}

type getTransactionsRequest struct {
	Credentials
	AccessToken string                  `json:"access_token"`
	StartDate   civil.Date              `json:"start_date"`
	EndDate     civil.Date              `json:"end_date"`
	Options     *GetTransactionsOptions `json:"options,omitempty"`
}

type GetTransactionsResponse struct {
	ResponseMeta
	Accounts          []Account     `json:"accounts" validate:"required"`
	Transactions      []Transaction `json:"transactions" validate:"required"`
	TotalTransactions int           `json:"total_transactions"`
	Item              Item          `json:"item"`
}

// GetTransactions returns one page of transactions dated between start and end
// inclusive. Paging is left to the caller through opts.Offset.
func (c *Client) GetTransactions(ctx context.Context, accessToken string, start, end civil.Date, opts *GetTransactionsOptions) (*GetTransactionsResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[getTransactionsRequest, GetTransactionsResponse](ctx, c, "transactions/get", getTransactionsRequest{
		Credentials: c.credentials,
		AccessToken: accessToken,
		StartDate:   start,
		EndDate:     end,
		Options:     opts,
	})
}

type syncTransactionsRequest struct {
	Credentials
	AccessToken string `json:"access_token"`
	Cursor      string `json:"cursor,omitempty"`
	Count       int    `json:"count,omitempty"`
}

type SyncTransactionsResponse struct {
	ResponseMeta
	Accounts   []Account            `json:"accounts"`
	Added      []Transaction        `json:"added" validate:"required"`
	Modified   []Transaction        `json:"modified" validate:"required"`
	Removed    []RemovedTransaction `json:"removed" validate:"required"`
	NextCursor string               `json:"next_cursor" validate:"required"`
	HasMore    bool                 `json:"has_more"`
}

type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id,omitempty"`
}

// SyncTransactions fetches one page of changes since cursor. An empty cursor
// starts from the beginning of the Item's history. Callers continue with
// NextCursor while HasMore is true.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string, count int) (*SyncTransactionsResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[syncTransactionsRequest, SyncTransactionsResponse](ctx, c, "transactions/sync", syncTransactionsRequest{
		Credentials: c.credentials,
		AccessToken: accessToken,
		Cursor:      cursor,
		Count:       count,
	})
}

type RefreshTransactionsResponse struct {
	ResponseMeta
}

// RefreshTransactions asks Plaid to check the institution for new transactions.
func (c *Client) RefreshTransactions(ctx context.Context, accessToken string) (*RefreshTransactionsResponse, error) {
	return sendAccessToken[RefreshTransactionsResponse](ctx, c, "transactions/refresh", accessToken)
}
