package items

import (
	"time"

	"github.com/angelmondragon/plaidbridge/pkg/db/models"
	"github.com/angelmondragon/plaidbridge/pkg/plaid"
	"github.com/google/uuid"
)

// LinkTokenRequest starts a Link session for an end user.
type LinkTokenRequest struct {
	ClientUserID string `json:"client_user_id" validate:"required,max=128"`
	ItemID       string `json:"item_id,omitempty" validate:"omitempty,max=128"`
}

type LinkTokenResult struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
	RequestID  string    `json:"plaid_request_id"`
}

// LinkItemRequest exchanges the public token returned by Link.
type LinkItemRequest struct {
	ClientUserID string `json:"client_user_id" validate:"required,max=128"`
	PublicToken  string `json:"public_token" validate:"required"`
}

// ItemSummary is the public view of a stored item. It never carries the access token.
type ItemSummary struct {
	ID            uuid.UUID `json:"id"`
	ItemID        string    `json:"item_id"`
	ClientUserID  string    `json:"client_user_id"`
	InstitutionID *string   `json:"institution_id,omitempty"`
	Synced        bool      `json:"synced"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func summaryFromModel(m models.PlaidItem) ItemSummary {
	return ItemSummary{
		ID:            m.ID,
		ItemID:        m.ItemID,
		ClientUserID:  m.ClientUserID,
		InstitutionID: m.InstitutionID,
		Synced:        m.TransactionsCursor != nil && *m.TransactionsCursor != "",
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type AccountsResult struct {
	ItemID   string          `json:"item_id"`
	Accounts []plaid.Account `json:"accounts"`
}

// SyncResult aggregates every transactions/sync page fetched in one call.
type SyncResult struct {
	ItemID     string                     `json:"item_id"`
	Added      []plaid.Transaction        `json:"added"`
	Modified   []plaid.Transaction        `json:"modified"`
	Removed    []plaid.RemovedTransaction `json:"removed"`
	NextCursor string                     `json:"next_cursor"`
	HasMore    bool                       `json:"has_more"`
	Pages      int                        `json:"pages"`
}

// SweepResult counts the outcome of one pass over every stored item.
type SweepResult struct {
	Items    int `json:"items"`
	Synced   int `json:"synced"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Removed  int `json:"removed"`
}

// WebhookEvent is the common envelope of every Plaid webhook.
type WebhookEvent struct {
	WebhookType string               `json:"webhook_type"`
	WebhookCode string               `json:"webhook_code"`
	ItemID      string               `json:"item_id"`
	Error       *plaid.ErrorEnvelope `json:"error,omitempty"`
	Environment string               `json:"environment,omitempty"`
}
