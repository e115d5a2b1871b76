package plaid

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type createProcessorTokenRequest struct {
	Credentials
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	Processor   string `json:"processor"`
}

type CreateProcessorTokenResponse struct {
	ResponseMeta
	ProcessorToken string `json:"processor_token" validate:"required"`
}

// CreateProcessorToken issues a token that lets a payment processor act on one account.
func (c *Client) CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (*CreateProcessorTokenResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[createProcessorTokenRequest, CreateProcessorTokenResponse](ctx, c, "processor/token/create", createProcessorTokenRequest{
		Credentials: c.credentials,
		AccessToken: accessToken,
		AccountID:   accountID,
		Processor:   processor,
	})
}

type createDepositSwitchRequest struct {
	Credentials
	TargetAccessToken string `json:"target_access_token"`
	TargetAccountID   string `json:"target_account_id"`
}

type CreateDepositSwitchResponse struct {
	ResponseMeta
	DepositSwitchID string `json:"deposit_switch_id" validate:"required"`
}

func (c *Client) CreateDepositSwitch(ctx context.Context, targetAccessToken, targetAccountID string) (*CreateDepositSwitchResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[createDepositSwitchRequest, CreateDepositSwitchResponse](ctx, c, "deposit_switch/create", createDepositSwitchRequest{
		Credentials:       c.credentials,
		TargetAccessToken: targetAccessToken,
		TargetAccountID:   targetAccountID,
	})
}

type getDepositSwitchRequest struct {
	Credentials
	DepositSwitchID string `json:"deposit_switch_id"`
}

type GetDepositSwitchResponse struct {
	ResponseMeta
	DepositSwitchID               string              `json:"deposit_switch_id" validate:"required"`
	TargetAccountID               *string             `json:"target_account_id"`
	TargetItemID                  *string             `json:"target_item_id"`
	State                         string              `json:"state"`
	AccountHasMultipleAllocations *bool               `json:"account_has_multiple_allocations"`
	IsAllocatedRemainder          *bool               `json:"is_allocated_remainder"`
	PercentAllocated              *int                `json:"percent_allocated"`
	AmountAllocated               decimal.NullDecimal `json:"amount_allocated"`
	DateCreated                   civil.Date          `json:"date_created"`
	DateCompleted                 *civil.Date         `json:"date_completed"`
}

func (c *Client) GetDepositSwitch(ctx context.Context, depositSwitchID string) (*GetDepositSwitchResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[getDepositSwitchRequest, GetDepositSwitchResponse](ctx, c, "deposit_switch/get", getDepositSwitchRequest{
		Credentials:     c.credentials,
		DepositSwitchID: depositSwitchID,
	})
}
