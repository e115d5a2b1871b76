package plaid

import "context"

// Institutions and credentials that only exist in the sandbox environment.
const (
	SandboxInstitutionID    = "ins_109508"
	SandboxInstitutionQuery = "Platypus"
	SandboxUsername         = "user_good"
	SandboxPassword         = "pass_good"
)

// Webhook codes accepted by sandbox/item/fire_webhook.
const (
	WebhookCodeDefaultUpdate        = "DEFAULT_UPDATE"
	WebhookCodeNewAccountsAvailable = "NEW_ACCOUNTS_AVAILABLE"
	WebhookCodeSyncUpdatesAvailable = "SYNC_UPDATES_AVAILABLE"
)

type createSandboxPublicTokenRequest struct {
	Credentials
	InstitutionID   string   `json:"institution_id"`
	InitialProducts []string `json:"initial_products"`
}

type CreateSandboxPublicTokenResponse struct {
	ResponseMeta
	PublicToken string `json:"public_token" validate:"required"`
}

// CreateSandboxPublicToken creates an Item without going through Link. Sandbox only.
func (c *Client) CreateSandboxPublicToken(ctx context.Context, institutionID string, initialProducts []string) (*CreateSandboxPublicTokenResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[createSandboxPublicTokenRequest, CreateSandboxPublicTokenResponse](ctx, c, "sandbox/public_token/create", createSandboxPublicTokenRequest{
		Credentials:     c.credentials,
		InstitutionID:   institutionID,
		InitialProducts: nonNilStrings(initialProducts),
	})
}

type ResetSandboxItemLoginResponse struct {
	ResponseMeta
	ResetLogin bool `json:"reset_login"`
}

// ResetSandboxItemLogin forces the Item into ITEM_LOGIN_REQUIRED.
func (c *Client) ResetSandboxItemLogin(ctx context.Context, accessToken string) (*ResetSandboxItemLoginResponse, error) {
	return sendAccessToken[ResetSandboxItemLoginResponse](ctx, c, "sandbox/item/reset_login", accessToken)
}

type setSandboxVerificationStatusRequest struct {
	Credentials
	AccessToken        string `json:"access_token"`
	AccountID          string `json:"account_id"`
	VerificationStatus string `json:"verification_status"`
}

type SetSandboxVerificationStatusResponse struct {
	ResponseMeta
}

func (c *Client) SetSandboxVerificationStatus(ctx context.Context, accessToken, accountID, status string) (*SetSandboxVerificationStatusResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[setSandboxVerificationStatusRequest, SetSandboxVerificationStatusResponse](ctx, c, "sandbox/item/set_verification_status", setSandboxVerificationStatusRequest{
		Credentials:        c.credentials,
		AccessToken:        accessToken,
		AccountID:          accountID,
		VerificationStatus: status,
	})
}

type fireSandboxWebhookRequest struct {
	Credentials
	AccessToken string `json:"access_token"`
	WebhookCode string `json:"webhook_code"`
}

type FireSandboxWebhookResponse struct {
	ResponseMeta
	WebhookFired bool `json:"webhook_fired"`
}

func (c *Client) FireSandboxWebhook(ctx context.Context, accessToken, webhookCode string) (*FireSandboxWebhookResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[fireSandboxWebhookRequest, FireSandboxWebhookResponse](ctx, c, "sandbox/item/fire_webhook", fireSandboxWebhookRequest{
		Credentials: c.credentials,
		AccessToken: accessToken,
		WebhookCode: webhookCode,
	})
}
