package plaid

import "context"

type accessTokenRequest struct {
	Credentials
	AccessToken string `json:"access_token"`
}

func sendAccessToken[Resp any](ctx context.Context, c *Client, endpoint, accessToken string) (*Resp, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[accessTokenRequest, Resp](ctx, c, endpoint, accessTokenRequest{
		Credentials: c.credentials,
		AccessToken: accessToken,
	})
}

type GetItemResponse struct {
	ResponseMeta
	Item        Item        `json:"item"`
	Status      *ItemStatus `json:"status"`
	AccessToken *string     `json:"access_token"`
}

func (c *Client) GetItem(ctx context.Context, accessToken string) (*GetItemResponse, error) {
	return sendAccessToken[GetItemResponse](ctx, c, "item/get", accessToken)
}

type RemoveItemResponse struct {
	ResponseMeta
}

// RemoveItem invalidates the access token and ends billing for the Item.
func (c *Client) RemoveItem(ctx context.Context, accessToken string) (*RemoveItemResponse, error) {
	return sendAccessToken[RemoveItemResponse](ctx, c, "item/remove", accessToken)
}

type updateItemWebhookRequest struct {
	Credentials
	AccessToken string `json:"access_token"`
	Webhook     string `json:"webhook"`
}

type UpdateItemWebhookResponse struct {
	ResponseMeta
	Item Item `json:"item"`
}

func (c *Client) UpdateItemWebhook(ctx context.Context, accessToken, webhook string) (*UpdateItemWebhookResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[updateItemWebhookRequest, UpdateItemWebhookResponse](ctx, c, "item/webhook/update", updateItemWebhookRequest{
		Credentials: c.credentials,
		AccessToken: accessToken,
		Webhook:     webhook,
	})
}

type InvalidateAccessTokenResponse struct {
	ResponseMeta
	NewAccessToken string `json:"new_access_token" validate:"required"`
}

// InvalidateAccessToken rotates an Item's access token. The old token stops working immediately.
func (c *Client) InvalidateAccessToken(ctx context.Context, accessToken string) (*InvalidateAccessTokenResponse, error) {
	return sendAccessToken[InvalidateAccessTokenResponse](ctx, c, "item/access_token/invalidate", accessToken)
}

type CreatePublicTokenResponse struct {
	ResponseMeta
	PublicToken string `json:"public_token" validate:"required"`
}

// CreatePublicToken creates a public token for an existing Item.
//
// Deprecated: Plaid replaced public tokens for update mode with link tokens; use CreateLinkToken.
func (c *Client) CreatePublicToken(ctx context.Context, accessToken string) (*CreatePublicTokenResponse, error) {
	return sendAccessToken[CreatePublicTokenResponse](ctx, c, "item/public_token/create", accessToken)
}

type exchangePublicTokenRequest struct {
	Credentials
	PublicToken string `json:"public_token"`
}

type ExchangePublicTokenResponse struct {
	ResponseMeta
	AccessToken string `json:"access_token" validate:"required"`
	ItemID      string `json:"item_id" validate:"required"`
}

// ExchangePublicToken trades the public token Link returned for a durable access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangePublicTokenResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[exchangePublicTokenRequest, ExchangePublicTokenResponse](ctx, c, "item/public_token/exchange", exchangePublicTokenRequest{
		Credentials: c.credentials,
		PublicToken: publicToken,
	})
}
