package plaid

import "context"

type accountsRequest struct {
	Credentials
	AccessToken string           `json:"access_token"`
	Options     *AccountsOptions `json:"options,omitempty"`
}

func sendAccounts[Resp any](ctx context.Context, c *Client, endpoint, accessToken string, opts *AccountsOptions) (*Resp, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[accountsRequest, Resp](ctx, c, endpoint, accountsRequest{
		Credentials: c.credentials,
		AccessToken: accessToken,
		Options:     opts,
	})
}

type GetAccountsResponse struct {
	ResponseMeta
	Accounts []Account `json:"accounts" validate:"required"`
	Item     Item      `json:"item"`
}

// GetAccounts lists the accounts of an Item using cached balances.
func (c *Client) GetAccounts(ctx context.Context, accessToken string, opts *AccountsOptions) (*GetAccountsResponse, error) {
	return sendAccounts[GetAccountsResponse](ctx, c, "accounts/get", accessToken, opts)
}

type GetBalancesResponse struct {
	ResponseMeta
	Accounts []Account `json:"accounts" validate:"required"`
	Item     *Item     `json:"item,omitempty"`
}

// GetBalances fetches real-time balances from the institution.
func (c *Client) GetBalances(ctx context.Context, accessToken string, opts *AccountsOptions) (*GetBalancesResponse, error) {
	return sendAccounts[GetBalancesResponse](ctx, c, "accounts/balance/get", accessToken, opts)
}

type GetAuthResponse struct {
	ResponseMeta
	Accounts []Account   `json:"accounts" validate:"required"`
	Numbers  AuthNumbers `json:"numbers"`
	Item     Item        `json:"item"`
}

type AuthNumbers struct {
	ACH           []ACHNumber           `json:"ach"`
	EFT           []EFTNumber           `json:"eft"`
	International []InternationalNumber `json:"international"`
	BACS          []BACSNumber          `json:"bacs"`
}

type ACHNumber struct {
	AccountID   string  `json:"account_id"`
	Account     string  `json:"account"`
	Routing     string  `json:"routing"`
	WireRouting *string `json:"wire_routing"`
}

type EFTNumber struct {
	AccountID   string `json:"account_id"`
	Account     string `json:"account"`
	Institution string `json:"institution"`
	Branch      string `json:"branch"`
}

type InternationalNumber struct {
	AccountID string `json:"account_id"`
	IBAN      string `json:"iban"`
	BIC       string `json:"bic"`
}

type BACSNumber struct {
	AccountID string `json:"account_id"`
	Account   string `json:"account"`
	SortCode  string `json:"sort_code"`
}

// GetAuth returns account and routing numbers for an Item's checking and savings accounts.
func (c *Client) GetAuth(ctx context.Context, accessToken string, opts *AccountsOptions) (*GetAuthResponse, error) {
	return sendAccounts[GetAuthResponse](ctx, c, "auth/get", accessToken, opts)
}

type GetIdentityResponse struct {
	ResponseMeta
	Accounts []IdentityAccount `json:"accounts" validate:"required"`
	Item     Item              `json:"item"`
}

type IdentityAccount struct {
	Account
	Owners []Owner `json:"owners"`
}

type Owner struct {
	Names        []string      `json:"names"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers"`
	Emails       []Email       `json:"emails"`
	Addresses    []Address     `json:"addresses"`
}

type PhoneNumber struct {
	Data    string  `json:"data"`
	Primary *bool   `json:"primary"`
	Type    *string `json:"type"`
}

type Email struct {
	Data    string `json:"data"`
	Primary bool   `json:"primary"`
	Type    string `json:"type"`
}

type Address struct {
	Data    AddressData `json:"data"`
	Primary *bool       `json:"primary"`
}

type AddressData struct {
	City       string  `json:"city"`
	Region     *string `json:"region"`
	Street     string  `json:"street"`
	PostalCode *string `json:"postal_code"`
	Country    string  `json:"country"`
}

// GetIdentity returns account holder names, emails, phones and addresses.
func (c *Client) GetIdentity(ctx context.Context, accessToken string, opts *AccountsOptions) (*GetIdentityResponse, error) {
	return sendAccounts[GetIdentityResponse](ctx, c, "identity/get", accessToken, opts)
}
