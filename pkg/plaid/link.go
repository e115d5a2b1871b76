package plaid

import (
	"context"
	"time"
)

const (
	defaultLanguage    = "en"
	defaultCountryCode = "US"
)

type LinkTokenUser struct {
	ClientUserID             string     `json:"client_user_id"`
	LegalName                string     `json:"legal_name,omitempty"`
	PhoneNumber              string     `json:"phone_number,omitempty"`
	PhoneNumberVerifiedTime  *time.Time `json:"phone_number_verified_time,omitempty"`
	EmailAddress             string     `json:"email_address,omitempty"`
	EmailAddressVerifiedTime *time.Time `json:"email_address_verified_time,omitempty"`
	SSN                      string     `json:"ssn,omitempty"`
	DateOfBirth              string     `json:"date_of_birth,omitempty"`
}

// CreateLinkTokenRequest configures a Link session. Language defaults to "en"
// and CountryCodes to ["US"]. Set AccessToken to open Link in update mode.
type CreateLinkTokenRequest struct {
	User                  LinkTokenUser                  `json:"user"`
	ClientName            string                         `json:"client_name"`
	Language              string                         `json:"language"`
	CountryCodes          []string                       `json:"country_codes"`
	Products              []string                       `json:"products,omitempty"`
	Webhook               string                         `json:"webhook,omitempty"`
	AccessToken           string                         `json:"access_token,omitempty"`
	LinkCustomizationName string                         `json:"link_customization_name,omitempty"`
	AccountFilters        map[string]map[string][]string `json:"account_filters,omitempty"`
	RedirectURI           string                         `json:"redirect_uri,omitempty"`
	AndroidPackageName    string                         `json:"android_package_name,omitempty"`
}

type createLinkTokenRequest struct {
	Credentials
	CreateLinkTokenRequest
}

type CreateLinkTokenResponse struct {
	ResponseMeta
	LinkToken  string    `json:"link_token" validate:"required"`
	Expiration time.Time `json:"expiration"`
}

func (c *Client) CreateLinkToken(ctx context.Context, req CreateLinkTokenRequest) (*CreateLinkTokenResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	if req.Language == "" {
		req.Language = defaultLanguage
	}
	if len(req.CountryCodes) == 0 {
		req.CountryCodes = []string{defaultCountryCode}
	}
	return Send[createLinkTokenRequest, CreateLinkTokenResponse](ctx, c, "link/token/create", createLinkTokenRequest{
		Credentials:            c.credentials,
		CreateLinkTokenRequest: req,
	})
}

type getLinkTokenRequest struct {
	Credentials
	LinkToken string `json:"link_token"`
}

type GetLinkTokenResponse struct {
	ResponseMeta
	LinkToken  string            `json:"link_token" validate:"required"`
	CreatedAt  *time.Time        `json:"created_at"`
	Expiration *time.Time        `json:"expiration"`
	Metadata   LinkTokenMetadata `json:"metadata"`
}

type LinkTokenMetadata struct {
	InitialProducts []string                       `json:"initial_products"`
	Webhook         *string                        `json:"webhook"`
	CountryCodes    []string                       `json:"country_codes"`
	Language        *string                        `json:"language"`
	AccountFilters  map[string]map[string][]string `json:"account_filters"`
	RedirectURI     *string                        `json:"redirect_uri"`
	ClientName      *string                        `json:"client_name"`
}

func (c *Client) GetLinkToken(ctx context.Context, linkToken string) (*GetLinkTokenResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[getLinkTokenRequest, GetLinkTokenResponse](ctx, c, "link/token/get", getLinkTokenRequest{
		Credentials: c.credentials,
		LinkToken:   linkToken,
	})
}
