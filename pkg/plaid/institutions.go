package plaid

import (
	"context"
	"encoding/json"
)

type Institution struct {
	InstitutionID  string   `json:"institution_id" validate:"required"`
	Name           string   `json:"name"`
	Products       []string `json:"products"`
	CountryCodes   []string `json:"country_codes"`
	URL            *string  `json:"url"`
	PrimaryColor   *string  `json:"primary_color"`
	Logo           *string  `json:"logo"`
	RoutingNumbers []string `json:"routing_numbers"`
	OAuth          bool     `json:"oauth"`
	// Status is only populated when include_status is requested and is passed through undecoded.
	Status json.RawMessage `json:"status,omitempty"`
}

type GetInstitutionsOptions struct {
	Products                []string `json:"products,omitempty"`
	RoutingNumbers          []string `json:"routing_numbers,omitempty"`
	OAuth                   *bool    `json:"oauth,omitempty"`
	IncludeOptionalMetadata bool     `json:"include_optional_metadata"`
}

type getInstitutionsRequest struct {
	Credentials
	Count        int                     `json:"count"`
	Offset       int                     `json:"offset"`
	CountryCodes []string                `json:"country_codes"`
	Options      *GetInstitutionsOptions `json:"options,omitempty"`
}

type GetInstitutionsResponse struct {
	ResponseMeta
	Institutions []Institution `json:"institutions" validate:"required"`
	Total        int           `json:"total"`
}

// GetInstitutions lists supported institutions, count at a time starting at offset.
func (c *Client) GetInstitutions(ctx context.Context, count, offset int, countryCodes []string, opts *GetInstitutionsOptions) (*GetInstitutionsResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[getInstitutionsRequest, GetInstitutionsResponse](ctx, c, "institutions/get", getInstitutionsRequest{
		Credentials:  c.credentials,
		Count:        count,
		Offset:       offset,
		CountryCodes: nonNilStrings(countryCodes),
		Options:      opts,
	})
}

type GetInstitutionByIDOptions struct {
	IncludeOptionalMetadata bool `json:"include_optional_metadata"`
	IncludeStatus           bool `json:"include_status"`
}

type getInstitutionByIDRequest struct {
	Credentials
	InstitutionID string                     `json:"institution_id"`
	CountryCodes  []string                   `json:"country_codes"`
	Options       *GetInstitutionByIDOptions `json:"options,omitempty"`
}

type GetInstitutionByIDResponse struct {
	ResponseMeta
	Institution Institution `json:"institution"`
}

func (c *Client) GetInstitutionByID(ctx context.Context, institutionID string, countryCodes []string, opts *GetInstitutionByIDOptions) (*GetInstitutionByIDResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[getInstitutionByIDRequest, GetInstitutionByIDResponse](ctx, c, "institutions/get_by_id", getInstitutionByIDRequest{
		Credentials:   c.credentials,
		InstitutionID: institutionID,
		CountryCodes:  nonNilStrings(countryCodes),
		Options:       opts,
	})
}

type SearchInstitutionsOptions struct {
	IncludeOptionalMetadata bool  `json:"include_optional_metadata"`
	OAuth                   *bool `json:"oauth,omitempty"`
}

type searchInstitutionsRequest struct {
	Credentials
	Query        string                     `json:"query"`
	Products     []string                   `json:"products"`
	CountryCodes []string                   `json:"country_codes"`
	Options      *SearchInstitutionsOptions `json:"options,omitempty"`
}

type SearchInstitutionsResponse struct {
	ResponseMeta
	Institutions []Institution `json:"institutions" validate:"required"`
}

func (c *Client) SearchInstitutions(ctx context.Context, query string, products, countryCodes []string, opts *SearchInstitutionsOptions) (*SearchInstitutionsResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[searchInstitutionsRequest, SearchInstitutionsResponse](ctx, c, "institutions/search", searchInstitutionsRequest{
		Credentials:  c.credentials,
		Query:        query,
		Products:     nonNilStrings(products),
		CountryCodes: nonNilStrings(countryCodes),
		Options:      opts,
	})
}

// nonNilStrings keeps required array fields from encoding as null.
func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
