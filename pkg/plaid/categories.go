package plaid

import "context"

// Category groups.
const (
	CategoryGroupPlace   = "place"
	CategoryGroupSpecial = "special"
)

type Category struct {
	CategoryID string   `json:"category_id"`
	Group      string   `json:"group"`
	Hierarchy  []string `json:"hierarchy"`
}

type GetCategoriesResponse struct {
	ResponseMeta
	Categories []Category `json:"categories" validate:"required"`
}

// categories/get is unauthenticated and takes an empty object.
type getCategoriesRequest struct{}

func (c *Client) GetCategories(ctx context.Context) (*GetCategoriesResponse, error) {
	return Send[getCategoriesRequest, GetCategoriesResponse](ctx, c, "categories/get", getCategoriesRequest{})
}
