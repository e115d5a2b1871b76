package plaid

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type Holding struct {
	AccountID              string              `json:"account_id"`
	SecurityID             string              `json:"security_id"`
	InstitutionPrice       decimal.Decimal     `json:"institution_price"`
	InstitutionPriceAsOf   *civil.Date         `json:"institution_price_as_of"`
	InstitutionValue       decimal.Decimal     `json:"institution_value"`
	CostBasis              decimal.NullDecimal `json:"cost_basis"`
	Quantity               decimal.Decimal     `json:"quantity"`
	ISOCurrencyCode        *string             `json:"iso_currency_code"`
	UnofficialCurrencyCode *string             `json:"unofficial_currency_code"`
}

type GetInvestmentHoldingsResponse struct {
	ResponseMeta
	Accounts   []Account  `json:"accounts" validate:"required"`
	Holdings   []Holding  `json:"holdings" validate:"required"`
	Securities []Security `json:"securities" validate:"required"`
	Item       Item       `json:"item"`
}

func (c *Client) GetInvestmentHoldings(ctx context.Context, accessToken string, opts *AccountsOptions) (*GetInvestmentHoldingsResponse, error) {
	return sendAccounts[GetInvestmentHoldingsResponse](ctx, c, "investments/holdings/get", accessToken, opts)
}

type InvestmentTransaction struct {
	InvestmentTransactionID string              `json:"investment_transaction_id"`
	CancelTransactionID     *string             `json:"cancel_transaction_id"`
	AccountID               string              `json:"account_id"`
	SecurityID              *string             `json:"security_id"`
	Date                    civil.Date          `json:"date"`
	Name                    string              `json:"name"`
	Quantity                decimal.Decimal     `json:"quantity"`
	Amount                  decimal.Decimal     `json:"amount"`
	Price                   decimal.Decimal     `json:"price"`
	Fees                    decimal.NullDecimal `json:"fees"`
	Type                    string              `json:"type"`
	Subtype                 string              `json:"subtype"`
	ISOCurrencyCode         *string             `json:"iso_currency_code"`
	UnofficialCurrencyCode  *string             `json:"unofficial_currency_code"`
}

type GetInvestmentTransactionsResponse struct {
	ResponseMeta
	Accounts                    []Account               `json:"accounts" validate:"required"`
	Securities                  []Security              `json:"securities" validate:"required"`
	InvestmentTransactions      []InvestmentTransaction `json:"investment_transactions" validate:"required"`
	TotalInvestmentTransactions int                     `json:"total_investment_transactions"`
	Item                        Item                    `json:"item"`
}

func (c *Client) GetInvestmentTransactions(ctx context.Context, accessToken string, start, end civil.Date, opts *GetTransactionsOptions) (*GetInvestmentTransactionsResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[getTransactionsRequest, GetInvestmentTransactionsResponse](ctx, c, "investments/transactions/get", getTransactionsRequest{
		Credentials: c.credentials,
		AccessToken: accessToken,
		StartDate:   start,
		EndDate:     end,
		Options:     opts,
	})
}
