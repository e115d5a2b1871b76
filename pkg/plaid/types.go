package plaid

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Products accepted by link/token/create and sandbox/public_token/create.
const (
	ProductAuth              = "auth"
	ProductTransactions      = "transactions"
	ProductIdentity          = "identity"
	ProductInvestments       = "investments"
	ProductLiabilities       = "liabilities"
	ProductAssets            = "assets"
	ProductPaymentInitiation = "payment_initiation"
	ProductDepositSwitch     = "deposit_switch"
	ProductIncome            = "income"
)

// Account types.
const (
	AccountTypeDepository = "depository"
	AccountTypeCredit     = "credit"
	AccountTypeLoan       = "loan"
	AccountTypeInvestment = "investment"
	AccountTypeOther      = "other"
)

// AccountsOptions narrows account-scoped requests to specific account ids.
type AccountsOptions struct {
	AccountIDs []string `json:"account_ids,omitempty"`
}

type Account struct {
	AccountID          string   `json:"account_id"`
	Balances           Balances `json:"balances"`
	Mask               *string  `json:"mask"`
	Name               string   `json:"name"`
	OfficialName       *string  `json:"official_name"`
	Type               string   `json:"type"`
	Subtype            *string  `json:"subtype"`
	VerificationStatus *string  `json:"verification_status,omitempty"`
}

type Balances struct {
	Available              decimal.NullDecimal `json:"available"`
	Current                decimal.NullDecimal `json:"current"`
	Limit                  decimal.NullDecimal `json:"limit"`
	ISOCurrencyCode        *string             `json:"iso_currency_code"`
	UnofficialCurrencyCode *string             `json:"unofficial_currency_code"`
}

// Item is a login at a financial institution.
type Item struct {
	ItemID                string         `json:"item_id" validate:"required"`
	InstitutionID         *string        `json:"institution_id"`
	Webhook               *string        `json:"webhook"`
	Error                 *ErrorEnvelope `json:"error"`
	AvailableProducts     []string       `json:"available_products"`
	BilledProducts        []string       `json:"billed_products"`
	ConsentExpirationTime *time.Time     `json:"consent_expiration_time"`
	UpdateType            string         `json:"update_type,omitempty"`
}

type ItemStatus struct {
	Investments  *ProductStatus `json:"investments"`
	Transactions *ProductStatus `json:"transactions"`
	LastWebhook  *WebhookStatus `json:"last_webhook"`
}

type ProductStatus struct {
	LastSuccessfulUpdate *time.Time `json:"last_successful_update"`
	LastFailedUpdate     *time.Time `json:"last_failed_update"`
}

type WebhookStatus struct {
	SentAt   *time.Time `json:"sent_at"`
	CodeSent *string    `json:"code_sent"`
}

// Security is a holding's underlying instrument.
type Security struct {
	SecurityID             string              `json:"security_id"`
	ISIN                   *string             `json:"isin"`
	CUSIP                  *string             `json:"cusip"`
	SEDOL                  *string             `json:"sedol"`
	InstitutionSecurityID  *string             `json:"institution_security_id"`
	InstitutionID          *string             `json:"institution_id"`
	ProxySecurityID        *string             `json:"proxy_security_id"`
	Name                   *string             `json:"name"`
	TickerSymbol           *string             `json:"ticker_symbol"`
	IsCashEquivalent       bool                `json:"is_cash_equivalent"`
	Type                   *string             `json:"type"`
	ClosePrice             decimal.NullDecimal `json:"close_price"`
	ClosePriceAsOf         *civil.Date         `json:"close_price_as_of"`
	ISOCurrencyCode        *string             `json:"iso_currency_code"`
	UnofficialCurrencyCode *string             `json:"unofficial_currency_code"`
}
