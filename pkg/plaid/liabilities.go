package plaid

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type GetLiabilitiesResponse struct {
	ResponseMeta
	Accounts    []Account   `json:"accounts" validate:"required"`
	Item        Item        `json:"item"`
	Liabilities Liabilities `json:"liabilities"`
}

type Liabilities struct {
	Credit   []CreditLiability      `json:"credit"`
	Mortgage []MortgageLiability    `json:"mortgage"`
	Student  []StudentLoanLiability `json:"student"`
}

type CreditLiability struct {
	AccountID              *string         `json:"account_id"`
	APRs                   []APR           `json:"aprs"`
	IsOverdue              *bool           `json:"is_overdue"`
	LastPaymentAmount      decimal.Decimal `json:"last_payment_amount"`
	LastPaymentDate        *civil.Date     `json:"last_payment_date"`
	LastStatementBalance   decimal.Decimal `json:"last_statement_balance"`
	LastStatementIssueDate civil.Date      `json:"last_statement_issue_date"`
	MinimumPaymentAmount   decimal.Decimal `json:"minimum_payment_amount"`
	NextPaymentDueDate     *civil.Date     `json:"next_payment_due_date"`
}

type APR struct {
	APRPercentage        decimal.Decimal     `json:"apr_percentage"`
	APRType              string              `json:"apr_type"`
	BalanceSubjectToAPR  decimal.NullDecimal `json:"balance_subject_to_apr"`
	InterestChargeAmount decimal.NullDecimal `json:"interest_charge_amount"`
}

type MortgageLiability struct {
	AccountID                  *string                 `json:"account_id"`
	AccountNumber              string                  `json:"account_number"`
	CurrentLateFee             decimal.NullDecimal     `json:"current_late_fee"`
	EscrowBalance              decimal.NullDecimal     `json:"escrow_balance"`
	HasPMI                     *bool                   `json:"has_pmi"`
	HasPrepaymentPenalty       *bool                   `json:"has_prepayment_penalty"`
	InterestRate               MortgageInterestRate    `json:"interest_rate"`
	LastPaymentAmount          decimal.NullDecimal     `json:"last_payment_amount"`
	LastPaymentDate            *civil.Date             `json:"last_payment_date"`
	LoanTypeDescription        *string                 `json:"loan_type_description"`
	LoanTerm                   *string                 `json:"loan_term"`
	MaturityDate               *civil.Date             `json:"maturity_date"`
	NextMonthlyPayment         decimal.NullDecimal     `json:"next_monthly_payment"`
	NextPaymentDueDate         *civil.Date             `json:"next_payment_due_date"`
	OriginationDate            *civil.Date             `json:"origination_date"`
	OriginationPrincipalAmount decimal.NullDecimal     `json:"origination_principal_amount"`
	PastDueAmount              decimal.NullDecimal     `json:"past_due_amount"`
	PropertyAddress            MortgagePropertyAddress `json:"property_address"`
	YTDInterestPaid            decimal.NullDecimal     `json:"ytd_interest_paid"`
	YTDPrincipalPaid           decimal.NullDecimal     `json:"ytd_principal_paid"`
}

type MortgageInterestRate struct {
	Percentage decimal.NullDecimal `json:"percentage"`
	Type       *string             `json:"type"`
}

type MortgagePropertyAddress struct {
	City       *string `json:"city"`
	Country    *string `json:"country"`
	PostalCode *string `json:"postal_code"`
	Region     *string `json:"region"`
	Street     *string `json:"street"`
}

type StudentLoanLiability struct {
	AccountID                  *string                    `json:"account_id"`
	AccountNumber              *string                    `json:"account_number"`
	DisbursementDates          []civil.Date               `json:"disbursement_dates"`
	ExpectedPayoffDate         *civil.Date                `json:"expected_payoff_date"`
	Guarantor                  *string                    `json:"guarantor"`
	InterestRatePercentage     decimal.Decimal            `json:"interest_rate_percentage"`
	IsOverdue                  *bool                      `json:"is_overdue"`
	LastPaymentAmount          decimal.NullDecimal        `json:"last_payment_amount"`
	LastPaymentDate            *civil.Date                `json:"last_payment_date"`
	LastStatementBalance       decimal.NullDecimal        `json:"last_statement_balance"`
	LastStatementIssueDate     *civil.Date                `json:"last_statement_issue_date"`
	LoanName                   *string                    `json:"loan_name"`
	LoanStatus                 StudentLoanStatus          `json:"loan_status"`
	MinimumPaymentAmount       decimal.NullDecimal        `json:"minimum_payment_amount"`
	NextPaymentDueDate         *civil.Date                `json:"next_payment_due_date"`
	OriginationDate            *civil.Date                `json:"origination_date"`
	OriginationPrincipalAmount decimal.NullDecimal        `json:"origination_principal_amount"`
	OutstandingInterestAmount  decimal.NullDecimal        `json:"outstanding_interest_amount"`
	PaymentReferenceNumber     *string                    `json:"payment_reference_number"`
	PSLFStatus                 PSLFStatus                 `json:"pslf_status"`
	RepaymentPlan              StudentLoanRepaymentPlan   `json:"repayment_plan"`
	SequenceNumber             *string                    `json:"sequence_number"`
	ServicerAddress            StudentLoanServicerAddress `json:"servicer_address"`
	YTDInterestPaid            decimal.NullDecimal        `json:"ytd_interest_paid"`
	YTDPrincipalPaid           decimal.NullDecimal        `json:"ytd_principal_paid"`
}

type StudentLoanStatus struct {
	EndDate *civil.Date `json:"end_date"`
	Type    *string     `json:"type"`
}

type PSLFStatus struct {
	EstimatedEligibilityDate *civil.Date `json:"estimated_eligibility_date"`
	PaymentsMade             *int        `json:"payments_made"`
	PaymentsRemaining        *int        `json:"payments_remaining"`
}

type StudentLoanRepaymentPlan struct {
	Description *string `json:"description"`
	Type        *string `json:"type"`
}

type StudentLoanServicerAddress struct {
	City       *string `json:"city"`
	Region     *string `json:"region"`
	Country    *string `json:"country"`
	PostalCode *string `json:"postal_code"`
	Street     *string `json:"street"`
}

// GetLiabilities returns credit card, mortgage and student loan details for an Item.
func (c *Client) GetLiabilities(ctx context.Context, accessToken string, opts *AccountsOptions) (*GetLiabilitiesResponse, error) {
	return sendAccounts[GetLiabilitiesResponse](ctx, c, "liabilities/get", accessToken, opts)
}
