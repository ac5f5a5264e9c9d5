/**
 * @description
 * This file defines the common Account and PaymentInitiation models used by
 * the Open Banking layer. Accounts are read-only snapshots fetched per
 * request; payment status is pull-only and terminal in EXECUTED, REJECTED
 * and CANCELLED.
 */
package domain

// AccountType distinguishes personal from business accounts.
type AccountType string

const (
	AccountPersonal AccountType = "PERSONAL"
	AccountBusiness AccountType = "BUSINESS"
)

// AccountSubType distinguishes current from savings accounts.
type AccountSubType string

const (
	AccountCurrent AccountSubType = "CURRENT"
	AccountSavings AccountSubType = "SAVINGS"
)

// Balance is an optional account balance snapshot.
type Balance struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Account is the normalized shape of a bank account fetched from a vendor.
type Account struct {
	AccountID         string         `json:"account_id"`
	AccountNumber     string         `json:"account_number"`
	SortCode          string         `json:"sort_code"`
	AccountHolderName string         `json:"account_holder_name"`
	AccountType       AccountType    `json:"account_type"`
	AccountSubType    AccountSubType `json:"account_sub_type"`
	Currency          string         `json:"currency"`
	BankName          string         `json:"bank_name"`
	Balance           *Balance       `json:"balance,omitempty"`
}

// PaymentStatus is the normalized lifecycle state of a payment initiation.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentAuthorised PaymentStatus = "AUTHORISED"
	PaymentExecuted   PaymentStatus = "EXECUTED"
	PaymentRejected   PaymentStatus = "REJECTED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
)

// Terminal reports whether the status can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentExecuted || s == PaymentRejected || s == PaymentCancelled
}

// CreditorAccount identifies the payee by UK sort code and account number.
type CreditorAccount struct {
	AccountNumber     string `json:"account_number"`
	SortCode          string `json:"sort_code"`
	AccountHolderName string `json:"account_holder_name"`
}

// PaymentInitiation is the normalized shape of a single immediate payment.
type PaymentInitiation struct {
	PaymentID        string           `json:"payment_id"`
	Status           PaymentStatus    `json:"status"`
	Amount           string           `json:"amount"`
	Currency         string           `json:"currency"`
	CreditorAccount  CreditorAccount  `json:"creditor_account"`
	DebtorAccount    *CreditorAccount `json:"debtor_account,omitempty"`
	Reference        string           `json:"reference"`
	AuthorisationURL string           `json:"authorisation_url,omitempty"`
}
