/**
 * @description
 * This file defines the result shapes produced by the local bank-detail
 * validators and the account-holder-name verification flow, plus the audit
 * record persisted for each verification attempt.
 */
package domain

import "time"

// NameValidationResult is the outcome of the heuristic account-holder-name
// check. It is a pure computed value with no identity or persistence.
type NameValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Confidence  int      `json:"confidence"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// NameMatch classifies how closely an expected name matched the name held
// by the bank.
type NameMatch string

const (
	NameMatchExact   NameMatch = "exact"
	NameMatchPartial NameMatch = "partial"
	NameMatchNone    NameMatch = "none"
)

// NameVerification is the outcome of verifying an expected name against a
// vendor-held account name.
type NameVerification struct {
	Verified   bool      `json:"verified"`
	Match      NameMatch `json:"match"`
	Confidence int       `json:"confidence"`
	ActualName string    `json:"actual_name,omitempty"`
}

// VerificationMode records whether a verification went through a live Open
// Banking provider or the labeled simulation used without credentials.
type VerificationMode string

const (
	VerificationModeLive      VerificationMode = "live"
	VerificationModeSimulated VerificationMode = "simulated"
)

// VerificationRecord is the persisted audit trail of one validation request.
type VerificationRecord struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	SortCode          string           `json:"sort_code"`
	AccountNumber     string           `json:"account_number"`
	AccountHolderName string           `json:"account_holder_name"`
	BankName          string           `json:"bank_name,omitempty"`
	IsValid           bool             `json:"is_valid"`
	Confidence        int              `json:"confidence"`
	Match             NameMatch        `json:"match"`
	Mode              VerificationMode `json:"mode"`
	CreatedAt         time.Time        `json:"created_at"`
}
