/**
 * @description
 * This file defines the common Consent model. Every vendor's consent
 * response is normalized into this shape before it leaves the Open Banking
 * layer; vendor-specific field names never cross that boundary.
 */
package domain

import "time"

// ConsentStatus is the normalized lifecycle state of an account-access consent.
type ConsentStatus string

const (
	ConsentAuthorised            ConsentStatus = "AUTHORISED"
	ConsentAwaitingAuthorisation ConsentStatus = "AWAITING_AUTHORISATION"
	ConsentRejected              ConsentStatus = "REJECTED"
	ConsentExpired               ConsentStatus = "EXPIRED"
	ConsentRevoked               ConsentStatus = "REVOKED"
)

// Consent is a time-boxed, scope-limited authorization granted by a bank
// customer. It is created in AWAITING_AUTHORISATION and only transitions
// through vendor-side state reflected by later polls.
type Consent struct {
	ConsentID        string        `json:"consent_id"`
	Status           ConsentStatus `json:"status"`
	Permissions      []string      `json:"permissions"`
	ExpirationDate   time.Time     `json:"expiration_date"`
	AuthorisationURL string        `json:"authorisation_url,omitempty"`
}

// Expired reports whether the consent's expiration timestamp has passed.
func (c Consent) Expired(now time.Time) bool {
	return !c.ExpirationDate.IsZero() && now.After(c.ExpirationDate)
}
