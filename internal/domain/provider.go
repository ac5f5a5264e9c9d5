/**
 * @description
 * This file defines the Open Banking provider model: the static descriptor
 * for each supported vendor and its capability matrix. Descriptors are
 * defined once at startup and treated as immutable.
 */
package domain

// ProviderCapabilities describes which Open Banking features a vendor supports.
type ProviderCapabilities struct {
	AccountVerification  bool `json:"account_verification"`
	PaymentInitiation    bool `json:"payment_initiation"`
	BalanceCheck         bool `json:"balance_check"`
	IdentityVerification bool `json:"identity_verification"`
}

// Provider is the static descriptor for a supported Open Banking vendor.
type Provider struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	DisplayName  string               `json:"display_name"`
	LogoURL      string               `json:"logo_url"`
	APIBaseURL   string               `json:"api_base_url"`
	IsActive     bool                 `json:"is_active"`
	Capabilities ProviderCapabilities `json:"capabilities"`
}
