/**
 * @description
 * Static catalog of the Open Banking vendors this application can talk to.
 * Descriptors are defined once at process start and looked up by id; each
 * carries display metadata, the API base URL and a capability matrix.
 */
package openbanking

import "github.com/vicky55567123/tutorhub-sub000/internal/domain"

const (
	ProviderTrueLayer = "truelayer"
	ProviderYapily    = "yapily"
	ProviderBanked    = "banked"
)

var providers = []domain.Provider{
	{
		ID:          ProviderTrueLayer,
		Name:        "TrueLayer",
		DisplayName: "TrueLayer Open Banking",
		LogoURL:     "/logos/truelayer.svg",
		APIBaseURL:  "https://api.truelayer.com",
		IsActive:    true,
		Capabilities: domain.ProviderCapabilities{
			AccountVerification:  true,
			PaymentInitiation:    true,
			BalanceCheck:         true,
			IdentityVerification: true,
		},
	},
	{
		ID:          ProviderYapily,
		Name:        "Yapily",
		DisplayName: "Yapily Connect",
		LogoURL:     "/logos/yapily.svg",
		APIBaseURL:  "https://api.yapily.com",
		IsActive:    true,
		Capabilities: domain.ProviderCapabilities{
			AccountVerification:  true,
			PaymentInitiation:    true,
			BalanceCheck:         true,
			IdentityVerification: false,
		},
	},
	{
		ID:          ProviderBanked,
		Name:        "Banked",
		DisplayName: "Banked",
		LogoURL:     "/logos/banked.svg",
		APIBaseURL:  "https://api.banked.com",
		IsActive:    true,
		Capabilities: domain.ProviderCapabilities{
			AccountVerification:  false,
			PaymentInitiation:    true,
			BalanceCheck:         false,
			IdentityVerification: false,
		},
	},
}

// Providers returns a copy of the full provider catalog.
func Providers() []domain.Provider {
	out := make([]domain.Provider, len(providers))
	copy(out, providers)
	return out
}

// ProviderByID looks up a provider descriptor. The second return value is
// false when the id is unknown.
func ProviderByID(id string) (domain.Provider, bool) {
	for _, p := range providers {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Provider{}, false
}
