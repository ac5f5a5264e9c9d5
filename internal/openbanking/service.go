/**
 * @description
 * This file contains the Open Banking orchestration service. It drives the
 * consent -> token -> accounts -> name-verification -> payment -> status ->
 * revocation lifecycle against exactly one vendor, selected at construction
 * time. All vendor knowledge lives in the per-vendor strategy types; this
 * layer guarantees callers only ever see the normalized domain shapes and
 * sanitized error messages.
 *
 * @notes
 * - Constructing the service with an unknown or inactive provider id fails
 *   fast instead of deferring to a later nil dereference.
 * - Raw vendor errors (status + body) are logged here before the sanitized
 *   error is returned. Nothing is retried.
 */
package openbanking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
)

// ErrAccountNotFound is returned when the requested account id is absent
// from the accounts the vendor returned.
var ErrAccountNotFound = errors.New("account not found")

// PaymentRequest is the normalized input for initiating a payment.
type PaymentRequest struct {
	Amount    string
	Currency  string
	Creditor  domain.CreditorAccount
	Debtor    *domain.CreditorAccount
	Reference string
}

// vendorAPI is implemented once per Open Banking vendor. Every method
// either returns a fully normalized value or an error; partially
// normalized results are never produced.
type vendorAPI interface {
	CreateAccountConsent(ctx context.Context, permissions []string) (*domain.Consent, error)
	ExchangeCodeForToken(ctx context.Context, code, consentID string) (string, error)
	GetAccounts(ctx context.Context, accessToken string) ([]domain.Account, error)
	CreatePayment(ctx context.Context, accessToken string, req PaymentRequest) (*domain.PaymentInitiation, error)
	GetPaymentStatus(ctx context.Context, accessToken, paymentID string) (*domain.PaymentInitiation, error)
	RevokeConsent(ctx context.Context, accessToken, consentID string) error
}

// Service orchestrates the Open Banking lifecycle for one provider.
type Service struct {
	provider domain.Provider
	vendor   vendorAPI
}

// NewService creates a Service for the given provider id. It returns a
// configuration error when the id is unknown or the provider is inactive.
func NewService(providerID string, creds Credentials) (*Service, error) {
	provider, ok := ProviderByID(providerID)
	if !ok {
		return nil, fmt.Errorf("unknown open banking provider %q", providerID)
	}
	if !provider.IsActive {
		return nil, fmt.Errorf("open banking provider %q is not active", providerID)
	}

	client := newHTTPClient()
	var vendor vendorAPI
	switch provider.ID {
	case ProviderTrueLayer:
		vendor = &trueLayerAPI{baseURL: provider.APIBaseURL, creds: creds, http: client}
	case ProviderYapily:
		vendor = &yapilyAPI{baseURL: provider.APIBaseURL, creds: creds, http: client}
	case ProviderBanked:
		vendor = &bankedAPI{baseURL: provider.APIBaseURL, creds: creds, http: client}
	default:
		return nil, fmt.Errorf("no client implementation for provider %q", providerID)
	}

	return &Service{provider: provider, vendor: vendor}, nil
}

// newServiceWithVendor wires a custom vendor implementation, used by tests.
func newServiceWithVendor(provider domain.Provider, vendor vendorAPI) *Service {
	return &Service{provider: provider, vendor: vendor}
}

// Provider returns the descriptor of the provider this service talks to.
func (s *Service) Provider() domain.Provider {
	return s.provider
}

// CreateAccountConsent asks the vendor for a new account-access consent.
func (s *Service) CreateAccountConsent(ctx context.Context, permissions []string) (*domain.Consent, error) {
	consent, err := s.vendor.CreateAccountConsent(ctx, permissions)
	if err != nil {
		s.logVendorError("create consent", err)
		return nil, errors.New("Unable to set up bank account access. Please try again.")
	}
	return consent, nil
}

// ExchangeCodeForToken performs the OAuth2 authorization-code exchange and
// returns the bearer access token.
func (s *Service) ExchangeCodeForToken(ctx context.Context, code, consentID string) (string, error) {
	token, err := s.vendor.ExchangeCodeForToken(ctx, code, consentID)
	if err != nil {
		s.logVendorError("token exchange", err)
		return "", errors.New("Unable to complete bank authorisation. Please try again.")
	}
	return token, nil
}

// GetAccounts fetches the accounts the consent granted access to.
func (s *Service) GetAccounts(ctx context.Context, accessToken string) ([]domain.Account, error) {
	accounts, err := s.vendor.GetAccounts(ctx, accessToken)
	if err != nil {
		s.logVendorError("fetch accounts", err)
		return nil, errors.New("Unable to fetch your bank accounts. Please try again.")
	}
	return accounts, nil
}

// VerifyAccountHolderName fetches accounts, locates the target by id and
// compares the expected name with the vendor-held name. A result is
// verified only when the match is not "none" and confidence is at least 70.
func (s *Service) VerifyAccountHolderName(ctx context.Context, accessToken, accountID, expectedName string) (*domain.NameVerification, error) {
	accounts, err := s.GetAccounts(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var account *domain.Account
	for i := range accounts {
		if accounts[i].AccountID == accountID {
			account = &accounts[i]
			break
		}
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	match, confidence := matchNames(expectedName, account.AccountHolderName)
	return &domain.NameVerification{
		Verified:   match != domain.NameMatchNone && confidence >= 70,
		Match:      match,
		Confidence: confidence,
		ActualName: account.AccountHolderName,
	}, nil
}

// CreatePayment initiates a single immediate payment with the vendor.
func (s *Service) CreatePayment(ctx context.Context, accessToken string, req PaymentRequest) (*domain.PaymentInitiation, error) {
	payment, err := s.vendor.CreatePayment(ctx, accessToken, req)
	if err != nil {
		s.logVendorError("create payment", err)
		return nil, errors.New("Unable to initiate the payment. Please try again.")
	}
	return payment, nil
}

// GetPaymentStatus re-fetches and normalizes the state of a payment.
func (s *Service) GetPaymentStatus(ctx context.Context, accessToken, paymentID string) (*domain.PaymentInitiation, error) {
	payment, err := s.vendor.GetPaymentStatus(ctx, accessToken, paymentID)
	if err != nil {
		s.logVendorError("payment status", err)
		return nil, errors.New("Unable to fetch the payment status. Please try again.")
	}
	return payment, nil
}

// RevokeConsent deletes a consent at the vendor. Failures are logged and
// reported as a boolean rather than an error; callers must check the flag.
func (s *Service) RevokeConsent(ctx context.Context, accessToken, consentID string) bool {
	if err := s.vendor.RevokeConsent(ctx, accessToken, consentID); err != nil {
		s.logVendorError("revoke consent", err)
		return false
	}
	return true
}

func (s *Service) logVendorError(operation string, err error) {
	var vErr *vendorError
	if errors.As(err, &vErr) {
		log.Printf("%s API error during %s: status %d, body: %s", s.provider.Name, operation, vErr.StatusCode, vErr.Body)
		return
	}
	log.Printf("%s error during %s: %v", s.provider.Name, operation, err)
}

// normalizeName lowercases a name and strips everything but letters and
// the spaces between words.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// matchNames classifies the match between an expected and an actual
// account-holder name. Exact matches score 100. A partial match requires
// at least two shared words, or exactly one shared word when the expected
// name has exactly two words; its confidence is the shared-word count over
// the larger word count.
func matchNames(expected, actual string) (domain.NameMatch, int) {
	normExpected := normalizeName(expected)
	normActual := normalizeName(actual)

	if normExpected != "" && normExpected == normActual {
		return domain.NameMatchExact, 100
	}

	expectedWords := strings.Fields(normExpected)
	actualWords := strings.Fields(normActual)

	actualSet := make(map[string]bool, len(actualWords))
	for _, w := range actualWords {
		actualSet[w] = true
	}

	matching := 0
	for _, w := range expectedWords {
		if actualSet[w] {
			matching++
		}
	}

	maxWords := len(expectedWords)
	if len(actualWords) > maxWords {
		maxWords = len(actualWords)
	}

	if matching >= 2 || (matching == 1 && len(expectedWords) == 2) {
		return domain.NameMatchPartial, matching * 100 / maxWords
	}
	return domain.NameMatchNone, 0
}

// newIdempotencyKey builds a client-generated idempotency token from the
// current timestamp and a random suffix.
func newIdempotencyKey() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
