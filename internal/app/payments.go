/**
 * @description
 * PaymentService drives the consent and payment lifecycle against the
 * configured Open Banking provider: consent creation, the OAuth code
 * exchange, account fetches, payment initiation and status polls, and
 * consent revocation. Consent snapshots are persisted so the expiry sweep
 * can run without polling the vendor.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
	"github.com/vicky55567123/tutorhub-sub000/internal/openbanking"
	"github.com/vicky55567123/tutorhub-sub000/internal/store"
)

// ErrOpenBankingNotConfigured is returned when a consent or payment
// operation is attempted while the service runs without an Open Banking
// client (simulated mode with no vendor credentials).
var ErrOpenBankingNotConfigured = errors.New("open banking is not configured")

// PaymentService orchestrates Open Banking consents and payments.
type PaymentService struct {
	obClient    OpenBankingClient
	consentRepo store.ConsentRepository
	producer    EventPublisher
}

// NewPaymentService creates a new instance of PaymentService.
func NewPaymentService(obClient OpenBankingClient, consentRepo store.ConsentRepository, producer EventPublisher) *PaymentService {
	return &PaymentService{
		obClient:    obClient,
		consentRepo: consentRepo,
		producer:    producer,
	}
}

// CreateConsent asks the provider for a new account-access consent and
// stores a snapshot of it for the requesting user.
func (s *PaymentService) CreateConsent(ctx context.Context, userID string, permissions []string) (*domain.Consent, error) {
	if s.obClient == nil {
		return nil, ErrOpenBankingNotConfigured
	}

	consent, err := s.obClient.CreateAccountConsent(ctx, permissions)
	if err != nil {
		return nil, err
	}

	if err := s.consentRepo.UpsertConsent(ctx, userID, s.obClient.Provider().ID, consent); err != nil {
		// The consent exists at the vendor; losing the snapshot only
		// affects the local expiry sweep.
		log.Printf("Failed to store consent snapshot %s: %v", consent.ConsentID, err)
	}
	return consent, nil
}

// ExchangeCode completes the OAuth authorization-code exchange for a
// consent and marks the tracked snapshot authorised.
func (s *PaymentService) ExchangeCode(ctx context.Context, code, consentID string) (string, error) {
	if s.obClient == nil {
		return "", ErrOpenBankingNotConfigured
	}

	token, err := s.obClient.ExchangeCodeForToken(ctx, code, consentID)
	if err != nil {
		return "", err
	}

	if err := s.consentRepo.UpdateConsentStatus(ctx, consentID, domain.ConsentAuthorised); err != nil {
		log.Printf("Failed to update consent snapshot %s: %v", consentID, err)
	}
	return token, nil
}

// GetAccounts fetches the consented accounts.
func (s *PaymentService) GetAccounts(ctx context.Context, accessToken string) ([]domain.Account, error) {
	if s.obClient == nil {
		return nil, ErrOpenBankingNotConfigured
	}
	return s.obClient.GetAccounts(ctx, accessToken)
}

// VerifyAccountHolderName checks an expected name against the vendor-held
// account name.
func (s *PaymentService) VerifyAccountHolderName(ctx context.Context, accessToken, accountID, expectedName string) (*domain.NameVerification, error) {
	if s.obClient == nil {
		return nil, ErrOpenBankingNotConfigured
	}
	return s.obClient.VerifyAccountHolderName(ctx, accessToken, accountID, expectedName)
}

// CreatePaymentInput defines the required input for initiating a payment.
type CreatePaymentInput struct {
	UserID            string
	AccessToken       string
	Amount            string
	Currency          string
	Reference         string
	SortCode          string
	AccountNumber     string
	AccountHolderName string
}

// CreatePayment initiates a payment to the given UK account and publishes
// a payment.initiated event.
func (s *PaymentService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*domain.PaymentInitiation, error) {
	if s.obClient == nil {
		return nil, ErrOpenBankingNotConfigured
	}
	if input.Amount == "" || input.Currency == "" {
		return nil, fmt.Errorf("amount and currency are required")
	}

	payment, err := s.obClient.CreatePayment(ctx, input.AccessToken, openbanking.PaymentRequest{
		Amount:   input.Amount,
		Currency: input.Currency,
		Creditor: domain.CreditorAccount{
			SortCode:          input.SortCode,
			AccountNumber:     input.AccountNumber,
			AccountHolderName: input.AccountHolderName,
		},
		Reference: input.Reference,
	})
	if err != nil {
		return nil, err
	}

	event := domain.PaymentInitiatedEvent{
		PaymentID:  payment.PaymentID,
		UserID:     input.UserID,
		Amount:     payment.Amount,
		Currency:   payment.Currency,
		Status:     payment.Status,
		ProviderID: s.obClient.Provider().ID,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, paymentEventsExchange, "payment.initiated", event); err != nil {
		log.Printf("Failed to publish payment.initiated event for %s: %v", payment.PaymentID, err)
	}

	return payment, nil
}

// GetPaymentStatus re-fetches the normalized state of a payment.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, accessToken, paymentID string) (*domain.PaymentInitiation, error) {
	if s.obClient == nil {
		return nil, ErrOpenBankingNotConfigured
	}
	return s.obClient.GetPaymentStatus(ctx, accessToken, paymentID)
}

// RevokeConsent revokes a consent at the vendor and, when that succeeds,
// marks the tracked snapshot revoked. Callers must check the returned flag.
func (s *PaymentService) RevokeConsent(ctx context.Context, accessToken, consentID string) bool {
	if s.obClient == nil {
		return false
	}

	ok := s.obClient.RevokeConsent(ctx, accessToken, consentID)
	if ok {
		if err := s.consentRepo.UpdateConsentStatus(ctx, consentID, domain.ConsentRevoked); err != nil {
			log.Printf("Failed to mark consent snapshot %s revoked: %v", consentID, err)
		}
	}
	return ok
}
