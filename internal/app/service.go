/**
 * @description
 * This file contains the core business logic for payment validation. The
 * ValidationService combines the local heuristic validators with Open
 * Banking account verification, persists an audit record for every
 * attempt, and publishes an event with the outcome. The PaymentService
 * drives the consent and payment lifecycle against the configured Open
 * Banking provider and keeps consent snapshots in the store.
 *
 * @notes
 * - Verification runs in one of two modes. In live mode the expected name
 *   is checked against the vendor-held account name through the Open
 *   Banking service. Simulated mode is an explicit stand-in for
 *   environments without vendor credentials: it never verifies anything
 *   and every result it produces is labeled as simulated.
 */
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vicky55567123/tutorhub-sub000/internal/banking"
	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
	"github.com/vicky55567123/tutorhub-sub000/internal/openbanking"
	"github.com/vicky55567123/tutorhub-sub000/internal/store"
)

// OpenBankingClient is the slice of the Open Banking service the
// application layer depends on.
type OpenBankingClient interface {
	Provider() domain.Provider
	CreateAccountConsent(ctx context.Context, permissions []string) (*domain.Consent, error)
	ExchangeCodeForToken(ctx context.Context, code, consentID string) (string, error)
	GetAccounts(ctx context.Context, accessToken string) ([]domain.Account, error)
	VerifyAccountHolderName(ctx context.Context, accessToken, accountID, expectedName string) (*domain.NameVerification, error)
	CreatePayment(ctx context.Context, accessToken string, req openbanking.PaymentRequest) (*domain.PaymentInitiation, error)
	GetPaymentStatus(ctx context.Context, accessToken, paymentID string) (*domain.PaymentInitiation, error)
	RevokeConsent(ctx context.Context, accessToken, consentID string) bool
}

// EventPublisher publishes application events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

const paymentEventsExchange = "payment_events"

// ValidationService validates bank details locally and, in live mode,
// against the Open Banking provider.
type ValidationService struct {
	verificationRepo store.VerificationRepository
	obClient         OpenBankingClient
	producer         EventPublisher
	mode             domain.VerificationMode

	// simulatedDelay approximates vendor latency in simulated mode.
	// Tests set it to zero.
	simulatedDelay time.Duration
}

// NewValidationService creates a new instance of ValidationService.
func NewValidationService(verificationRepo store.VerificationRepository, obClient OpenBankingClient, producer EventPublisher, mode domain.VerificationMode) *ValidationService {
	return &ValidationService{
		verificationRepo: verificationRepo,
		obClient:         obClient,
		producer:         producer,
		mode:             mode,
		simulatedDelay:   time.Second,
	}
}

// ValidateBankDetailsInput defines the required input for a bank-detail
// validation attempt.
type ValidateBankDetailsInput struct {
	UserID            string
	SortCode          string
	AccountNumber     string
	AccountHolderName string

	// AccessToken and AccountID enable live verification against a
	// consented account. Both are optional; without them live mode
	// degrades to local heuristics only.
	AccessToken string
	AccountID   string
}

// BankDetailsResult is the combined outcome of one validation attempt.
type BankDetailsResult struct {
	SortCodeValid      bool                        `json:"sort_code_valid"`
	AccountNumberValid bool                        `json:"account_number_valid"`
	BankName           string                      `json:"bank_name,omitempty"`
	Name               domain.NameValidationResult `json:"name"`
	Verification       *domain.NameVerification    `json:"verification,omitempty"`
	Mode               domain.VerificationMode     `json:"mode"`
	RecordID           string                      `json:"record_id,omitempty"`
}

// ValidateBankDetails runs the local heuristics, optionally verifies the
// account-holder name through Open Banking, persists an audit record and
// publishes a verification event.
func (s *ValidationService) ValidateBankDetails(ctx context.Context, input ValidateBankDetailsInput) (*BankDetailsResult, error) {
	result := &BankDetailsResult{
		SortCodeValid:      banking.ValidateSortCode(input.SortCode),
		AccountNumberValid: banking.ValidateAccountNumber(input.AccountNumber),
		BankName:           banking.IdentifyBank(input.SortCode),
		Name:               banking.ValidateAccountHolderName(input.AccountHolderName),
		Mode:               s.mode,
	}

	if result.SortCodeValid && result.AccountNumberValid {
		verification, err := s.verifyAccountHolder(ctx, input)
		if err != nil {
			return nil, err
		}
		result.Verification = verification
	}

	record := &domain.VerificationRecord{
		UserID:            input.UserID,
		SortCode:          input.SortCode,
		AccountNumber:     input.AccountNumber,
		AccountHolderName: input.AccountHolderName,
		BankName:          result.BankName,
		IsValid:           s.overallValid(result),
		Confidence:        result.Name.Confidence,
		Match:             domain.NameMatchNone,
		Mode:              s.mode,
	}
	if result.Verification != nil {
		record.Match = result.Verification.Match
		record.Confidence = result.Verification.Confidence
	}

	stored, err := s.verificationRepo.CreateVerification(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("could not store verification record: %w", err)
	}
	result.RecordID = stored.ID

	event := domain.VerificationCompletedEvent{
		RecordID:   stored.ID,
		UserID:     input.UserID,
		IsValid:    record.IsValid,
		Confidence: record.Confidence,
		Mode:       s.mode,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, paymentEventsExchange, "payment.verification.completed", event); err != nil {
		// The validation result is already persisted; a missed event is
		// recoverable downstream.
		log.Printf("Failed to publish verification event for record %s: %v", stored.ID, err)
	}

	return result, nil
}

// ListVerifications returns the most recent validation attempts for a user.
func (s *ValidationService) ListVerifications(ctx context.Context, userID string, limit int) ([]domain.VerificationRecord, error) {
	return s.verificationRepo.ListVerificationsByUserID(ctx, userID, limit)
}

func (s *ValidationService) verifyAccountHolder(ctx context.Context, input ValidateBankDetailsInput) (*domain.NameVerification, error) {
	if s.mode == domain.VerificationModeLive {
		if s.obClient == nil || input.AccessToken == "" || input.AccountID == "" {
			return nil, nil
		}
		return s.obClient.VerifyAccountHolderName(ctx, input.AccessToken, input.AccountID, input.AccountHolderName)
	}

	// Simulated verification. This is not a vendor call: it exists so the
	// rest of the flow can be exercised without credentials, and it is
	// always labeled simulated in the stored record and the response.
	select {
	case <-time.After(s.simulatedDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &domain.NameVerification{
		Verified:   false,
		Match:      domain.NameMatchNone,
		Confidence: 0,
	}, nil
}

func (s *ValidationService) overallValid(result *BankDetailsResult) bool {
	if !result.SortCodeValid || !result.AccountNumberValid || !result.Name.IsValid {
		return false
	}
	if s.mode == domain.VerificationModeLive && result.Verification != nil {
		return result.Verification.Verified
	}
	return true
}
