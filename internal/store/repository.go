/**
 * @description
 * This file defines the repository interfaces the application layer
 * depends on. Concrete implementations live alongside in this package;
 * tests substitute stubs.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// UserRepository manages marketplace user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
}

// VerificationRepository persists the audit trail of validation attempts.
type VerificationRepository interface {
	CreateVerification(ctx context.Context, record *domain.VerificationRecord) (*domain.VerificationRecord, error)
	ListVerificationsByUserID(ctx context.Context, userID string, limit int) ([]domain.VerificationRecord, error)
}

// ConsentRepository tracks consent snapshots so expired consents can be
// swept without polling the vendor.
type ConsentRepository interface {
	UpsertConsent(ctx context.Context, userID, providerID string, consent *domain.Consent) error
	GetConsent(ctx context.Context, consentID string) (*domain.Consent, error)
	UpdateConsentStatus(ctx context.Context, consentID string, status domain.ConsentStatus) error
	MarkExpiredConsents(ctx context.Context, now time.Time) (int64, error)
}
