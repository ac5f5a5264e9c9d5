/**
 * @description
 * This file implements the data access layer for consent snapshots. The
 * application keeps its own record of each consent's status and expiry so
 * the expiry sweep can run without polling the vendor.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: The PostgreSQL driver.
 * - The internal domain package for the Consent model.
 */
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
)

// PostgresConsentRepository is the PostgreSQL implementation of
// ConsentRepository.
type PostgresConsentRepository struct {
	db *pgxpool.Pool
}

// NewPostgresConsentRepository creates a new instance of
// PostgresConsentRepository.
func NewPostgresConsentRepository(db *pgxpool.Pool) *PostgresConsentRepository {
	return &PostgresConsentRepository{db: db}
}

// UpsertConsent stores or refreshes the snapshot for a consent.
func (r *PostgresConsentRepository) UpsertConsent(ctx context.Context, userID, providerID string, consent *domain.Consent) error {
	query := `
        INSERT INTO consents (consent_id, user_id, provider_id, status, permissions, expiration_date)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (consent_id)
        DO UPDATE SET status = EXCLUDED.status, expiration_date = EXCLUDED.expiration_date, updated_at = now()
    `
	_, err := r.db.Exec(ctx, query,
		consent.ConsentID,
		userID,
		providerID,
		consent.Status,
		consent.Permissions,
		consent.ExpirationDate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert consent: %w", err)
	}
	return nil
}

// GetConsent retrieves a consent snapshot by consent id.
func (r *PostgresConsentRepository) GetConsent(ctx context.Context, consentID string) (*domain.Consent, error) {
	query := `
        SELECT consent_id, status, permissions, expiration_date
        FROM consents
        WHERE consent_id = $1
    `
	var c domain.Consent
	err := r.db.QueryRow(ctx, query, consentID).Scan(&c.ConsentID, &c.Status, &c.Permissions, &c.ExpirationDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query consent: %w", err)
	}
	return &c, nil
}

// UpdateConsentStatus sets the tracked status of a consent.
func (r *PostgresConsentRepository) UpdateConsentStatus(ctx context.Context, consentID string, status domain.ConsentStatus) error {
	query := `UPDATE consents SET status = $2, updated_at = now() WHERE consent_id = $1`
	result, err := r.db.Exec(ctx, query, consentID, status)
	if err != nil {
		return fmt.Errorf("failed to update consent status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkExpiredConsents transitions every tracked consent whose expiration
// has passed into EXPIRED, unless it already reached a terminal state.
// It returns the number of consents transitioned.
func (r *PostgresConsentRepository) MarkExpiredConsents(ctx context.Context, now time.Time) (int64, error) {
	query := `
        UPDATE consents
        SET status = $1, updated_at = now()
        WHERE expiration_date < $2
          AND status IN ($3, $4)
    `
	result, err := r.db.Exec(ctx, query,
		domain.ConsentExpired,
		now,
		domain.ConsentAwaitingAuthorisation,
		domain.ConsentAuthorised,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired consents: %w", err)
	}
	return result.RowsAffected(), nil
}
