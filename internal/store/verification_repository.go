/**
 * @description
 * This file implements the data access layer for the verification audit
 * trail: one row per bank-detail validation attempt.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: The PostgreSQL driver.
 * - The internal domain package for the VerificationRecord model.
 */
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
)

// PostgresVerificationRepository is the PostgreSQL implementation of
// VerificationRepository.
type PostgresVerificationRepository struct {
	db *pgxpool.Pool
}

// NewPostgresVerificationRepository creates a new instance of
// PostgresVerificationRepository.
func NewPostgresVerificationRepository(db *pgxpool.Pool) *PostgresVerificationRepository {
	return &PostgresVerificationRepository{db: db}
}

// CreateVerification inserts a new verification record.
func (r *PostgresVerificationRepository) CreateVerification(ctx context.Context, record *domain.VerificationRecord) (*domain.VerificationRecord, error) {
	query := `
        INSERT INTO verification_records
            (user_id, sort_code, account_number_masked, account_holder_name, bank_name, is_valid, confidence, match, mode)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		record.UserID,
		record.SortCode,
		maskAccountNumber(record.AccountNumber),
		record.AccountHolderName,
		record.BankName,
		record.IsValid,
		record.Confidence,
		record.Match,
		record.Mode,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create verification record: %w", err)
	}
	record.AccountNumber = maskAccountNumber(record.AccountNumber)
	return record, nil
}

// ListVerificationsByUserID retrieves the most recent verification records
// for a user, newest first.
func (r *PostgresVerificationRepository) ListVerificationsByUserID(ctx context.Context, userID string, limit int) ([]domain.VerificationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
        SELECT id, user_id, sort_code, account_number_masked, account_holder_name, bank_name, is_valid, confidence, match, mode, created_at
        FROM verification_records
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verification records: %w", err)
	}
	defer rows.Close()

	var records []domain.VerificationRecord
	for rows.Next() {
		var rec domain.VerificationRecord
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.SortCode, &rec.AccountNumber, &rec.AccountHolderName,
			&rec.BankName, &rec.IsValid, &rec.Confidence, &rec.Match, &rec.Mode, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification record row: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// maskAccountNumber keeps only the last four digits of an account number.
func maskAccountNumber(accountNumber string) string {
	if len(accountNumber) <= 4 {
		return accountNumber
	}
	masked := make([]byte, len(accountNumber)-4)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + accountNumber[len(accountNumber)-4:]
}
