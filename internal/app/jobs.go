/**
 * @description
 * Scheduled background jobs. The consent expiry sweep transitions tracked
 * consents whose expiration has passed into EXPIRED so stale consents are
 * never offered to users.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/vicky55567123/tutorhub-sub000/internal/store"
)

const jobTimeout = 2 * time.Minute

// Jobs holds the dependencies for scheduled jobs.
type Jobs struct {
	consentRepo store.ConsentRepository
	logger      *slog.Logger
}

// NewJobs creates a new Jobs instance.
func NewJobs(consentRepo store.ConsentRepository, logger *slog.Logger) *Jobs {
	return &Jobs{consentRepo: consentRepo, logger: logger}
}

// SweepExpiredConsents marks every tracked consent past its expiration as
// EXPIRED.
func (j *Jobs) SweepExpiredConsents() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	count, err := j.consentRepo.MarkExpiredConsents(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("consent expiry sweep failed", "error", err)
		return
	}
	if count > 0 {
		j.logger.Info("marked expired consents", "count", count)
	}
}
