package domain

import "time"

// VerificationCompletedEvent is published after a bank-detail validation
// attempt finishes, successful or not.
type VerificationCompletedEvent struct {
	RecordID   string           `json:"record_id"`
	UserID     string           `json:"user_id"`
	IsValid    bool             `json:"is_valid"`
	Confidence int              `json:"confidence"`
	Mode       VerificationMode `json:"mode"`
	Timestamp  time.Time        `json:"timestamp"`
}

// PaymentInitiatedEvent is published when a payment initiation is accepted
// by the selected Open Banking provider.
type PaymentInitiatedEvent struct {
	PaymentID  string        `json:"payment_id"`
	UserID     string        `json:"user_id"`
	Amount     string        `json:"amount"`
	Currency   string        `json:"currency"`
	Status     PaymentStatus `json:"status"`
	ProviderID string        `json:"provider_id"`
	Timestamp  time.Time     `json:"timestamp"`
}
