package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vicky55567123/tutorhub-sub000/internal/app"
	"github.com/vicky55567123/tutorhub-sub000/internal/config"
	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
	"github.com/vicky55567123/tutorhub-sub000/internal/openbanking"
	"github.com/vicky55567123/tutorhub-sub000/internal/store"
	"github.com/vicky55567123/tutorhub-sub000/pkg/middleware"
)

const testJWTSecret = "test-secret"

type userRepoStub struct {
	users map[string]*domain.User
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[string]*domain.User)}
}

func (s *userRepoStub) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	created := *user
	created.ID = fmt.Sprintf("user-%d", len(s.users)+1)
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	s.users[created.Email] = &created
	return &created, nil
}

func (s *userRepoStub) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, store.ErrNotFound
}

type verificationRepoStub struct {
	records []domain.VerificationRecord
}

func (s *verificationRepoStub) CreateVerification(ctx context.Context, record *domain.VerificationRecord) (*domain.VerificationRecord, error) {
	stored := *record
	stored.ID = fmt.Sprintf("rec-%d", len(s.records)+1)
	stored.CreatedAt = time.Now()
	s.records = append(s.records, stored)
	return &stored, nil
}

func (s *verificationRepoStub) ListVerificationsByUserID(ctx context.Context, userID string, limit int) ([]domain.VerificationRecord, error) {
	var out []domain.VerificationRecord
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type consentRepoStub struct{}

func (s *consentRepoStub) UpsertConsent(ctx context.Context, userID, providerID string, consent *domain.Consent) error {
	return nil
}

func (s *consentRepoStub) GetConsent(ctx context.Context, consentID string) (*domain.Consent, error) {
	return nil, store.ErrNotFound
}

func (s *consentRepoStub) UpdateConsentStatus(ctx context.Context, consentID string, status domain.ConsentStatus) error {
	return nil
}

func (s *consentRepoStub) MarkExpiredConsents(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type producerStub struct{}

func (p *producerStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	return nil
}

type obClientStub struct {
	verification *domain.NameVerification
	verifyErr    error
	payment      *domain.PaymentInitiation
}

func (c *obClientStub) Provider() domain.Provider {
	return domain.Provider{ID: "truelayer", DisplayName: "TrueLayer"}
}

func (c *obClientStub) CreateAccountConsent(ctx context.Context, permissions []string) (*domain.Consent, error) {
	return &domain.Consent{
		ConsentID:        "consent-1",
		Status:           domain.ConsentAwaitingAuthorisation,
		Permissions:      permissions,
		AuthorisationURL: "https://auth.example.com/consent-1",
	}, nil
}

func (c *obClientStub) ExchangeCodeForToken(ctx context.Context, code, consentID string) (string, error) {
	return "access-token-1", nil
}

func (c *obClientStub) GetAccounts(ctx context.Context, accessToken string) ([]domain.Account, error) {
	return []domain.Account{{AccountID: "acc-1", AccountHolderName: "John Smith", SortCode: "200000", AccountNumber: "12345678"}}, nil
}

func (c *obClientStub) VerifyAccountHolderName(ctx context.Context, accessToken, accountID, expectedName string) (*domain.NameVerification, error) {
	if c.verifyErr != nil {
		return nil, c.verifyErr
	}
	return c.verification, nil
}

func (c *obClientStub) CreatePayment(ctx context.Context, accessToken string, req openbanking.PaymentRequest) (*domain.PaymentInitiation, error) {
	if c.payment != nil {
		return c.payment, nil
	}
	return &domain.PaymentInitiation{
		PaymentID:       "pay-1",
		Status:          domain.PaymentPending,
		Amount:          req.Amount,
		Currency:        req.Currency,
		CreditorAccount: req.Creditor,
		Reference:       req.Reference,
	}, nil
}

func (c *obClientStub) GetPaymentStatus(ctx context.Context, accessToken, paymentID string) (*domain.PaymentInitiation, error) {
	return &domain.PaymentInitiation{PaymentID: paymentID, Status: domain.PaymentExecuted}, nil
}

func (c *obClientStub) RevokeConsent(ctx context.Context, accessToken, consentID string) bool {
	return true
}

func newTestRouter(t *testing.T, obClient app.OpenBankingClient) (http.Handler, *userRepoStub) {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:                 testJWTSecret,
		ValidationRateLimit:       0, // disabled in tests
		ValidationRateLimitWindow: 60,
	}

	users := newUserRepoStub()
	validationService := app.NewValidationService(&verificationRepoStub{}, obClient, &producerStub{}, domain.VerificationModeLive)
	paymentService := app.NewPaymentService(obClient, &consentRepoStub{}, &producerStub{})

	router := NewRouter(cfg, RouterDeps{
		Users:             users,
		ValidationService: validationService,
		PaymentService:    paymentService,
	})
	return router, users
}

func authedRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	token, err := middleware.IssueToken(testJWTSecret, "user-1")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegisterAndLogin(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	registerBody := RegisterRequest{
		Email:    "Jane@Example.com",
		Password: "correct-horse",
		FullName: "Jane Doe",
		Role:     "tutor",
	}
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(registerBody)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", &buf))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var registered AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &registered); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	if registered.Token == "" {
		t.Error("expected a token in the register response")
	}
	if registered.User.Email != "jane@example.com" {
		t.Errorf("expected lowercased email, got %q", registered.User.Email)
	}
	if registered.User.Role != domain.RoleTutor {
		t.Errorf("expected tutor role, got %q", registered.User.Role)
	}

	// Duplicate registration is rejected.
	buf.Reset()
	json.NewEncoder(&buf).Encode(registerBody)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", &buf))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}

	// Login with the right password succeeds.
	buf.Reset()
	json.NewEncoder(&buf).Encode(LoginRequest{Email: "jane@example.com", Password: "correct-horse"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", &buf))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on login, got %d: %s", rec.Code, rec.Body.String())
	}

	// Login with the wrong password fails.
	buf.Reset()
	json.NewEncoder(&buf).Encode(LoginRequest{Email: "jane@example.com", Password: "wrong"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", &buf))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", rec.Code)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	tests := []struct {
		name string
		body RegisterRequest
	}{
		{name: "missing email", body: RegisterRequest{Password: "long-enough"}},
		{name: "short password", body: RegisterRequest{Email: "a@b.com", Password: "short"}},
		{name: "unknown role", body: RegisterRequest{Email: "a@b.com", Password: "long-enough", Role: "admin"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			json.NewEncoder(&buf).Encode(tc.body)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", &buf))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestValidationEndpointsRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/validation/bank-details", bytes.NewBufferString("{}")))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestValidateBankDetailsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/validation/bank-details", ValidateBankDetailsRequest{
		SortCode:          "12-34",
		AccountNumber:     "12345678",
		AccountHolderName: "John Smith",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result app.BankDetailsResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.SortCodeValid {
		t.Error("expected sort_code_valid=false for a 4-digit sort code")
	}
	if !result.AccountNumberValid {
		t.Error("expected account_number_valid=true")
	}
	if result.Mode != domain.VerificationModeLive {
		t.Errorf("expected live mode label, got %q", result.Mode)
	}
}

func TestValidateNameEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/validation/name", ValidateNameRequest{AccountHolderName: "John Smith"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.NameValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.IsValid {
		t.Errorf("expected 'John Smith' to validate, got %+v", result)
	}
}

func TestListProvidersEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var providers []domain.Provider
	if err := json.Unmarshal(rec.Body.Bytes(), &providers); err != nil {
		t.Fatalf("failed to decode providers: %v", err)
	}
	if len(providers) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(providers))
	}
}

func TestCreateConsentEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/payments/consents", CreateConsentRequest{
		Permissions: []string{"ReadAccountsDetail"},
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var consent domain.Consent
	if err := json.Unmarshal(rec.Body.Bytes(), &consent); err != nil {
		t.Fatalf("failed to decode consent: %v", err)
	}
	if consent.AuthorisationURL == "" {
		t.Error("expected an authorisation URL")
	}
	if consent.Status != domain.ConsentAwaitingAuthorisation {
		t.Errorf("expected AWAITING_AUTHORISATION, got %q", consent.Status)
	}
}

func TestExchangeTokenEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/payments/consents/consent-1/token", ExchangeTokenRequest{Code: "auth-code"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ExchangeTokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AccessToken != "access-token-1" {
		t.Errorf("expected access-token-1, got %q", resp.AccessToken)
	}

	// Missing code is a bad request.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/payments/consents/consent-1/token", ExchangeTokenRequest{}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a code, got %d", rec.Code)
	}
}

func TestGetAccountsRequiresBankToken(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/payments/accounts", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without X-Bank-Token, got %d", rec.Code)
	}

	req := authedRequest(t, http.MethodGet, "/payments/accounts", nil)
	req.Header.Set("X-Bank-Token", "access-token-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var accounts []domain.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &accounts); err != nil {
		t.Fatalf("failed to decode accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0].AccountID != "acc-1" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
}

func TestVerifyNameEndpoint(t *testing.T) {
	stub := &obClientStub{
		verification: &domain.NameVerification{Verified: true, Match: domain.NameMatchExact, Confidence: 100, ActualName: "John Smith"},
	}
	router, _ := newTestRouter(t, stub)

	req := authedRequest(t, http.MethodPost, "/payments/verify-name", VerifyNameRequest{AccountID: "acc-1", ExpectedName: "John Smith"})
	req.Header.Set("X-Bank-Token", "access-token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var verification domain.NameVerification
	if err := json.Unmarshal(rec.Body.Bytes(), &verification); err != nil {
		t.Fatalf("failed to decode verification: %v", err)
	}
	if !verification.Verified || verification.Match != domain.NameMatchExact {
		t.Fatalf("unexpected verification: %+v", verification)
	}
}

func TestVerifyNameAccountNotFound(t *testing.T) {
	stub := &obClientStub{verifyErr: openbanking.ErrAccountNotFound}
	router, _ := newTestRouter(t, stub)

	req := authedRequest(t, http.MethodPost, "/payments/verify-name", VerifyNameRequest{AccountID: "missing", ExpectedName: "John Smith"})
	req.Header.Set("X-Bank-Token", "access-token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown account, got %d", rec.Code)
	}
}

func TestCreatePaymentEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	req := authedRequest(t, http.MethodPost, "/payments/", CreatePaymentRequest{
		Amount:            "45.00",
		Currency:          "GBP",
		Reference:         "Maths tutoring",
		SortCode:          "20-00-00",
		AccountNumber:     "12345678",
		AccountHolderName: "John Smith",
	})
	req.Header.Set("X-Bank-Token", "access-token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var payment domain.PaymentInitiation
	if err := json.Unmarshal(rec.Body.Bytes(), &payment); err != nil {
		t.Fatalf("failed to decode payment: %v", err)
	}
	if payment.PaymentID != "pay-1" || payment.Amount != "45.00" {
		t.Fatalf("unexpected payment: %+v", payment)
	}

	// Invalid creditor details are rejected before the vendor is called.
	req = authedRequest(t, http.MethodPost, "/payments/", CreatePaymentRequest{
		Amount:        "45.00",
		Currency:      "GBP",
		SortCode:      "bad",
		AccountNumber: "12345678",
	})
	req.Header.Set("X-Bank-Token", "access-token-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid sort code, got %d", rec.Code)
	}
}

func TestGetPaymentStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	req := authedRequest(t, http.MethodGet, "/payments/pay-1", nil)
	req.Header.Set("X-Bank-Token", "access-token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payment domain.PaymentInitiation
	if err := json.Unmarshal(rec.Body.Bytes(), &payment); err != nil {
		t.Fatalf("failed to decode payment: %v", err)
	}
	if payment.Status != domain.PaymentExecuted {
		t.Errorf("expected EXECUTED, got %q", payment.Status)
	}
}

func TestRevokeConsentEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	req := authedRequest(t, http.MethodDelete, "/payments/consents/consent-1", nil)
	req.Header.Set("X-Bank-Token", "access-token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp RevokeConsentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Revoked {
		t.Error("expected revoked=true")
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &obClientStub{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// Without vendor credentials the server runs with no Open Banking client;
// the payment endpoints must answer 503 rather than crash.
func TestPaymentEndpointsWithoutOpenBankingClient(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/payments/consents", CreateConsentRequest{
		Permissions: []string{"ReadAccountsDetail"},
	}))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 creating a consent without a client, got %d: %s", rec.Code, rec.Body.String())
	}

	req := authedRequest(t, http.MethodGet, "/payments/accounts", nil)
	req.Header.Set("X-Bank-Token", "tok")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 fetching accounts without a client, got %d: %s", rec.Code, rec.Body.String())
	}

	req = authedRequest(t, http.MethodPost, "/payments/", CreatePaymentRequest{
		Amount:        "45.00",
		Currency:      "GBP",
		SortCode:      "20-00-00",
		AccountNumber: "12345678",
	})
	req.Header.Set("X-Bank-Token", "tok")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 creating a payment without a client, got %d: %s", rec.Code, rec.Body.String())
	}
}

type failingVerificationRepo struct{}

func (failingVerificationRepo) CreateVerification(ctx context.Context, record *domain.VerificationRecord) (*domain.VerificationRecord, error) {
	return nil, fmt.Errorf("connection refused")
}

func (failingVerificationRepo) ListVerificationsByUserID(ctx context.Context, userID string, limit int) ([]domain.VerificationRecord, error) {
	return nil, fmt.Errorf("connection refused")
}

// Storage failures must surface as a generic message; driver detail stays
// in the server log.
func TestValidateBankDetailsHidesInternalErrors(t *testing.T) {
	cfg := &config.Config{JWTSecret: testJWTSecret}
	validationService := app.NewValidationService(failingVerificationRepo{}, &obClientStub{}, &producerStub{}, domain.VerificationModeLive)
	paymentService := app.NewPaymentService(&obClientStub{}, &consentRepoStub{}, &producerStub{})
	router := NewRouter(cfg, RouterDeps{
		Users:             newUserRepoStub(),
		ValidationService: validationService,
		PaymentService:    paymentService,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/validation/bank-details", ValidateBankDetailsRequest{
		SortCode:          "20-00-00",
		AccountNumber:     "12345678",
		AccountHolderName: "John Smith",
	}))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("repository detail leaked to the client: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Failed to validate bank details") {
		t.Fatalf("expected generic failure message, got %s", rec.Body.String())
	}
}
