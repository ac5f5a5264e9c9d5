/**
 * @description
 * This file defines the HTTP handlers for the API endpoints. Handlers are
 * responsible for parsing requests, calling the appropriate service method,
 * and writing the response.
 *
 * @dependencies
 * - Standard Go libraries for HTTP, JSON, etc.
 * - Chi router for URL parameter handling.
 * - golang.org/x/crypto/bcrypt for password hashing.
 * - The service's internal packages for app logic and middleware.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vicky55567123/tutorhub-sub000/internal/app"
	"github.com/vicky55567123/tutorhub-sub000/internal/banking"
	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
	"github.com/vicky55567123/tutorhub-sub000/internal/openbanking"
	"github.com/vicky55567123/tutorhub-sub000/internal/store"
	"github.com/vicky55567123/tutorhub-sub000/pkg/middleware"
)

// AuthHandler holds the dependencies for registration and login.
type AuthHandler struct {
	users     store.UserRepository
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users store.UserRepository, jwtSecret string) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret}
}

// RegisterRequest defines the expected JSON body for registering a user.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register handles the creation of a new marketplace user.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		http.Error(w, "a valid email is required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}
	role := domain.UserRole(req.Role)
	if role == "" {
		role = domain.RoleStudent
	}
	if role != domain.RoleStudent && role != domain.RoleTutor {
		http.Error(w, "role must be 'student' or 'tutor'", http.StatusBadRequest)
		return
	}

	if _, err := h.users.FindUserByEmail(r.Context(), req.Email); err == nil {
		http.Error(w, "an account with this email already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	user, err := h.users.CreateUser(r.Context(), &domain.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
	})
	if err != nil {
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, user.ID)
	if err != nil {
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// LoginRequest defines the expected JSON body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and returns a signed JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.users.FindUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, user.ID)
	if err != nil {
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// ValidationHandler holds the dependencies for bank-detail validation handlers.
type ValidationHandler struct {
	service *app.ValidationService
}

// NewValidationHandler creates a new ValidationHandler.
func NewValidationHandler(service *app.ValidationService) *ValidationHandler {
	return &ValidationHandler{service: service}
}

// ValidateBankDetailsRequest defines the expected JSON body for validating
// UK bank details.
type ValidateBankDetailsRequest struct {
	SortCode          string `json:"sort_code"`
	AccountNumber     string `json:"account_number"`
	AccountHolderName string `json:"account_holder_name"`
	AccessToken       string `json:"access_token,omitempty"`
	AccountID         string `json:"account_id,omitempty"`
}

// ValidateBankDetails runs the full validation flow for a set of UK bank
// details.
func (h *ValidationHandler) ValidateBankDetails(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ValidateBankDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.ValidateBankDetails(r.Context(), app.ValidateBankDetailsInput{
		UserID:            userID,
		SortCode:          req.SortCode,
		AccountNumber:     req.AccountNumber,
		AccountHolderName: req.AccountHolderName,
		AccessToken:       req.AccessToken,
		AccountID:         req.AccountID,
	})
	if err != nil {
		log.Printf("Bank detail validation failed for user %s: %v", userID, err)
		http.Error(w, "Failed to validate bank details", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ValidateNameRequest defines the expected JSON body for the standalone
// name check.
type ValidateNameRequest struct {
	AccountHolderName string `json:"account_holder_name"`
}

// ValidateName runs the heuristic account-holder name check only. No
// record is stored and no vendor is called.
func (h *ValidationHandler) ValidateName(w http.ResponseWriter, r *http.Request) {
	var req ValidateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, banking.ValidateAccountHolderName(req.AccountHolderName))
}

// ListHistory returns the authenticated user's recent validation attempts.
func (h *ValidationHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.service.ListVerifications(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "Failed to fetch validation history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// PaymentHandler holds the dependencies for Open Banking payment handlers.
type PaymentHandler struct {
	service *app.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *app.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// CreateConsentRequest defines the expected JSON body for creating an
// account-access consent.
type CreateConsentRequest struct {
	Permissions []string `json:"permissions"`
}

// CreateConsent sets up an account-access consent with the configured
// provider and returns the authorisation URL the user must visit.
func (h *PaymentHandler) CreateConsent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	consent, err := h.service.CreateConsent(r.Context(), userID, req.Permissions)
	if err != nil {
		writePaymentServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, consent)
}

// ExchangeTokenRequest defines the expected JSON body for exchanging an
// authorisation code for an access token.
type ExchangeTokenRequest struct {
	Code string `json:"code"`
}

// ExchangeTokenResponse wraps the vendor access token.
type ExchangeTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// ExchangeToken exchanges an authorisation code for an access token on the
// consent identified in the URL.
func (h *PaymentHandler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	consentID := chi.URLParam(r, "id")

	var req ExchangeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	token, err := h.service.ExchangeCode(r.Context(), req.Code, consentID)
	if err != nil {
		writePaymentServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ExchangeTokenResponse{AccessToken: token})
}

// GetAccounts lists the bank accounts available under the presented access
// token.
func (h *PaymentHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accessToken := vendorToken(r)
	if accessToken == "" {
		http.Error(w, "X-Bank-Token header is required", http.StatusBadRequest)
		return
	}

	accounts, err := h.service.GetAccounts(r.Context(), accessToken)
	if err != nil {
		writePaymentServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

// VerifyNameRequest defines the expected JSON body for verifying an
// account-holder name against a consented account.
type VerifyNameRequest struct {
	AccountID    string `json:"account_id"`
	ExpectedName string `json:"expected_name"`
}

// VerifyName compares the expected account-holder name against the name
// the bank holds for the account.
func (h *PaymentHandler) VerifyName(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accessToken := vendorToken(r)
	if accessToken == "" {
		http.Error(w, "X-Bank-Token header is required", http.StatusBadRequest)
		return
	}

	var req VerifyNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" || req.ExpectedName == "" {
		http.Error(w, "account_id and expected_name are required", http.StatusBadRequest)
		return
	}

	verification, err := h.service.VerifyAccountHolderName(r.Context(), accessToken, req.AccountID, req.ExpectedName)
	if err != nil {
		if errors.Is(err, openbanking.ErrAccountNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		writePaymentServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verification)
}

// CreatePaymentRequest defines the expected JSON body for initiating a
// payment.
type CreatePaymentRequest struct {
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	Reference         string `json:"reference"`
	SortCode          string `json:"sort_code"`
	AccountNumber     string `json:"account_number"`
	AccountHolderName string `json:"account_holder_name"`
}

// CreatePayment initiates a domestic payment to a UK account.
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accessToken := vendorToken(r)
	if accessToken == "" {
		http.Error(w, "X-Bank-Token header is required", http.StatusBadRequest)
		return
	}

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !banking.ValidateSortCode(req.SortCode) || !banking.ValidateAccountNumber(req.AccountNumber) {
		http.Error(w, "valid sort_code and account_number are required", http.StatusBadRequest)
		return
	}

	payment, err := h.service.CreatePayment(r.Context(), app.CreatePaymentInput{
		UserID:            userID,
		AccessToken:       accessToken,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Reference:         req.Reference,
		SortCode:          req.SortCode,
		AccountNumber:     req.AccountNumber,
		AccountHolderName: req.AccountHolderName,
	})
	if err != nil {
		if strings.Contains(err.Error(), "required") {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writePaymentServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

// GetPaymentStatus returns the current status of a previously initiated
// payment.
func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accessToken := vendorToken(r)
	if accessToken == "" {
		http.Error(w, "X-Bank-Token header is required", http.StatusBadRequest)
		return
	}
	paymentID := chi.URLParam(r, "id")

	payment, err := h.service.GetPaymentStatus(r.Context(), accessToken, paymentID)
	if err != nil {
		writePaymentServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

// RevokeConsentResponse reports whether the revocation took effect at the
// vendor.
type RevokeConsentResponse struct {
	Revoked bool `json:"revoked"`
}

// RevokeConsent revokes an account-access consent at the vendor.
func (h *PaymentHandler) RevokeConsent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accessToken := vendorToken(r)
	consentID := chi.URLParam(r, "id")

	revoked := h.service.RevokeConsent(r.Context(), accessToken, consentID)
	writeJSON(w, http.StatusOK, RevokeConsentResponse{Revoked: revoked})
}

// ListProviders returns the supported Open Banking providers.
func ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openbanking.Providers())
}

// writePaymentServiceError maps payment-service errors to HTTP responses.
// Running without an Open Banking client is a deployment state, not a
// vendor failure, so it reports service-unavailable rather than a bad
// gateway.
func writePaymentServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, app.ErrOpenBankingNotConfigured) {
		http.Error(w, "Open Banking is not configured", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusBadGateway)
}

// vendorToken extracts the Open Banking access token from the request.
// The Authorization header carries the marketplace JWT, so the vendor
// token travels in its own header.
func vendorToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Bank-Token"))
}

// writeJSON is a helper to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// If encoding fails, we can't send a JSON error, so just log it.
		http.Error(w, `{"error":"Failed to encode response"}`, http.StatusInternalServerError)
	}
}
