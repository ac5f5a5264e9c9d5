/**
 * @description
 * Banked strategy. Auth scheme: a form-encoded client-credentials grant at
 * /v2/auth/token; the resulting bearer token authenticates every other
 * call. Banked's flat response shapes and lowercase status vocabulary are
 * normalized here.
 */
package openbanking

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vicky55567123/tutorhub-sub000/internal/domain"
)

type bankedAPI struct {
	baseURL string
	creds   Credentials
	http    *httpClient
}

// clientToken performs the client-credentials grant. Banked requires this
// application-level token even for consent creation.
func (b *bankedAPI) clientToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", b.creds.ClientID)
	form.Set("client_secret", b.creds.ClientSecret)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	tokenURL := fmt.Sprintf("%s/v2/auth/token", b.baseURL)
	if err := b.http.doForm(ctx, http.MethodPost, tokenURL, nil, form, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}
	return resp.AccessToken, nil
}

type bankedConsentResponse struct {
	ID          string   `json:"id"`
	State       string   `json:"state"`
	Permissions []string `json:"permissions"`
	ExpiresAt   string   `json:"expires_at"`
	RedirectURL string   `json:"redirect_url"`
}

func (b *bankedAPI) CreateAccountConsent(ctx context.Context, permissions []string) (*domain.Consent, error) {
	token, err := b.clientToken(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"permissions":  permissions,
		"expires_at":   time.Now().AddDate(0, 3, 0).Format(time.RFC3339),
		"callback_url": b.creds.RedirectURI,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}

	var resp bankedConsentResponse
	url := fmt.Sprintf("%s/v2/consents", b.baseURL)
	if err := b.http.doJSON(ctx, http.MethodPost, url, headers, body, &resp); err != nil {
		return nil, err
	}

	var status domain.ConsentStatus
	switch resp.State {
	case "granted":
		status = domain.ConsentAuthorised
	case "pending":
		status = domain.ConsentAwaitingAuthorisation
	case "declined":
		status = domain.ConsentRejected
	case "expired":
		status = domain.ConsentExpired
	case "revoked":
		status = domain.ConsentRevoked
	default:
		return nil, fmt.Errorf("unrecognized Banked consent state %q", resp.State)
	}

	expiration, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("invalid consent expiration %q: %w", resp.ExpiresAt, err)
	}

	return &domain.Consent{
		ConsentID:        resp.ID,
		Status:           status,
		Permissions:      resp.Permissions,
		ExpirationDate:   expiration,
		AuthorisationURL: resp.RedirectURL,
	}, nil
}

func (b *bankedAPI) ExchangeCodeForToken(ctx context.Context, code, consentID string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", b.creds.ClientID)
	form.Set("client_secret", b.creds.ClientSecret)
	form.Set("code", code)
	form.Set("consent_id", consentID)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	tokenURL := fmt.Sprintf("%s/v2/auth/token", b.baseURL)
	if err := b.http.doForm(ctx, http.MethodPost, tokenURL, nil, form, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}
	return resp.AccessToken, nil
}

type bankedAccount struct {
	ID            string `json:"id"`
	HolderName    string `json:"holder_name"`
	SortCode      string `json:"sort_code"`
	AccountNumber string `json:"account_number"`
	Currency      string `json:"currency"`
	BankName      string `json:"bank_name"`
	Usage         string `json:"usage"`
	Class         string `json:"class"`
}

func (b *bankedAPI) GetAccounts(ctx context.Context, accessToken string) ([]domain.Account, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}

	var resp struct {
		Accounts []bankedAccount `json:"accounts"`
	}
	url := fmt.Sprintf("%s/v2/accounts", b.baseURL)
	if err := b.http.doJSON(ctx, http.MethodGet, url, headers, nil, &resp); err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accountType := domain.AccountPersonal
		if a.Usage == "business" {
			accountType = domain.AccountBusiness
		}
		subType := domain.AccountCurrent
		if a.Class == "savings" {
			subType = domain.AccountSavings
		}
		accounts = append(accounts, domain.Account{
			AccountID:         a.ID,
			AccountNumber:     a.AccountNumber,
			SortCode:          a.SortCode,
			AccountHolderName: a.HolderName,
			AccountType:       accountType,
			AccountSubType:    subType,
			Currency:          a.Currency,
			BankName:          a.BankName,
		})
	}
	return accounts, nil
}

type bankedPaymentResponse struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
	Payee     struct {
		Name          string `json:"name"`
		SortCode      string `json:"sort_code"`
		AccountNumber string `json:"account_number"`
	} `json:"payee"`
	CheckoutURL string `json:"checkout_url"`
}

func (b *bankedAPI) CreatePayment(ctx context.Context, accessToken string, req PaymentRequest) (*domain.PaymentInitiation, error) {
	headers := map[string]string{
		"Authorization":   "Bearer " + accessToken,
		"Idempotency-Key": newIdempotencyKey(),
	}

	body := map[string]interface{}{
		"amount":    req.Amount,
		"currency":  req.Currency,
		"reference": req.Reference,
		"payee": map[string]string{
			"name":           req.Creditor.AccountHolderName,
			"sort_code":      req.Creditor.SortCode,
			"account_number": req.Creditor.AccountNumber,
		},
		"success_url": b.creds.RedirectURI,
		"error_url":   b.creds.RedirectURI,
	}

	var resp bankedPaymentResponse
	url := fmt.Sprintf("%s/v2/payment_sessions", b.baseURL)
	if err := b.http.doJSON(ctx, http.MethodPost, url, headers, body, &resp); err != nil {
		return nil, err
	}
	return b.normalizePayment(resp)
}

func (b *bankedAPI) GetPaymentStatus(ctx context.Context, accessToken, paymentID string) (*domain.PaymentInitiation, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}

	var resp bankedPaymentResponse
	url := fmt.Sprintf("%s/v2/payment_sessions/%s", b.baseURL, paymentID)
	if err := b.http.doJSON(ctx, http.MethodGet, url, headers, nil, &resp); err != nil {
		return nil, err
	}
	return b.normalizePayment(resp)
}

func (b *bankedAPI) normalizePayment(resp bankedPaymentResponse) (*domain.PaymentInitiation, error) {
	var status domain.PaymentStatus
	switch resp.State {
	case "awaiting_payment", "pending":
		status = domain.PaymentPending
	case "authorised":
		status = domain.PaymentAuthorised
	case "sent", "settled":
		status = domain.PaymentExecuted
	case "declined":
		status = domain.PaymentRejected
	case "cancelled", "abandoned":
		status = domain.PaymentCancelled
	default:
		return nil, fmt.Errorf("unrecognized Banked payment state %q", resp.State)
	}

	authURL := resp.CheckoutURL
	if authURL == "" {
		authURL = fmt.Sprintf("%s/checkout/%s?redirect=%s", b.baseURL, resp.ID, url.QueryEscape(b.creds.RedirectURI))
	}

	return &domain.PaymentInitiation{
		PaymentID: resp.ID,
		Status:    status,
		Amount:    resp.Amount,
		Currency:  resp.Currency,
		CreditorAccount: domain.CreditorAccount{
			AccountHolderName: resp.Payee.Name,
			SortCode:          resp.Payee.SortCode,
			AccountNumber:     resp.Payee.AccountNumber,
		},
		Reference:        resp.Reference,
		AuthorisationURL: authURL,
	}, nil
}

func (b *bankedAPI) RevokeConsent(ctx context.Context, accessToken, consentID string) error {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	url := fmt.Sprintf("%s/v2/consents/%s", b.baseURL, consentID)
	return b.http.doJSON(ctx, http.MethodDelete, url, headers, nil, nil)
}
