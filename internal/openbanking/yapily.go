/**
 * @description
 * Yapily strategy. Auth scheme: HTTP Basic with the application id and
 * secret on every call; end-user data calls additionally carry the consent
 * token in a Consent header. Yapily wraps every response in a data
 * envelope and uses an UPPER_SNAKE status vocabulary, both of which are
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

type yapilyAPI struct {
	baseURL string
	creds   Credentials
	http    *httpClient
}

func (y *yapilyAPI) headers() map[string]string {
	return map[string]string{
		"Authorization": basicAuth(y.creds.ClientID, y.creds.ClientSecret),
	}
}

type yapilyConsentResponse struct {
	Data struct {
		ID                 string   `json:"id"`
		Status             string   `json:"status"`
		PermissionsGranted []string `json:"permissionsGranted"`
		ExpiresAt          string   `json:"expiresAt"`
		AuthorisationURL   string   `json:"authorisationUrl"`
	} `json:"data"`
}

func (y *yapilyAPI) CreateAccountConsent(ctx context.Context, permissions []string) (*domain.Consent, error) {
	body := map[string]interface{}{
		"applicationUserId": y.creds.APIKey,
		"permissions":       permissions,
		"expiresAt":         time.Now().AddDate(0, 3, 0).Format(time.RFC3339),
		"callbackUrl":       y.creds.RedirectURI,
	}

	var resp yapilyConsentResponse
	url := fmt.Sprintf("%s/account-access-consents", y.baseURL)
	if err := y.http.doJSON(ctx, http.MethodPost, url, y.headers(), body, &resp); err != nil {
		return nil, err
	}

	var status domain.ConsentStatus
	switch resp.Data.Status {
	case "AUTHORIZED":
		status = domain.ConsentAuthorised
	case "AWAITING_AUTHORIZATION":
		status = domain.ConsentAwaitingAuthorisation
	case "REJECTED", "FAILED":
		status = domain.ConsentRejected
	case "EXPIRED":
		status = domain.ConsentExpired
	case "REVOKED":
		status = domain.ConsentRevoked
	default:
		return nil, fmt.Errorf("unrecognized Yapily consent status %q", resp.Data.Status)
	}

	expiration, err := time.Parse(time.RFC3339, resp.Data.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("invalid consent expiration %q: %w", resp.Data.ExpiresAt, err)
	}

	return &domain.Consent{
		ConsentID:        resp.Data.ID,
		Status:           status,
		Permissions:      resp.Data.PermissionsGranted,
		ExpirationDate:   expiration,
		AuthorisationURL: resp.Data.AuthorisationURL,
	}, nil
}

func (y *yapilyAPI) ExchangeCodeForToken(ctx context.Context, code, consentID string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("consent_id", consentID)

	var resp struct {
		Data struct {
			ConsentToken string `json:"consentToken"`
		} `json:"data"`
	}
	tokenURL := fmt.Sprintf("%s/oauth/token", y.baseURL)
	if err := y.http.doForm(ctx, http.MethodPost, tokenURL, y.headers(), form, &resp); err != nil {
		return "", err
	}
	if resp.Data.ConsentToken == "" {
		return "", fmt.Errorf("token response contained no consent token")
	}
	return resp.Data.ConsentToken, nil
}

type yapilyAccount struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	UsageType   string `json:"usageType"`
	Currency    string `json:"currency"`
	Nickname    string `json:"nickname"`
	Institution string `json:"institution"`
	Balance     *struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"balance"`
	AccountIdentifications []struct {
		Type           string `json:"type"`
		Identification string `json:"identification"`
	} `json:"accountIdentifications"`
}

func (y *yapilyAPI) GetAccounts(ctx context.Context, accessToken string) ([]domain.Account, error) {
	headers := y.headers()
	headers["Consent"] = accessToken

	var resp struct {
		Data []yapilyAccount `json:"data"`
	}
	url := fmt.Sprintf("%s/accounts", y.baseURL)
	if err := y.http.doJSON(ctx, http.MethodGet, url, headers, nil, &resp); err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(resp.Data))
	for _, a := range resp.Data {
		var sortCode, accountNumber string
		for _, ident := range a.AccountIdentifications {
			switch ident.Type {
			case "SORT_CODE":
				sortCode = ident.Identification
			case "ACCOUNT_NUMBER":
				accountNumber = ident.Identification
			}
		}

		accountType := domain.AccountPersonal
		if a.UsageType == "BUSINESS" {
			accountType = domain.AccountBusiness
		}
		subType := domain.AccountCurrent
		if a.Type == "SAVINGS" {
			subType = domain.AccountSavings
		}

		account := domain.Account{
			AccountID:         a.ID,
			AccountNumber:     accountNumber,
			SortCode:          sortCode,
			AccountHolderName: a.Nickname,
			AccountType:       accountType,
			AccountSubType:    subType,
			Currency:          a.Currency,
			BankName:          a.Institution,
		}
		if a.Balance != nil {
			account.Balance = &domain.Balance{
				Amount:   a.Balance.Amount,
				Currency: a.Balance.Currency,
			}
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

type yapilyPaymentResponse struct {
	Data struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Payment struct {
			Amount struct {
				Amount   string `json:"amount"`
				Currency string `json:"currency"`
			} `json:"amount"`
			Reference string `json:"reference"`
			Payee     struct {
				Name                   string `json:"name"`
				AccountIdentifications []struct {
					Type           string `json:"type"`
					Identification string `json:"identification"`
				} `json:"accountIdentifications"`
			} `json:"payee"`
		} `json:"payment"`
		AuthorisationURL string `json:"authorisationUrl"`
	} `json:"data"`
}

func (y *yapilyAPI) CreatePayment(ctx context.Context, accessToken string, req PaymentRequest) (*domain.PaymentInitiation, error) {
	headers := y.headers()
	headers["Consent"] = accessToken
	headers["Idempotency-Key"] = newIdempotencyKey()

	body := map[string]interface{}{
		"payment": map[string]interface{}{
			"paymentIdempotencyId": newIdempotencyKey(),
			"amount": map[string]string{
				"amount":   req.Amount,
				"currency": req.Currency,
			},
			"reference": req.Reference,
			"type":      "DOMESTIC_PAYMENT",
			"payee": map[string]interface{}{
				"name": req.Creditor.AccountHolderName,
				"accountIdentifications": []map[string]string{
					{"type": "SORT_CODE", "identification": req.Creditor.SortCode},
					{"type": "ACCOUNT_NUMBER", "identification": req.Creditor.AccountNumber},
				},
			},
		},
	}

	var resp yapilyPaymentResponse
	url := fmt.Sprintf("%s/payment-requests", y.baseURL)
	if err := y.http.doJSON(ctx, http.MethodPost, url, headers, body, &resp); err != nil {
		return nil, err
	}
	return y.normalizePayment(resp)
}

func (y *yapilyAPI) GetPaymentStatus(ctx context.Context, accessToken, paymentID string) (*domain.PaymentInitiation, error) {
	headers := y.headers()
	headers["Consent"] = accessToken

	var resp yapilyPaymentResponse
	url := fmt.Sprintf("%s/payment-requests/%s", y.baseURL, paymentID)
	if err := y.http.doJSON(ctx, http.MethodGet, url, headers, nil, &resp); err != nil {
		return nil, err
	}
	return y.normalizePayment(resp)
}

func (y *yapilyAPI) normalizePayment(resp yapilyPaymentResponse) (*domain.PaymentInitiation, error) {
	var status domain.PaymentStatus
	switch resp.Data.Status {
	case "PENDING", "AWAITING_AUTHORIZATION":
		status = domain.PaymentPending
	case "AUTHORIZED":
		status = domain.PaymentAuthorised
	case "COMPLETED":
		status = domain.PaymentExecuted
	case "FAILED", "REJECTED":
		status = domain.PaymentRejected
	case "CANCELLED":
		status = domain.PaymentCancelled
	default:
		return nil, fmt.Errorf("unrecognized Yapily payment status %q", resp.Data.Status)
	}

	creditor := domain.CreditorAccount{
		AccountHolderName: resp.Data.Payment.Payee.Name,
	}
	for _, ident := range resp.Data.Payment.Payee.AccountIdentifications {
		switch ident.Type {
		case "SORT_CODE":
			creditor.SortCode = ident.Identification
		case "ACCOUNT_NUMBER":
			creditor.AccountNumber = ident.Identification
		}
	}

	authURL := resp.Data.AuthorisationURL
	if authURL == "" {
		authURL = fmt.Sprintf("%s/authorise?payment_request=%s&callback=%s",
			y.baseURL, resp.Data.ID, url.QueryEscape(y.creds.RedirectURI))
	}

	return &domain.PaymentInitiation{
		PaymentID:        resp.Data.ID,
		Status:           status,
		Amount:           resp.Data.Payment.Amount.Amount,
		Currency:         resp.Data.Payment.Amount.Currency,
		CreditorAccount:  creditor,
		Reference:        resp.Data.Payment.Reference,
		AuthorisationURL: authURL,
	}, nil
}

func (y *yapilyAPI) RevokeConsent(ctx context.Context, accessToken, consentID string) error {
	headers := y.headers()
	headers["Consent"] = accessToken
	url := fmt.Sprintf("%s/account-access-consents/%s", y.baseURL, consentID)
	return y.http.doJSON(ctx, http.MethodDelete, url, headers, nil, nil)
}
