/**
 * @description
 * TrueLayer strategy. Auth scheme: Bearer API key plus an X-Client-Id
 * header on data endpoints; HTTP Basic for the token exchange. Response
 * shapes and the status vocabulary are normalized into the common domain
 * types here and nowhere else.
 *
 * Endpoints:
 * - POST   /v1/data-consents
 * - POST   /connect/token
 * - GET    /data/v1/accounts
 * - POST   /payments/v1/payments
 * - GET    /payments/v1/payments/{id}
 * - DELETE /data/v1/account-access-consents/{id}
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

type trueLayerAPI struct {
	baseURL string
	creds   Credentials
	http    *httpClient
}

type trueLayerConsentRequest struct {
	Permissions        []string `json:"permissions"`
	ExpirationDateTime string   `json:"expiration_date_time"`
	RedirectURI        string   `json:"redirect_uri"`
}

type trueLayerConsentResponse struct {
	ConsentID          string   `json:"consent_id"`
	Status             string   `json:"status"`
	Permissions        []string `json:"permissions"`
	ExpirationDateTime string   `json:"expiration_date_time"`
	AuthURI            string   `json:"auth_uri"`
}

func (t *trueLayerAPI) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + t.creds.APIKey,
		"X-Client-Id":   t.creds.ClientID,
	}
}

func (t *trueLayerAPI) CreateAccountConsent(ctx context.Context, permissions []string) (*domain.Consent, error) {
	body := trueLayerConsentRequest{
		Permissions:        permissions,
		ExpirationDateTime: time.Now().AddDate(0, 3, 0).Format(time.RFC3339),
		RedirectURI:        t.creds.RedirectURI,
	}

	var resp trueLayerConsentResponse
	url := fmt.Sprintf("%s/v1/data-consents", t.baseURL)
	if err := t.http.doJSON(ctx, http.MethodPost, url, t.headers(), body, &resp); err != nil {
		return nil, err
	}
	return t.normalizeConsent(resp)
}

func (t *trueLayerAPI) normalizeConsent(resp trueLayerConsentResponse) (*domain.Consent, error) {
	expiration, err := time.Parse(time.RFC3339, resp.ExpirationDateTime)
	if err != nil {
		return nil, fmt.Errorf("invalid consent expiration %q: %w", resp.ExpirationDateTime, err)
	}

	var status domain.ConsentStatus
	switch resp.Status {
	case "authorised":
		status = domain.ConsentAuthorised
	case "awaiting_authorisation":
		status = domain.ConsentAwaitingAuthorisation
	case "rejected":
		status = domain.ConsentRejected
	case "expired":
		status = domain.ConsentExpired
	case "revoked":
		status = domain.ConsentRevoked
	default:
		return nil, fmt.Errorf("unrecognized TrueLayer consent status %q", resp.Status)
	}

	return &domain.Consent{
		ConsentID:        resp.ConsentID,
		Status:           status,
		Permissions:      resp.Permissions,
		ExpirationDate:   expiration,
		AuthorisationURL: resp.AuthURI,
	}, nil
}

func (t *trueLayerAPI) ExchangeCodeForToken(ctx context.Context, code, consentID string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", t.creds.RedirectURI)
	form.Set("consent_id", consentID)

	headers := map[string]string{
		"Authorization": basicAuth(t.creds.ClientID, t.creds.ClientSecret),
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	tokenURL := fmt.Sprintf("%s/connect/token", t.baseURL)
	if err := t.http.doForm(ctx, http.MethodPost, tokenURL, headers, form, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}
	return resp.AccessToken, nil
}

type trueLayerAccount struct {
	AccountID     string `json:"account_id"`
	AccountType   string `json:"account_type"`
	DisplayName   string `json:"display_name"`
	Currency      string `json:"currency"`
	AccountNumber struct {
		SortCode string `json:"sort_code"`
		Number   string `json:"number"`
	} `json:"account_number"`
	Provider struct {
		DisplayName string `json:"display_name"`
	} `json:"provider"`
}

func (t *trueLayerAPI) GetAccounts(ctx context.Context, accessToken string) ([]domain.Account, error) {
	headers := map[string]string{
		"Authorization":  "Bearer " + accessToken,
		"X-Financial-Id": t.creds.ClientID,
	}

	var resp struct {
		Results []trueLayerAccount `json:"results"`
	}
	url := fmt.Sprintf("%s/data/v1/accounts", t.baseURL)
	if err := t.http.doJSON(ctx, http.MethodGet, url, headers, nil, &resp); err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(resp.Results))
	for _, a := range resp.Results {
		subType := domain.AccountCurrent
		if a.AccountType == "SAVINGS" {
			subType = domain.AccountSavings
		}
		accountType := domain.AccountPersonal
		if a.AccountType == "BUSINESS" {
			accountType = domain.AccountBusiness
		}
		accounts = append(accounts, domain.Account{
			AccountID:         a.AccountID,
			AccountNumber:     a.AccountNumber.Number,
			SortCode:          a.AccountNumber.SortCode,
			AccountHolderName: a.DisplayName,
			AccountType:       accountType,
			AccountSubType:    subType,
			Currency:          a.Currency,
			BankName:          a.Provider.DisplayName,
		})
	}
	return accounts, nil
}

type trueLayerPaymentRequest struct {
	Data struct {
		Initiation struct {
			InstructionIdentification string `json:"InstructionIdentification"`
			EndToEndIdentification    string `json:"EndToEndIdentification"`
			InstructedAmount          struct {
				Amount   string `json:"Amount"`
				Currency string `json:"Currency"`
			} `json:"InstructedAmount"`
			CreditorAccount struct {
				SchemeName     string `json:"SchemeName"`
				Identification string `json:"Identification"`
				Name           string `json:"Name"`
			} `json:"CreditorAccount"`
		} `json:"Initiation"`
	} `json:"Data"`
	Risk struct {
		PaymentContextCode string `json:"PaymentContextCode"`
	} `json:"Risk"`
}

type trueLayerPaymentResponse struct {
	Data struct {
		PaymentID  string `json:"PaymentId"`
		Status     string `json:"Status"`
		Initiation struct {
			EndToEndIdentification string `json:"EndToEndIdentification"`
			InstructedAmount       struct {
				Amount   string `json:"Amount"`
				Currency string `json:"Currency"`
			} `json:"InstructedAmount"`
			CreditorAccount struct {
				Identification string `json:"Identification"`
				Name           string `json:"Name"`
			} `json:"CreditorAccount"`
		} `json:"Initiation"`
	} `json:"Data"`
	Links struct {
		Authorisation string `json:"Authorisation"`
	} `json:"Links"`
}

func (t *trueLayerAPI) CreatePayment(ctx context.Context, accessToken string, req PaymentRequest) (*domain.PaymentInitiation, error) {
	var body trueLayerPaymentRequest
	body.Data.Initiation.InstructionIdentification = newIdempotencyKey()
	body.Data.Initiation.EndToEndIdentification = req.Reference
	body.Data.Initiation.InstructedAmount.Amount = req.Amount
	body.Data.Initiation.InstructedAmount.Currency = req.Currency
	body.Data.Initiation.CreditorAccount.SchemeName = "UK.OBIE.SortCodeAccountNumber"
	body.Data.Initiation.CreditorAccount.Identification = req.Creditor.SortCode + req.Creditor.AccountNumber
	body.Data.Initiation.CreditorAccount.Name = req.Creditor.AccountHolderName
	body.Risk.PaymentContextCode = "PartyToParty"

	headers := t.headers()
	headers["Authorization"] = "Bearer " + accessToken
	headers["Idempotency-Key"] = newIdempotencyKey()

	var resp trueLayerPaymentResponse
	url := fmt.Sprintf("%s/payments/v1/payments", t.baseURL)
	if err := t.http.doJSON(ctx, http.MethodPost, url, headers, body, &resp); err != nil {
		return nil, err
	}
	return t.normalizePayment(resp, &req)
}

func (t *trueLayerAPI) GetPaymentStatus(ctx context.Context, accessToken, paymentID string) (*domain.PaymentInitiation, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}

	var resp trueLayerPaymentResponse
	url := fmt.Sprintf("%s/payments/v1/payments/%s", t.baseURL, paymentID)
	if err := t.http.doJSON(ctx, http.MethodGet, url, headers, nil, &resp); err != nil {
		return nil, err
	}
	return t.normalizePayment(resp, nil)
}

// normalizePayment maps a TrueLayer payment response into the common
// shape. When the original request is available its creditor details are
// used directly; otherwise the combined OBIE identification is split back
// into sort code and account number.
func (t *trueLayerAPI) normalizePayment(resp trueLayerPaymentResponse, req *PaymentRequest) (*domain.PaymentInitiation, error) {
	var status domain.PaymentStatus
	switch resp.Data.Status {
	case "Pending", "AcceptedTechnicalValidation":
		status = domain.PaymentPending
	case "Authorised", "AcceptedCustomerProfile":
		status = domain.PaymentAuthorised
	case "Executed", "AcceptedSettlementCompleted":
		status = domain.PaymentExecuted
	case "Rejected":
		status = domain.PaymentRejected
	case "Cancelled":
		status = domain.PaymentCancelled
	default:
		return nil, fmt.Errorf("unrecognized TrueLayer payment status %q", resp.Data.Status)
	}

	creditor := domain.CreditorAccount{
		AccountHolderName: resp.Data.Initiation.CreditorAccount.Name,
	}
	if req != nil {
		creditor = req.Creditor
	} else {
		sortCode, accountNumber, err := parseOBIEIdentification(resp.Data.Initiation.CreditorAccount.Identification)
		if err != nil {
			return nil, err
		}
		creditor.SortCode = sortCode
		creditor.AccountNumber = accountNumber
	}

	authURL := resp.Links.Authorisation
	if authURL == "" {
		// The vendor may omit the redirect; construct the hosted
		// authorisation URL so the caller always has somewhere to send
		// the user.
		authURL = fmt.Sprintf("https://auth.truelayer.com/payments?payment_id=%s&redirect_uri=%s",
			resp.Data.PaymentID, url.QueryEscape(t.creds.RedirectURI))
	}

	return &domain.PaymentInitiation{
		PaymentID:        resp.Data.PaymentID,
		Status:           status,
		Amount:           resp.Data.Initiation.InstructedAmount.Amount,
		Currency:         resp.Data.Initiation.InstructedAmount.Currency,
		CreditorAccount:  creditor,
		Reference:        resp.Data.Initiation.EndToEndIdentification,
		AuthorisationURL: authURL,
	}, nil
}

func (t *trueLayerAPI) RevokeConsent(ctx context.Context, accessToken, consentID string) error {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	url := fmt.Sprintf("%s/data/v1/account-access-consents/%s", t.baseURL, consentID)
	return t.http.doJSON(ctx, http.MethodDelete, url, headers, nil, nil)
}
