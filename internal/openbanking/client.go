/**
 * @description
 * This file provides the shared HTTP plumbing used by every vendor
 * strategy: a single client with a bounded timeout, a request helper that
 * wraps non-2xx responses into a vendorError carrying the raw status and
 * body, and small helpers shared across vendors.
 *
 * Key features:
 * - One http.Client per service instance with a 30 second timeout.
 * - JSON and form-encoded request helpers taking a caller context.
 * - Raw vendor errors are logged where they occur and never surfaced to
 *   callers of the service layer.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, net/url, strings,
 *   time: Standard Go libraries.
 */
package openbanking

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Credentials holds the OAuth-style client configuration for one provider.
type Credentials struct {
	APIKey       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// vendorError carries the raw status and body of a failed vendor call. It
// stays inside this package; the service layer logs it and returns a
// sanitized error instead.
type vendorError struct {
	StatusCode int
	Body       string
}

func (e *vendorError) Error() string {
	return fmt.Sprintf("vendor API error: status %d, body: %s", e.StatusCode, e.Body)
}

// httpClient wraps the HTTP transport shared by all vendor strategies.
type httpClient struct {
	client *http.Client
}

func newHTTPClient() *httpClient {
	return &httpClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doJSON sends a JSON request and decodes a JSON response into target.
// A nil body sends no payload; a nil target discards the response body.
func (c *httpClient) doJSON(ctx context.Context, method, url string, headers map[string]string, body, target interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.send(req, target)
}

// doForm sends a form-encoded request and decodes a JSON response.
func (c *httpClient) doForm(ctx context.Context, method, reqURL string, headers map[string]string, form url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.send(req, target)
}

func (c *httpClient) send(req *http.Request, target interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &vendorError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to unmarshal response body: %w", err)
		}
	}
	return nil
}

// basicAuth builds an HTTP Basic Authorization header value from a client
// id and secret.
func basicAuth(clientID, clientSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret))
}

// parseOBIEIdentification splits the combined OBIE SortCodeAccountNumber
// identification: the first 6 digits are the sort code and the last 8 are
// the account number. Identifiers shorter than 14 characters are rejected
// rather than mis-sliced.
func parseOBIEIdentification(identification string) (sortCode, accountNumber string, err error) {
	if len(identification) < 14 {
		return "", "", fmt.Errorf("identification %q is too short for a sort code and account number", identification)
	}
	return identification[:6], identification[len(identification)-8:], nil
}
