package funding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrVerificationFailed is returned when the verifier does not confirm a
// payment, including when it cannot be reached in time.
var ErrVerificationFailed = errors.New("payment verification failed")

// Verification is the verifier's verdict on a payment reference.
type Verification struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Verifier confirms with a third party that a payment settled for the given
// amount. Implementations are untrusted and may be slow.
type Verifier interface {
	Verify(ctx context.Context, ref string, amount decimal.Decimal) (Verification, error)
}

// StaticVerifier answers every request with the same verdict. Used in
// development and tests.
type StaticVerifier struct {
	Reject bool
}

// Verify approves unless Reject is set.
func (v StaticVerifier) Verify(_ context.Context, _ string, _ decimal.Decimal) (Verification, error) {
	if v.Reject {
		return Verification{Success: false, Message: "rejected"}, nil
	}
	return Verification{Success: true, Message: "approved"}, nil
}

// HTTPVerifier posts {ref, amount} as JSON to a settlement endpoint and
// expects a Verification body back.
type HTTPVerifier struct {
	url        string
	secret     string
	httpClient *http.Client
}

// NewHTTPVerifier builds a verifier bounded by timeout.
func NewHTTPVerifier(url, secret string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type verifyRequest struct {
	Ref    string `json:"ref"`
	Amount string `json:"amount"`
}

// Verify calls the remote endpoint. Non-2xx responses are errors.
func (v *HTTPVerifier) Verify(ctx context.Context, ref string, amount decimal.Decimal) (Verification, error) {
	body, err := json.Marshal(verifyRequest{Ref: ref, Amount: amount.StringFixed(2)})
	if err != nil {
		return Verification{}, fmt.Errorf("encode verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return Verification{}, fmt.Errorf("create verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.secret != "" {
		req.Header.Set("Authorization", "Bearer "+v.secret)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Verification{}, fmt.Errorf("verifier unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Verification{}, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	var result Verification
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Verification{}, fmt.Errorf("decode verification response: %w", err)
	}
	return result, nil
}
