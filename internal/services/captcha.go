package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
)

type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Error codes that blame the server secret rather than the user's token.
const (
	captchaMissingSecret = "missing-input-secret"
	captchaInvalidSecret = "invalid-input-secret"
)

func isSecretErrorCode(code string) bool {
	return code == captchaMissingSecret || code == captchaInvalidSecret
}

type recaptchaResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// RecaptchaVerifier checks tokens against a reCAPTCHA siteverify endpoint.
type RecaptchaVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewRecaptchaVerifier(secret, verifyURL string, timeout time.Duration) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// Verify returns nil on success, ErrCaptchaNotConfigured when the secret is
// missing or refused, ErrCaptchaRejected when the token is refused, and
// ErrServiceUnavailable when the service cannot be reached or answers garbage.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if v.secret == "" {
		return ErrCaptchaNotConfigured
	}

	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaNotConfigured, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: captcha request failed: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: captcha service returned %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var body recaptchaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: undecodable captcha response (status %d): %v", ErrServiceUnavailable, resp.StatusCode, err)
	}

	if !body.Success {
		codes := strings.Join(body.ErrorCodes, ",")
		if lo.ContainsBy(body.ErrorCodes, isSecretErrorCode) {
			return fmt.Errorf("%w: %s", ErrCaptchaNotConfigured, codes)
		}
		return fmt.Errorf("%w: %s", ErrCaptchaRejected, codes)
	}
	return nil
}
