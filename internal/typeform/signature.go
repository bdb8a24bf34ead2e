package typeform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// SignatureHeader is the request header Typeform signs deliveries in.
const SignatureHeader = "Typeform-Signature"

const signaturePrefix = "sha256="

var (
	ErrMissingSignature = errors.New("typeform: missing signature")
	ErrInvalidSignature = errors.New("typeform: invalid signature")
	ErrSecretRequired   = errors.New("typeform: webhook secret not configured")
)

// Verifier checks the Typeform-Signature header of a delivery.
//
// With an empty Secret every delivery is accepted and a warning is logged
// once, unless RequireSecret is set, in which case every delivery is rejected.
type Verifier struct {
	Secret        string
	RequireSecret bool
	Logger        *slog.Logger

	warnOnce sync.Once
}

// Verify returns nil when header carries a valid HMAC-SHA256 of body.
func (v *Verifier) Verify(body []byte, header string) error {
	if v.Secret == "" {
		if v.RequireSecret {
			return ErrSecretRequired
		}
		v.warnOnce.Do(func() {
			logger := v.Logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Warn("typeform: webhook secret not configured, accepting unsigned deliveries")
		})
		return nil
	}

	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	got, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return ErrInvalidSignature
	}

	want := Sign(body, v.Secret)
	if !hmac.Equal([]byte(signaturePrefix+got), []byte(want)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the Typeform-Signature header value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// IsAuthError reports whether err came from signature verification.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingSignature) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrSecretRequired)
}
