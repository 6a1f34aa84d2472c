// Package totpx wraps RFC 6238 time-based one-time passwords: secret
// generation, key-URI provisioning, QR rendering and code verification with
// a clock-skew window.
package totpx

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// SecretSize is the raw secret length in bytes (160 bits, RFC 4226).
	SecretSize = 20

	// Period is the time-step length.
	Period = 30 * time.Second

	// Digits is the code length.
	Digits = 6

	// DefaultSkew accepts codes one step either side of the current one.
	DefaultSkew = 1

	// QRSize is the rendered QR edge length in pixels.
	QRSize = 256
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Engine generates and checks TOTP codes. The zero value uses DefaultSkew,
// no issuer and the wall clock.
type Engine struct {
	Issuer string
	Skew   uint
	Clock  func() time.Time
}

// New returns an engine for issuer with the default skew.
func New(issuer string) *Engine {
	return &Engine{Issuer: issuer, Skew: DefaultSkew}
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Engine) skew() int64 {
	if e.Skew == 0 {
		return DefaultSkew
	}
	return int64(e.Skew)
}

// GenerateSecret returns a fresh random secret, base32 without padding.
func (e *Engine) GenerateSecret() (string, error) {
	raw := make([]byte, SecretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("totpx: read secret: %w", err)
	}
	return b32.EncodeToString(raw), nil
}

// ProvisioningURI builds the otpauth:// key URI for secret under the
// engine's issuer.
func (e *Engine) ProvisioningURI(secret, accountLabel string) (string, error) {
	return ProvisioningURIFor(secret, accountLabel, e.Issuer)
}

// ProvisioningURIFor builds the otpauth:// key URI for secret, label and
// issuer. The result is deterministic for the same inputs.
func ProvisioningURIFor(secret, accountLabel, issuer string) (string, error) {
	raw, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountLabel,
		Period:      uint(Period / time.Second),
		SecretSize:  SecretSize,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("totpx: build key uri: %w", err)
	}
	return key.URL(), nil
}

// RenderQR encodes uri as a PNG QR code and returns it as a data URI.
func (e *Engine) RenderQR(uri string) (string, error) {
	code, err := qr.Encode(uri, qr.M, qr.Auto)
	if err != nil {
		return "", fmt.Errorf("totpx: encode qr: %w", err)
	}

	code, err = barcode.Scale(code, QRSize, QRSize)
	if err != nil {
		return "", fmt.Errorf("totpx: scale qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return "", fmt.Errorf("totpx: encode png: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Verify reports whether code is valid for secret within the skew window.
func (e *Engine) Verify(secret, code string) bool {
	_, ok := e.Match(secret, code)
	return ok
}

// Match is Verify that also returns the time-step counter the code matched.
// Malformed codes and secrets yield false.
func (e *Engine) Match(secret, code string) (int64, bool) {
	if !wellFormed(code) || secret == "" {
		return 0, false
	}

	current := Counter(e.now())
	skew := e.skew()
	opts := totp.ValidateOpts{
		Period:    uint(Period / time.Second),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}

	for step := current - skew; step <= current+skew; step++ {
		want, err := totp.GenerateCodeCustom(secret, StepTime(step), opts)
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return step, true
		}
	}
	return 0, false
}

// Code returns the code for secret at t. Used by enrolment tooling and tests.
func (e *Engine) Code(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, totp.ValidateOpts{
		Period:    uint(Period / time.Second),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

// Counter is the time-step index containing t.
func Counter(t time.Time) int64 {
	return t.Unix() / int64(Period/time.Second)
}

// StepTime is the start of time-step counter.
func StepTime(counter int64) time.Time {
	return time.Unix(counter*int64(Period/time.Second), 0)
}

func wellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimRight(strings.TrimSpace(secret), "="))
	raw, err := b32.DecodeString(s)
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("totpx: invalid secret encoding")
	}
	return raw, nil
}
