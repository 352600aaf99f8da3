package payment

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"nextaz-be/internal/config"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

const ipnIssuer = "NETOPIA Payments"

// Verification is the outcome of a successful Verify call.
type Verification struct {
	Verified bool
	// SkipReason is set when the notification was let through unverified.
	SkipReason string
}

// IPNVerifier checks the verification-token JWT Netopia attaches to an IPN.
type IPNVerifier struct {
	posSignature string
	key          *rsa.PublicKey
	strict       bool
}

// NewIPNVerifier parses the configured public key. A missing key is allowed
// and makes Verify skip (or fail in strict mode); a malformed one is an error.
func NewIPNVerifier(cfg config.NetopiaConfig) (*IPNVerifier, error) {
	v := &IPNVerifier{posSignature: cfg.POSSignature, strict: cfg.Strict}

	raw := strings.TrimSpace(cfg.PublicKey)
	if raw == "" || strings.Contains(raw, "YOUR_KEY_HERE") {
		return v, nil
	}

	key, err := ParsePublicKey(raw)
	if err != nil {
		return nil, err
	}
	v.key = key
	return v, nil
}

// ParsePublicKey accepts a PEM block, a PEM with escaped newlines, or a
// base64 encoded PEM.
func ParsePublicKey(raw string) (*rsa.PublicKey, error) {
	pem := strings.ReplaceAll(raw, `\n`, "\n")

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err == nil {
		return key, nil
	}

	decoded, decErr := base64.StdEncoding.DecodeString(raw)
	if decErr != nil {
		return nil, errors.Wrap(err, "parse netopia public key")
	}
	key, err = jwt.ParseRSAPublicKeyFromPEM(decoded)
	if err != nil {
		return nil, errors.Wrap(err, "parse netopia public key")
	}
	return key, nil
}

// Available reports whether signatures can actually be checked.
func (v *IPNVerifier) Available() bool {
	return v != nil && v.key != nil && v.posSignature != ""
}

// Verify checks token against the exact raw body bytes. The token must be an
// RS256 JWT issued by Netopia for our POS whose subject is the base64 SHA-256
// of the body.
func (v *IPNVerifier) Verify(token string, body []byte) (Verification, error) {
	strict := v != nil && v.strict

	if token == "" {
		if strict {
			return Verification{}, errors.Wrap(ErrVerificationUnavailable, "missing verification token")
		}
		return Verification{SkipReason: "token_missing"}, nil
	}
	if !v.Available() {
		if strict {
			return Verification{}, errors.Wrap(ErrVerificationUnavailable, "public key not configured")
		}
		return Verification{SkipReason: "public_key_not_configured"}, nil
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return v.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(ipnIssuer),
		jwt.WithAudience(v.posSignature),
	)
	if err != nil {
		return Verification{}, errors.Wrap(ErrInvalidSignature, err.Error())
	}

	if claims.Subject != BodyDigest(body) {
		return Verification{}, errors.Wrap(ErrInvalidSignature, "payload hash mismatch")
	}

	return Verification{Verified: true}, nil
}

// BodyDigest is base64(SHA-256(body)), the value Netopia puts in "sub".
func BodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}
