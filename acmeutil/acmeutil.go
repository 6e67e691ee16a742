// Package acmeutil holds the small ACME-specific helpers method handlers
// need: computing an account key's JWK thumbprint (RFC 7638) for the
// HTTP-01/DNS-01 key authorization, and the corresponding DNS-01 TXT value
// encoding.
package acmeutil

import (
	"crypto"
	"crypto/sha256"
	"encoding/base64"

	jose "gopkg.in/go-jose/go-jose.v2"

	berrors "github.com/letsencrypt/dcv/errors"
)

// Thumbprint computes the RFC 7638 JWK thumbprint of key, base64url-encoded
// without padding, as used in an ACME key authorization.
func Thumbprint(key *jose.JSONWebKey) (string, error) {
	if key == nil {
		return "", berrors.InternalServerError("acmeutil: nil JWK")
	}
	th, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", berrors.InternalServerError("acmeutil: computing thumbprint: %s", err)
	}
	return base64.RawURLEncoding.EncodeToString(th), nil
}

// KeyAuthorization builds the ACME key authorization string "token.thumbprint".
func KeyAuthorization(token, thumbprint string) string {
	return token + "." + thumbprint
}

// DNS01TXTValue computes the expected TXT record value for DNS-01:
// base64url(SHA256(keyAuthorization)), no padding.
func DNS01TXTValue(keyAuthorization string) string {
	sum := sha256.Sum256([]byte(keyAuthorization))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
