// Package identity derives cart ownership keys from request credentials.
// It performs no authentication: any non-empty bearer credential is its own key.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Guest is the identity shared by all requests without a bearer credential.
const Guest = "guest"

const bearerScheme = "bearer"

// Resolve returns the credential itself, byte for byte, or Guest when it is
// empty. Credentials differing only in whitespace are distinct identities.
func Resolve(credential string) string {
	if credential == "" {
		return Guest
	}
	return credential
}

// FromAuthorization resolves an identity from an Authorization header value.
// Anything other than a bearer credential resolves to Guest. Surrounding
// whitespace and the spaces after the scheme belong to the header syntax;
// the token itself is passed to Resolve untouched.
func FromAuthorization(header string) string {
	scheme, credential, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return Guest
	}
	return Resolve(strings.TrimLeft(credential, " "))
}

// Fingerprint is a short, stable digest of an identity that is safe to log
// or publish. Raw identities may be bearer credentials.
func Fingerprint(identity string) string {
	if identity == Guest {
		return Guest
	}
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:8])
}
