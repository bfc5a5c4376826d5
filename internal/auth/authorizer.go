// Package auth decides administrative authority. Callers present an opaque
// admin key; who holds a key is deployment configuration.
package auth

import "crypto/subtle"

// StaticAuthorizer implements domain.Authorizer against a fixed key list
// loaded from configuration.
type StaticAuthorizer struct {
	keys []string
}

// NewStaticAuthorizer creates an authorizer over the given admin keys. An
// empty list denies everyone.
func NewStaticAuthorizer(keys []string) *StaticAuthorizer {
	return &StaticAuthorizer{keys: keys}
}

// IsAdmin reports whether caller matches a configured admin key. Comparison
// is constant-time per key.
func (a *StaticAuthorizer) IsAdmin(caller string) bool {
	if caller == "" {
		return false
	}
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare([]byte(caller), []byte(k)) == 1 {
			return true
		}
	}
	return false
}
