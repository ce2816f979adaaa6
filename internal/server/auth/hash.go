package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// HashRefreshToken returns the digest stored in place of a refresh token.
// bcrypt is unsuitable here: it only reads the first 72 bytes and every
// token issued with the same header shares them.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// MatchRefreshToken reports whether token hashes to hash, in constant time.
func MatchRefreshToken(hash, token string) bool {
	if hash == "" {
		return false
	}
	got := HashRefreshToken(token)
	return subtle.ConstantTimeCompare([]byte(hash), []byte(got)) == 1
}
