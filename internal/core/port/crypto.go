package port

import (
	"time"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/domain"
)

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// SessionTokenIssuer signs and verifies stateless session tokens.
type SessionTokenIssuer interface {
	Issue(subject string, now time.Time) (domain.IssuedToken, error)
	Parse(token string) (domain.SessionClaims, error)
}
