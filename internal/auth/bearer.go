package auth

import (
	"net/http"
	"strings"
)

// BearerExtractor reads Authorization: Bearer <token>.
type BearerExtractor struct{}

// NewBearerExtractor creates a Bearer token extractor.
func NewBearerExtractor() *BearerExtractor {
	return &BearerExtractor{}
}

// Extract checks the Authorization header for a Bearer token.
func (b *BearerExtractor) Extract(r *http.Request) Result {
	authHeader := r.Header.Get("Authorization")

	if authHeader == "" {
		return Result{
			Valid: false,
			Type:  TypeBearer,
			Error: "missing authorization header",
		}
	}

	// Scheme is case insensitive.
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:6], "bearer") || authHeader[6] != ' ' {
		return Result{
			Valid: false,
			Type:  TypeBearer,
			Error: "invalid authorization scheme",
		}
	}

	token := strings.TrimSpace(authHeader[7:])
	if token == "" {
		return Result{
			Valid: false,
			Type:  TypeBearer,
			Error: "empty bearer token",
		}
	}

	return Result{
		Valid: true,
		Type:  TypeBearer,
		Token: token,
	}
}

// Type returns the authentication type (bearer).
func (b *BearerExtractor) Type() Type {
	return TypeBearer
}
