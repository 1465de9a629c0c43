package auth

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ChainExtractor tries multiple extractors in order.
// The first extractor to succeed is used. If all fail,
// the last error is returned.
type ChainExtractor struct {
	extractors []Extractor
}

// NewChainExtractor creates a chain of extractors.
func NewChainExtractor(extractors ...Extractor) *ChainExtractor {
	return &ChainExtractor{
		extractors: extractors,
	}
}

// DefaultChain accepts Authorization: Bearer first, then the provider key
// headers callers copy from vendor SDK examples.
func DefaultChain() *ChainExtractor {
	return NewChainExtractor(
		NewBearerExtractor(),
		NewAPIKeyExtractor(HeaderAnthropicKey),
		NewAPIKeyExtractor(HeaderGoogleKey),
	)
}

// Extract tries each extractor in order until one succeeds.
// Returns the first successful result, or the last failure if all fail.
func (c *ChainExtractor) Extract(r *http.Request) Result {
	if len(c.extractors) == 0 {
		return Result{
			Valid: false,
			Type:  TypeNone,
			Error: "no credential extractors configured",
		}
	}

	// Once a valid result is found it is passed through unchanged.
	result := lo.Reduce(c.extractors, func(acc Result, ex Extractor, _ int) Result {
		if acc.Valid {
			return acc
		}
		return ex.Extract(r)
	}, Result{Valid: false, Type: TypeNone})

	if !result.Valid {
		return Result{
			Valid: false,
			Type:  TypeNone,
			Error: result.Error,
		}
	}

	return result
}

// Type returns TypeNone since this is a meta-extractor.
func (c *ChainExtractor) Type() Type {
	return TypeNone
}

// ExtractResult is Extract as mo.Result[Result]: Ok when a credential was
// found, Err with a *MissingCredentialError otherwise.
func (c *ChainExtractor) ExtractResult(r *http.Request) mo.Result[Result] {
	result := c.Extract(r)
	if result.Valid {
		return mo.Ok(result)
	}
	return mo.Err[Result](NewMissingCredentialError(result.Type, result.Error))
}

// MissingCredentialError wraps extraction failure details.
type MissingCredentialError struct {
	Type    Type
	Message string
}

// Error implements the error interface.
func (e *MissingCredentialError) Error() string {
	return e.Message
}

// NewMissingCredentialError creates a MissingCredentialError.
func NewMissingCredentialError(authType Type, message string) *MissingCredentialError {
	return &MissingCredentialError{
		Type:    authType,
		Message: message,
	}
}
