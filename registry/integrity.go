package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Integrity errors.
var (
	ErrDigestMismatch   = errors.New("registry: integrity digest mismatch")
	ErrInvalidSignature = errors.New("registry: invalid integrity signature")
)

// ModelsDigest computes the hex SHA-256 of the provider's models array as
// canonical JSON. This is the value integrity.sha256 commits to.
func ModelsDigest(p *ProviderDescriptor) (string, error) {
	data, err := json.Marshal(p.Models)
	if err != nil {
		return "", fmt.Errorf("registry: marshal models for digest: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// integrityClaims is the payload of the detached JWS in
// integrity.signature.
type integrityClaims struct {
	SHA256 string `json:"sha256"`
	jwt.RegisteredClaims
}

// VerifyIntegrity checks a provider's optional integrity metadata.
//
// When integrity.sha256 is present it must match the recomputed models
// digest. When integrity.signature is present and verifyKey is non-nil,
// the signature must be a valid JWS whose sha256 claim matches the digest.
// A signature with a nil verifyKey is skipped, not failed; absent
// integrity metadata always passes.
func VerifyIntegrity(p *ProviderDescriptor, verifyKey any) error {
	if p.Integrity == nil {
		return nil
	}

	digest, err := ModelsDigest(p)
	if err != nil {
		return err
	}

	if p.Integrity.SHA256 != "" && p.Integrity.SHA256 != digest {
		return fmt.Errorf("%w: provider %q", ErrDigestMismatch, p.Slug)
	}

	if p.Integrity.Signature == "" || verifyKey == nil {
		return nil
	}

	claims := &integrityClaims{}
	token, err := jwt.ParseWithClaims(p.Integrity.Signature, claims, func(*jwt.Token) (any, error) {
		return verifyKey, nil
	})
	if err != nil {
		return fmt.Errorf("%w: provider %q: %w", ErrInvalidSignature, p.Slug, err)
	}
	if !token.Valid || claims.SHA256 != digest {
		return fmt.Errorf("%w: provider %q: signed digest mismatch", ErrInvalidSignature, p.Slug)
	}
	return nil
}
