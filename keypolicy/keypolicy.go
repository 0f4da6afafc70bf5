// Package keypolicy provides public key validation for certificate requests
package keypolicy

import (
	"crypto"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/certutil"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/certreq", "keypolicy")

// Validator validates a public key extracted from a request
type Validator interface {
	// ValidatePublicKey returns an error with the reason,
	// if the key is not acceptable
	ValidatePublicKey(pub crypto.PublicKey) error
}

// Func is an adapter to use a function as a Validator
type Func func(pub crypto.PublicKey) error

// ValidatePublicKey calls f(pub)
func (f Func) ValidatePublicKey(pub crypto.PublicKey) error {
	return f(pub)
}

// AllowAll accepts any public key
var AllowAll Validator = Func(func(crypto.PublicKey) error { return nil })

// Config specifies the key policy
type Config struct {
	// AllowedTypes specifies the list of key types: RSA, ECDSA, Ed25519.
	// If empty, all types are allowed.
	AllowedTypes []string `json:"allowed_types,omitempty" yaml:"allowed_types,omitempty"`
	// MinRSAKeySize specifies the minimum RSA modulus size in bits
	MinRSAKeySize int `json:"min_rsa_key_size,omitempty" yaml:"min_rsa_key_size,omitempty"`
	// AllowedCurves specifies the list of EC curves, like P-256.
	// If empty, all curves are allowed.
	AllowedCurves []string `json:"allowed_curves,omitempty" yaml:"allowed_curves,omitempty"`
}

// Policy is a configurable Validator
type Policy struct {
	cfg Config
}

// New returns Policy
func New(cfg *Config) *Policy {
	p := &Policy{}
	if cfg != nil {
		p.cfg = *cfg
	}
	return p
}

// ValidatePublicKey implements Validator
func (p *Policy) ValidatePublicKey(pub crypto.PublicKey) error {
	if pub == nil {
		return errors.New("missing public key")
	}
	ki, err := certutil.NewKeyInfo(pub)
	if err != nil {
		return err
	}

	if len(p.cfg.AllowedTypes) > 0 && !slices.Contains(p.cfg.AllowedTypes, ki.Type) {
		logger.KV(xlog.DEBUG, "reason", "type", "type", ki.Type)
		return errors.Errorf("key type %s is not allowed", ki.Type)
	}

	switch ki.Type {
	case certutil.KeyTypeRSA:
		if ki.KeySize < p.cfg.MinRSAKeySize {
			logger.KV(xlog.DEBUG, "reason", "size", "size", ki.KeySize)
			return errors.Errorf("RSA key size %d is less than %d", ki.KeySize, p.cfg.MinRSAKeySize)
		}
	case certutil.KeyTypeECDSA:
		if len(p.cfg.AllowedCurves) > 0 && !slices.Contains(p.cfg.AllowedCurves, ki.Curve) {
			logger.KV(xlog.DEBUG, "reason", "curve", "curve", ki.Curve)
			return errors.Errorf("EC curve %s is not allowed", ki.Curve)
		}
	}
	return nil
}
