package profile

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/catalog"
	"github.com/effective-security/certreq/certmodel"
	"github.com/effective-security/certreq/config"
	"github.com/effective-security/certreq/oid"
)

func attributes(names ...string) []catalog.AttributeParameter {
	list := make([]catalog.AttributeParameter, 0, len(names))
	for _, name := range names {
		if a, ok := catalog.Attribute(name); ok {
			list = append(list, a)
		}
	}
	return list
}

// NewCA returns profile for CA certificates:
// critical basic constraints with CA flag, keyCertSign and cRLSign,
// critical any policy, AKI and SKI
func NewCA() *Base {
	return New(Options{
		Name:     "ca",
		Template: config.DefaultTemplate,
		Attributes: attributes(
			"commonName",
			"organizationName",
			"orgUnitName",
			"orgIdentifier",
			"country",
		),
		Criticality: DefaultCriticality,
	}, UpdaterFunc(func(b certmodel.Builder, _ crypto.PublicKey, _ FormParams) error {
		b.SetBasicConstraints(true, true)
		b.SetCertificatePolicies([]asn1.ObjectIdentifier{oid.AnyPolicy}, true)
		b.SetKeyUsage(x509.KeyUsageCertSign|x509.KeyUsageCRLSign, true)
		b.IncludeAuthorityKeyID(true)
		b.IncludeSubjectKeyID(true)
		return nil
	}))
}

// NewTLSClient returns profile for TLS client certificates:
// digitalSignature with keyEncipherment for RSA keys or keyAgreement
// for other keys, critical clientAuth EKU, AKI and SKI
func NewTLSClient(policies ...string) *Base {
	return New(Options{
		Name:     "tls-client",
		Template: config.DefaultTemplate,
		Attributes: attributes(
			"commonName",
			"givenName",
			"surname",
			"serialNumber",
			"organizationName",
			"orgUnitName",
			"orgIdentifier",
			"country",
		),
		Policies:    policies,
		Criticality: DefaultCriticality,
	}, UpdaterFunc(func(b certmodel.Builder, pub crypto.PublicKey, _ FormParams) error {
		b.SetBasicConstraints(false, false)
		b.IncludeAuthorityKeyID(true)
		b.IncludeSubjectKeyID(true)
		b.SetKeyUsage(KeyUsageBits([]config.KeyUsageType{config.KeyUsageSign, config.KeyUsageEncrypt}, pub), true)
		b.SetExtendedKeyUsage([]asn1.ObjectIdentifier{oid.KeyPurposeClientAuth}, true)
		return nil
	}))
}

// NewConfigured returns profile with every value taken from the configuration.
// The configuration must be already merged with the defaults.
func NewConfigured(name string, cfg *config.Profile) (*Base, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "profile %s", name)
	}
	// errors are checked by Validate
	attrs, _ := cfg.AttributeParameters()
	sans, _ := cfg.SubjectAltNameParameters()
	reqEKUs, _ := cfg.EKUParameters()
	others, _ := cfg.OtherParameters()
	ekus, _ := cfg.ExtendedKeyUsages()
	policies, _ := cfg.PolicyOIDs()

	template := cfg.Template
	if template == "" {
		template = config.DefaultTemplate
	}

	u := &configured{
		cfg:      cfg,
		policies: policies,
	}
	for _, eku := range ekus {
		u.ekus = append(u.ekus, eku.OID)
	}

	return New(Options{
		Name:            name,
		Template:        template,
		Attributes:      attrs,
		SubjectAltNames: sans,
		EKUs:            reqEKUs,
		Others:          others,
		FixedValues:     cfg.RequestFixedValue,
		Criticality: Criticality{
			SubjectAltName: config.Bool(cfg.SubjAltNameCritical),
			EKU:            config.Bool(cfg.EKUCritical),
			Policy:         config.Bool(cfg.PolicyCritical),
		},
	}, u), nil
}

type configured struct {
	cfg      *config.Profile
	policies []asn1.ObjectIdentifier
	ekus     []asn1.ObjectIdentifier
}

// Update sets basic constraints, key usage and key identifiers.
// Configured policies and EKUs override the requested ones.
func (c *configured) Update(b certmodel.Builder, pub crypto.PublicKey, _ FormParams) error {
	cfg := c.cfg
	b.SetBasicConstraints(config.Bool(cfg.CA), config.Bool(cfg.BCCritical))
	b.IncludeAuthorityKeyID(config.Bool(cfg.IncludeAKI))
	b.IncludeSubjectKeyID(config.Bool(cfg.IncludeSKI))
	b.SetKeyUsage(KeyUsageBits(cfg.KeyUsages, pub), config.Bool(cfg.KeyUsageCritical))

	if config.Bool(cfg.AnyPolicy) {
		b.SetCertificatePolicies([]asn1.ObjectIdentifier{oid.AnyPolicy}, config.Bool(cfg.PolicyCritical))
	} else if len(c.policies) > 0 {
		b.SetCertificatePolicies(c.policies, config.Bool(cfg.PolicyCritical))
	}

	if len(c.ekus) > 0 {
		b.SetExtendedKeyUsage(c.ekus, config.Bool(cfg.EKUCritical))
	}
	return nil
}

// KeyUsageBits returns key usage bitmask for the types.
// encrypt is keyEncipherment for RSA keys, and keyAgreement for others.
func KeyUsageBits(types []config.KeyUsageType, pub crypto.PublicKey) x509.KeyUsage {
	var ku x509.KeyUsage
	for _, t := range types {
		switch t {
		case config.KeyUsageSign:
			ku |= x509.KeyUsageDigitalSignature
		case config.KeyUsageEncrypt:
			if _, ok := pub.(*rsa.PublicKey); ok {
				ku |= x509.KeyUsageKeyEncipherment
			} else {
				ku |= x509.KeyUsageKeyAgreement
			}
		case config.KeyUsageNonRepudiation:
			ku |= x509.KeyUsageContentCommitment
		case config.KeyUsageCA:
			ku |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
		}
	}
	return ku
}
