package certmodel

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/certreq", "certmodel")

// Issuer issues a certificate for the model
type Issuer interface {
	IssueCertificate(ctx context.Context, m *Model) (*x509.Certificate, error)
}

// LocalIssuer signs certificates with a local CA key
type LocalIssuer struct {
	cert     *x509.Certificate
	signer   crypto.Signer
	validity time.Duration
	crlDP    []string
	ocsp     []string
}

// IssuerOption configures LocalIssuer
type IssuerOption func(*LocalIssuer)

// WithCRLDistributionPoints specifies CRL locations,
// added when the model includes CRL distribution point
func WithCRLDistributionPoints(urls ...string) IssuerOption {
	return func(i *LocalIssuer) {
		i.crlDP = urls
	}
}

// WithOCSPServers specifies OCSP responder locations,
// added when the model includes OCSP URL
func WithOCSPServers(urls ...string) IssuerOption {
	return func(i *LocalIssuer) {
		i.ocsp = urls
	}
}

// NewLocalIssuer returns LocalIssuer.
// Issued certificates carry the authority key identifier
// whenever the CA certificate has a subject key identifier.
func NewLocalIssuer(cert *x509.Certificate, signer crypto.Signer, validity time.Duration, opts ...IssuerOption) *LocalIssuer {
	i := &LocalIssuer{
		cert:     cert,
		signer:   signer,
		validity: validity,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueCertificate implements Issuer
func (i *LocalIssuer) IssueCertificate(ctx context.Context, m *Model) (*x509.Certificate, error) {
	tmpl, err := m.Template()
	if err != nil {
		return nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 127))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	now := time.Now().UTC()
	tmpl.SerialNumber = serial
	tmpl.NotBefore = now.Add(-time.Minute)
	tmpl.NotAfter = now.Add(i.validity)
	if m.CRLDistributionPoint {
		tmpl.CRLDistributionPoints = i.crlDP
	}
	if m.OCSPURL {
		tmpl.OCSPServer = i.ocsp
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, i.cert, m.PublicKey, i.signer)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to create certificate")
	}
	crt, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logger.KV(xlog.INFO, "status", "issued", "serial", crt.SerialNumber.String())
	return crt, nil
}
