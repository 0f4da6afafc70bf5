package request

import (
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"strings"

	"github.com/effective-security/certreq/certutil"
	"github.com/effective-security/xlog"
)

// Kind of request
type Kind string

// Kinds
const (
	KindUnknown     Kind = "unknown"
	KindCertificate Kind = "certificate"
	KindCSR         Kind = "csr"
)

var certificateTypes = []string{
	certutil.PEMCertificate,
	certutil.PEMX509Certificate,
	certutil.PEMTrustedCertificate,
}

var requestTypes = []string{
	certutil.PEMCertificateRequest,
	certutil.PEMNewCertRequest,
}

// ParsedRequest holds exactly one of a self-signed certificate
// or a PKCS#10 certification request
type ParsedRequest struct {
	certificate *x509.Certificate
	request     *x509.CertificateRequest
}

// Certificate returns the certificate, or nil for CSR
func (p *ParsedRequest) Certificate() *x509.Certificate {
	return p.certificate
}

// CertificateRequest returns the CSR, or nil for certificate
func (p *ParsedRequest) CertificateRequest() *x509.CertificateRequest {
	return p.request
}

// Kind returns the kind of the request
func (p *ParsedRequest) Kind() Kind {
	switch {
	case p.certificate != nil:
		return KindCertificate
	case p.request != nil:
		return KindCSR
	default:
		return KindUnknown
	}
}

// PublicKey returns the declared public key
func (p *ParsedRequest) PublicKey() crypto.PublicKey {
	if p.certificate != nil {
		return p.certificate.PublicKey
	}
	return p.request.PublicKey
}

// RawSubject returns DER encoded subject name
func (p *ParsedRequest) RawSubject() []byte {
	if p.certificate != nil {
		return p.certificate.RawSubject
	}
	return p.request.RawSubject
}

// Extensions returns certificate extensions,
// or the extensions of the CSR extensionRequest attribute
func (p *ParsedRequest) Extensions() []pkix.Extension {
	if p.certificate != nil {
		return p.certificate.Extensions
	}
	return p.request.Extensions
}

// CheckSignature verifies the signature against the declared public key
func (p *ParsedRequest) CheckSignature() error {
	if crt := p.certificate; crt != nil {
		if err := crt.CheckSignature(crt.SignatureAlgorithm, crt.RawTBSCertificate, crt.Signature); err != nil {
			logger.KV(xlog.DEBUG, "reason", "signature", "kind", KindCertificate, "err", err.Error())
			return mark(ErrProofOfPossession, MsgCertNotSelf)
		}
		return nil
	}
	if err := p.request.CheckSignature(); err != nil {
		logger.KV(xlog.DEBUG, "reason", "signature", "kind", KindCSR, "err", err.Error())
		return mark(ErrProofOfPossession, MsgRequestNotSelf)
	}
	return nil
}

// Decode returns ParsedRequest from PEM or base64 encoded DER text.
// The first PEM certificate or certificate request is used,
// other PEM objects are skipped.
// If no such PEM object is found, the text is decoded as base64 DER
// of a certificate or a certificate request.
func Decode(text string) (*ParsedRequest, error) {
	if strings.TrimSpace(text) == "" {
		return nil, mark(ErrInputFormat, MsgEmpty)
	}

	types := append(append([]string{}, certificateTypes...), requestTypes...)
	if block := certutil.FindPEMBlock([]byte(text), types...); block != nil {
		for _, typ := range certificateTypes {
			if block.Type == typ {
				return decodeCertificate(block.Bytes)
			}
		}
		return decodeCSR(block.Bytes)
	}

	der, err := certutil.DecodeBase64DER(text)
	if err != nil {
		logger.KV(xlog.DEBUG, "reason", "base64", "err", err.Error())
		return nil, mark(ErrInputFormat, MsgInvalidData)
	}
	if p, err := decodeCertificate(der); err == nil {
		return p, nil
	}
	return decodeCSR(der)
}

func decodeCertificate(der []byte) (*ParsedRequest, error) {
	crt, err := x509.ParseCertificate(der)
	if err != nil {
		logger.KV(xlog.DEBUG, "reason", "parse", "kind", KindCertificate, "err", err.Error())
		return nil, mark(ErrInputFormat, MsgInvalidData)
	}
	return &ParsedRequest{certificate: crt}, nil
}

func decodeCSR(der []byte) (*ParsedRequest, error) {
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		logger.KV(xlog.DEBUG, "reason", "parse", "kind", KindCSR, "err", err.Error())
		return nil, mark(ErrInputFormat, MsgInvalidData)
	}
	return &ParsedRequest{request: csr}, nil
}
