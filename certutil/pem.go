package certutil

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"io"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// PEM block types
const (
	PEMCertificate        = "CERTIFICATE"
	PEMX509Certificate    = "X509 CERTIFICATE"
	PEMTrustedCertificate = "TRUSTED CERTIFICATE"
	PEMCertificateRequest = "CERTIFICATE REQUEST"
	PEMNewCertRequest     = "NEW CERTIFICATE REQUEST"
	PEMPublicKey          = "PUBLIC KEY"
	PEMPrivateKey         = "PRIVATE KEY"
	PEMECParameters       = "EC PARAMETERS"
)

// FindPEMBlock returns the first PEM block of one of the provided types,
// blocks of other types are skipped.
// Returns nil if no such block is found.
func FindPEMBlock(data []byte, types ...string) *pem.Block {
	var block *pem.Block
	rest := bytes.TrimSpace(data)
	for len(rest) != 0 {
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil
		}
		for _, typ := range types {
			if block.Type == typ {
				return block
			}
		}
		rest = bytes.TrimSpace(rest)
	}
	return nil
}

// DecodeBase64DER decodes base64 text with any whitespace,
// padded or not
func DecodeBase64DER(text string) ([]byte, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if s == "" {
		return nil, errors.New("no data")
	}

	der, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		der, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, errors.WithMessage(err, "unable to decode base64")
		}
	}
	return der, nil
}

// EncodeToPEM converts certificates to PEM format
func EncodeToPEM(out io.Writer, certs ...*x509.Certificate) error {
	for _, crt := range certs {
		if crt == nil {
			continue
		}
		err := pem.Encode(out, &pem.Block{Type: PEMCertificate, Bytes: crt.Raw})
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// EncodeToPEMString converts certificates to PEM format
func EncodeToPEMString(certs ...*x509.Certificate) (string, error) {
	b := bytes.NewBuffer([]byte{})
	err := EncodeToPEM(b, certs...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

// EncodeCSRToPEM returns PEM encoded certificate request
func EncodeCSRToPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: PEMCertificateRequest, Bytes: der})
}

// EncodePublicKeyToPEM returns PEM encoded public key
func EncodePublicKeyToPEM(pubKey crypto.PublicKey) ([]byte, error) {
	asn1Bytes, err := x509.MarshalPKIXPublicKey(pubKey)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  PEMPublicKey,
		Bytes: asn1Bytes,
	}), nil
}

// ParseFromPEM returns the first certificate parsed from PEM
func ParseFromPEM(data []byte) (*x509.Certificate, error) {
	block := FindPEMBlock(data, PEMCertificate, PEMX509Certificate, PEMTrustedCertificate)
	if block == nil {
		return nil, errors.New("unable to parse PEM")
	}

	crt, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to parse certificate")
	}
	return crt, nil
}

// ParsePrivateKeyPEM parses unencrypted PKCS#8, PKCS#1
// or EC private key.
// EC PARAMETERS blocks are skipped.
func ParsePrivateKeyPEM(keyPEM []byte) (crypto.Signer, error) {
	var block *pem.Block
	rest := bytes.TrimSpace(keyPEM)
	for {
		block, rest = pem.Decode(rest)
		if block == nil || block.Type != PEMECParameters {
			break
		}
	}
	if block == nil {
		return nil, errors.New("unable to decode private key")
	}
	if procType, ok := block.Headers["Proc-Type"]; ok && strings.Contains(procType, "ENCRYPTED") {
		return nil, errors.New("encrypted private key")
	}
	return ParsePrivateKeyDER(block.Bytes)
}

// ParsePrivateKeyDER parses a PKCS#1, PKCS#8, or EC DER-encoded private key
func ParsePrivateKeyDER(keyDER []byte) (crypto.Signer, error) {
	generalKey, err := x509.ParsePKCS8PrivateKey(keyDER)
	if err != nil {
		generalKey, err = x509.ParsePKCS1PrivateKey(keyDER)
		if err != nil {
			generalKey, err = x509.ParseECPrivateKey(keyDER)
			if err != nil {
				// the cause is not included to not leak key material
				return nil, errors.New("unable to parse private key")
			}
		}
	}

	switch key := generalKey.(type) {
	case *rsa.PrivateKey:
		return key, nil
	case *ecdsa.PrivateKey:
		return key, nil
	case ed25519.PrivateKey:
		return key, nil
	}
	return nil, errors.Errorf("unsupported private key: %T", generalKey)
}

// EncodePrivateKeyToPEM returns PKCS#8 PEM encoded private key
func EncodePrivateKeyToPEM(key crypto.Signer) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: PEMPrivateKey, Bytes: der}), nil
}
