// Package testreq provides certificate and request fixtures for tests
package testreq

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"strings"
	"time"

	"github.com/effective-security/certreq/certutil"
)

// Entity is a self-signed certificate or a certification request
type Entity struct {
	PrivateKey  crypto.Signer
	Certificate *x509.Certificate
	Request     *x509.CertificateRequest
	// DER of the certificate or the request
	DER []byte
}

type configuration struct {
	subject    *pkix.Name
	rawSubject []byte
	dnsNames   []string
	emails     []string
	extensions []pkix.Extension
	key        crypto.Signer
	signer     crypto.Signer
	tamper     bool
}

// Option is a fixture option
type Option func(*configuration)

// Subject sets the subject name
func Subject(name pkix.Name) Option {
	return func(c *configuration) {
		c.subject = &name
	}
}

// RawSubject sets DER encoded subject name
func RawSubject(der []byte) Option {
	return func(c *configuration) {
		c.rawSubject = der
	}
}

// DNSName adds DNS names to SAN
func DNSName(names ...string) Option {
	return func(c *configuration) {
		c.dnsNames = append(c.dnsNames, names...)
	}
}

// Email adds e-mail addresses to SAN
func Email(emails ...string) Option {
	return func(c *configuration) {
		c.emails = append(c.emails, emails...)
	}
}

// Extensions adds extensions
func Extensions(exts ...pkix.Extension) Option {
	return func(c *configuration) {
		c.extensions = append(c.extensions, exts...)
	}
}

// PrivateKey sets the key, ECDSA P-256 is generated by default
func PrivateKey(key crypto.Signer) Option {
	return func(c *configuration) {
		c.key = key
	}
}

// SignedBy signs the certificate with another key,
// so that it is not self-signed
func SignedBy(signer crypto.Signer) Option {
	return func(c *configuration) {
		c.signer = signer
	}
}

// Tampered modifies the signature of the request
var Tampered Option = func(c *configuration) {
	c.tamper = true
}

func newConfiguration(opts []Option) *configuration {
	c := &configuration{}
	for _, o := range opts {
		o(c)
	}
	if c.key == nil {
		c.key = ECKey()
	}
	if c.subject == nil && c.rawSubject == nil {
		c.subject = &pkix.Name{CommonName: "[TEST] Request"}
	}
	return c
}

// NewCertificate returns self-signed certificate
func NewCertificate(opts ...Option) *Entity {
	c := newConfiguration(opts)

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 64))
	if err != nil {
		panic(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:    serial,
		RawSubject:      c.rawSubject,
		NotBefore:       time.Now().Add(-time.Hour).UTC(),
		NotAfter:        time.Now().Add(24 * time.Hour).UTC(),
		DNSNames:        c.dnsNames,
		EmailAddresses:  c.emails,
		ExtraExtensions: c.extensions,
		KeyUsage:        x509.KeyUsageDigitalSignature,
	}
	if c.subject != nil {
		tmpl.Subject = *c.subject
	}

	signer := c.key
	if c.signer != nil {
		signer = c.signer
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, c.key.Public(), signer)
	if err != nil {
		panic(err)
	}
	if c.tamper {
		der = tamper(der)
	}
	crt, err := x509.ParseCertificate(der)
	if err != nil {
		panic(err)
	}
	return &Entity{
		PrivateKey:  c.key,
		Certificate: crt,
		DER:         der,
	}
}

// NewCSR returns certification request
func NewCSR(opts ...Option) *Entity {
	c := newConfiguration(opts)

	tmpl := &x509.CertificateRequest{
		RawSubject:      c.rawSubject,
		DNSNames:        c.dnsNames,
		EmailAddresses:  c.emails,
		ExtraExtensions: c.extensions,
	}
	if c.subject != nil {
		tmpl.Subject = *c.subject
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, tmpl, c.key)
	if err != nil {
		panic(err)
	}
	if c.tamper {
		der = tamper(der)
	}
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		panic(err)
	}
	return &Entity{
		PrivateKey: c.key,
		Request:    csr,
		DER:        der,
	}
}

// PEM returns PEM encoded entity
func (e *Entity) PEM() string {
	if e.Certificate != nil {
		s, err := certutil.EncodeToPEMString(e.Certificate)
		if err != nil {
			panic(err)
		}
		return s + "\n"
	}
	return string(certutil.EncodeCSRToPEM(e.DER))
}

// Base64 returns base64 encoded DER, wrapped at 64 characters
func (e *Entity) Base64() string {
	s := base64.StdEncoding.EncodeToString(e.DER)
	var b strings.Builder
	for len(s) > 64 {
		b.WriteString(s[:64])
		b.WriteString("\n")
		s = s[64:]
	}
	b.WriteString(s)
	return b.String()
}

// ECKey returns new P-256 key
func ECKey() *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}
	return key
}

// RSAKey returns new 2048 bits RSA key
func RSAKey() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}

// tamper flips the last byte of the signature
func tamper(der []byte) []byte {
	res := append([]byte(nil), der...)
	res[len(res)-1] ^= 0xff
	return res
}
