package oid

import (
	"crypto/x509"
	"encoding/asn1"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// KeyUsage contains a mapping of string names to key usages.
var KeyUsage = map[string]x509.KeyUsage{
	"digital signature":  x509.KeyUsageDigitalSignature,
	"content commitment": x509.KeyUsageContentCommitment,
	"key encipherment":   x509.KeyUsageKeyEncipherment,
	"data encipherment":  x509.KeyUsageDataEncipherment,
	"key agreement":      x509.KeyUsageKeyAgreement,
	"cert sign":          x509.KeyUsageCertSign,
	"crl sign":           x509.KeyUsageCRLSign,
	"encipher only":      x509.KeyUsageEncipherOnly,
	"decipher only":      x509.KeyUsageDecipherOnly,
}

// well-known extension OIDs
var (
	ExtensionSubjectKeyID          = asn1.ObjectIdentifier{2, 5, 29, 14}
	ExtensionKeyUsage              = asn1.ObjectIdentifier{2, 5, 29, 15}
	ExtensionSubjectAltName        = asn1.ObjectIdentifier{2, 5, 29, 17}
	ExtensionBasicConstraints      = asn1.ObjectIdentifier{2, 5, 29, 19}
	ExtensionCertificatePolicies   = asn1.ObjectIdentifier{2, 5, 29, 32}
	ExtensionAuthorityKeyID        = asn1.ObjectIdentifier{2, 5, 29, 35}
	ExtensionExtendedKeyUsage      = asn1.ObjectIdentifier{2, 5, 29, 37}
	ExtensionCRLDistributionPoints = asn1.ObjectIdentifier{2, 5, 29, 31}
	ExtensionAuthorityInfoAccess   = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 1}

	// AnyPolicy is anyPolicy, RFC 5280 4.2.1.4
	AnyPolicy = asn1.ObjectIdentifier{2, 5, 29, 32, 0}

	// ExtensionRequest is PKCS#9 extensionRequest attribute
	ExtensionRequest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 14}
)

// subject attribute OIDs
var (
	NameEmailAddress  = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
	NameSurname       = asn1.ObjectIdentifier{2, 5, 4, 4}
	NameCN            = asn1.ObjectIdentifier{2, 5, 4, 3}
	NameSerial        = asn1.ObjectIdentifier{2, 5, 4, 5}
	NameC             = asn1.ObjectIdentifier{2, 5, 4, 6}
	NameL             = asn1.ObjectIdentifier{2, 5, 4, 7}
	NameST            = asn1.ObjectIdentifier{2, 5, 4, 8}
	NameO             = asn1.ObjectIdentifier{2, 5, 4, 10}
	NameOU            = asn1.ObjectIdentifier{2, 5, 4, 11}
	NameTitle         = asn1.ObjectIdentifier{2, 5, 4, 12}
	NameGivenName     = asn1.ObjectIdentifier{2, 5, 4, 42}
	NameOrgIdentifier = asn1.ObjectIdentifier{2, 5, 4, 97}
)

// key purpose OIDs
var (
	KeyPurposeServerAuth   = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
	KeyPurposeClientAuth   = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
	KeyPurposeTimeStamping = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 8}
	KeyPurposeOCSPSigning  = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 9}

	// Digital COVID certificate purposes
	KeyPurposeCovidTest        = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 1847, 2021, 1, 1}
	KeyPurposeCovidVaccination = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 1847, 2021, 1, 2}
	KeyPurposeCovidRecovery    = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 1847, 2021, 1, 3}
)

// DisplayName provides OID name
var DisplayName = map[string]string{
	"2.5.29.14":             "Subject KeyID",
	"2.5.29.15":             "Key Usage",
	"2.5.29.17":             "Subject Alt Name",
	"2.5.29.19":             "Basic Constraints",
	"2.5.29.31":             "CRL Distribution Point",
	"2.5.29.32":             "Certificate Policies",
	"2.5.29.32.0":           "Any Policy",
	"2.5.29.35":             "Authority KeyID",
	"2.5.29.37":             "Extended KeyUsage",
	"1.3.6.1.5.5.7.1.1":     "Authority Info Access",
	"1.3.6.1.5.5.7.3.1":     "TLS Server authentication",
	"1.3.6.1.5.5.7.3.2":     "TLS Client authentication",
	"1.3.6.1.5.5.7.3.8":     "Time stamping",
	"1.3.6.1.5.5.7.3.9":     "OCSP signing",
	"1.2.840.113549.1.9.14": "Extension Request",
}

// KeyUsages returns sorted list of names
func KeyUsages(ku x509.KeyUsage) []string {
	list := make([]string, 0, len(KeyUsage))

	for k, v := range KeyUsage {
		if ku&v == v {
			list = append(list, k)
		}
	}
	sort.Strings(list)
	return list
}

// Strings returns list of OID string values
func Strings(ids ...asn1.ObjectIdentifier) []string {
	list := make([]string, 0, len(ids))

	for _, k := range ids {
		list = append(list, k.String())
	}

	return list
}

// Parse returns OID from dotted string
func Parse(s string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 {
		return nil, errors.Errorf("invalid OID: %q", s)
	}
	id := make(asn1.ObjectIdentifier, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return nil, errors.Errorf("invalid OID: %q", s)
		}
		id[i] = v
	}
	if id[0] > 2 || (id[0] < 2 && id[1] > 39) {
		return nil, errors.Errorf("invalid OID: %q", s)
	}
	return id, nil
}
