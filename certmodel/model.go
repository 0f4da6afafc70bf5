package certmodel

import (
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"encoding/json"
	"sort"

	"github.com/effective-security/certreq/oid"
)

// Builder accumulates the name and extensions of a certificate
type Builder interface {
	SetName(name *Name)
	SetBasicConstraints(isCA, critical bool)
	SetKeyUsage(ku x509.KeyUsage, critical bool)
	SetExtendedKeyUsage(ekus []asn1.ObjectIdentifier, critical bool)
	SetCertificatePolicies(policies []asn1.ObjectIdentifier, critical bool)
	// SetSubjectAltNames sets values by GeneralName tag
	SetSubjectAltNames(names map[int][]string, critical bool)
	IncludeAuthorityKeyID(include bool)
	IncludeSubjectKeyID(include bool)
	// IncludeCRLDistributionPoint and IncludeOCSPURL request
	// the issuer locations, the values are provided by the Issuer
	IncludeCRLDistributionPoint(include bool)
	IncludeOCSPURL(include bool)
}

// BasicConstraints extension
type BasicConstraints struct {
	IsCA     bool
	Critical bool
}

// KeyUsage extension
type KeyUsage struct {
	Bits     x509.KeyUsage
	Critical bool
}

// OIDList is a list of OIDs with criticality,
// used for extended key usage and certificate policies
type OIDList struct {
	OIDs     []asn1.ObjectIdentifier
	Critical bool
}

// SubjectAltNames extension
type SubjectAltNames struct {
	Names    map[int][]string
	Critical bool
}

// Model is the in-memory Builder
type Model struct {
	Name                 *Name
	PublicKey            crypto.PublicKey
	BasicConstraints     *BasicConstraints
	KeyUsage             *KeyUsage
	ExtendedKeyUsage     *OIDList
	CertificatePolicies  *OIDList
	SubjectAltNames      *SubjectAltNames
	AuthorityKeyID       bool
	SubjectKeyID         bool
	CRLDistributionPoint bool
	OCSPURL              bool
}

// NewModel returns Model for the public key
func NewModel(pub crypto.PublicKey) *Model {
	return &Model{
		PublicKey: pub,
		Name:      NewName(),
	}
}

// SetName implements Builder
func (m *Model) SetName(name *Name) {
	m.Name = name
}

// SetBasicConstraints implements Builder
func (m *Model) SetBasicConstraints(isCA, critical bool) {
	m.BasicConstraints = &BasicConstraints{IsCA: isCA, Critical: critical}
}

// SetKeyUsage implements Builder
func (m *Model) SetKeyUsage(ku x509.KeyUsage, critical bool) {
	m.KeyUsage = &KeyUsage{Bits: ku, Critical: critical}
}

// SetExtendedKeyUsage implements Builder
func (m *Model) SetExtendedKeyUsage(ekus []asn1.ObjectIdentifier, critical bool) {
	m.ExtendedKeyUsage = &OIDList{OIDs: ekus, Critical: critical}
}

// SetCertificatePolicies implements Builder
func (m *Model) SetCertificatePolicies(policies []asn1.ObjectIdentifier, critical bool) {
	m.CertificatePolicies = &OIDList{OIDs: policies, Critical: critical}
}

// SetSubjectAltNames implements Builder
func (m *Model) SetSubjectAltNames(names map[int][]string, critical bool) {
	m.SubjectAltNames = &SubjectAltNames{Names: names, Critical: critical}
}

// IncludeAuthorityKeyID implements Builder
func (m *Model) IncludeAuthorityKeyID(include bool) {
	m.AuthorityKeyID = include
}

// IncludeSubjectKeyID implements Builder
func (m *Model) IncludeSubjectKeyID(include bool) {
	m.SubjectKeyID = include
}

// IncludeCRLDistributionPoint implements Builder
func (m *Model) IncludeCRLDistributionPoint(include bool) {
	m.CRLDistributionPoint = include
}

// IncludeOCSPURL implements Builder
func (m *Model) IncludeOCSPURL(include bool) {
	m.OCSPURL = include
}

type extJSON struct {
	Critical bool     `json:"critical"`
	IsCA     *bool    `json:"ca,omitempty"`
	Values   []string `json:"values,omitempty"`
}

type modelJSON struct {
	Subject              string              `json:"subject"`
	BasicConstraints     *extJSON            `json:"basic_constraints,omitempty"`
	KeyUsage             *extJSON            `json:"key_usage,omitempty"`
	ExtendedKeyUsage     *extJSON            `json:"extended_key_usage,omitempty"`
	CertificatePolicies  *extJSON            `json:"certificate_policies,omitempty"`
	SubjectAltNames      map[string][]string `json:"subject_alt_names,omitempty"`
	SubjectAltCritical   bool                `json:"subject_alt_names_critical,omitempty"`
	AuthorityKeyID       bool                `json:"include_aki"`
	SubjectKeyID         bool                `json:"include_ski"`
	CRLDistributionPoint bool                `json:"include_crl_dp"`
	OCSPURL              bool                `json:"include_ocsp_url"`
}

var generalNameTags = map[int]string{
	tagRFC822Name: "email",
	tagDNSName:    "dns",
	tagURI:        "uri",
}

// MarshalJSON returns JSON representation of the model
func (m *Model) MarshalJSON() ([]byte, error) {
	v := modelJSON{
		Subject:              m.Name.String(),
		AuthorityKeyID:       m.AuthorityKeyID,
		SubjectKeyID:         m.SubjectKeyID,
		CRLDistributionPoint: m.CRLDistributionPoint,
		OCSPURL:              m.OCSPURL,
	}
	if bc := m.BasicConstraints; bc != nil {
		isCA := bc.IsCA
		v.BasicConstraints = &extJSON{Critical: bc.Critical, IsCA: &isCA}
	}
	if ku := m.KeyUsage; ku != nil {
		v.KeyUsage = &extJSON{Critical: ku.Critical, Values: oid.KeyUsages(ku.Bits)}
	}
	if eku := m.ExtendedKeyUsage; eku != nil {
		v.ExtendedKeyUsage = &extJSON{Critical: eku.Critical, Values: oid.Strings(eku.OIDs...)}
	}
	if p := m.CertificatePolicies; p != nil {
		v.CertificatePolicies = &extJSON{Critical: p.Critical, Values: oid.Strings(p.OIDs...)}
	}
	if san := m.SubjectAltNames; san != nil {
		v.SubjectAltCritical = san.Critical
		v.SubjectAltNames = map[string][]string{}
		for _, tag := range sortedTags(san.Names) {
			name, ok := generalNameTags[tag]
			if !ok {
				name = "unknown"
			}
			v.SubjectAltNames[name] = append(v.SubjectAltNames[name], san.Names[tag]...)
		}
	}
	return json.Marshal(v)
}

func sortedTags(names map[int][]string) []int {
	tags := make([]int, 0, len(names))
	for tag := range names {
		tags = append(tags, tag)
	}
	sort.Ints(tags)
	return tags
}
