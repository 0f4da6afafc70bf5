// Package catalog provides the fixed tables of subject attributes,
// subject alternative name types, extended key usages and other
// parameters that can be collected for a certificate request.
package catalog

import (
	"encoding/asn1"
	"sort"

	"github.com/effective-security/certreq/oid"
)

// Names of "other" parameters
const (
	OtherPolicy   = "otherParamsPolicy"
	OtherKeyUsage = "otherParamsKeyUsage"
)

// AttributeParameter describes a subject name attribute
type AttributeParameter struct {
	Name  string
	Rank  int
	OID   asn1.ObjectIdentifier
	Label string
}

// SubjectAltNameParameter describes a GeneralName type
type SubjectAltNameParameter struct {
	Name  string
	Tag   int
	Label string
}

// ExtendedKeyUsageParameter describes a key purpose
type ExtendedKeyUsageParameter struct {
	Name  string
	OID   asn1.ObjectIdentifier
	Label string
}

// OtherParameter describes a parameter that is neither
// a name attribute nor an extension value
type OtherParameter struct {
	Name  string
	Label string
}

var attributes = []AttributeParameter{
	{Name: "commonName", Rank: 5, OID: oid.NameCN, Label: "Common name"},
	{Name: "country", Rank: 0, OID: oid.NameC, Label: "Country"},
	{Name: "givenName", Rank: 7, OID: oid.NameGivenName, Label: "Given name"},
	{Name: "locality", Rank: 11, OID: oid.NameL, Label: "Locality"},
	{Name: "orgIdentifier", Rank: 3, OID: oid.NameOrgIdentifier, Label: "Organization identifier"},
	{Name: "orgUnitName", Rank: 2, OID: oid.NameOU, Label: "Organization unit name"},
	{Name: "organizationName", Rank: 1, OID: oid.NameO, Label: "Organization name"},
	{Name: "serialNumber", Rank: 4, OID: oid.NameSerial, Label: "Serial number"},
	{Name: "surname", Rank: 6, OID: oid.NameSurname, Label: "Surname"},
	{Name: "title", Rank: 10, OID: oid.NameTitle, Label: "Title"},
}

var subjectAltNames = []SubjectAltNameParameter{
	{Name: "altNameDnsName", Tag: 2, Label: "DNS name"},
	{Name: "altNameEmail", Tag: 1, Label: "E-mail address"},
}

var extendedKeyUsages = []ExtendedKeyUsageParameter{
	{Name: "ekuServerAuth", OID: oid.KeyPurposeServerAuth, Label: "TLS server authentication"},
	{Name: "ekuClientAuth", OID: oid.KeyPurposeClientAuth, Label: "TLS client authentication"},
	{Name: "ekuTimeStamping", OID: oid.KeyPurposeTimeStamping, Label: "Time stamping"},
	{Name: "ekuOCSPSigning", OID: oid.KeyPurposeOCSPSigning, Label: "OCSP signing"},
	{Name: "ekuCovidTest", OID: oid.KeyPurposeCovidTest, Label: "Covid test certificate"},
	{Name: "ekuCovidVaccination", OID: oid.KeyPurposeCovidVaccination, Label: "Covid vaccination certificate"},
	{Name: "ekuCovidRecovery", OID: oid.KeyPurposeCovidRecovery, Label: "Covid recovery certificate"},
}

var others = []OtherParameter{
	{Name: OtherPolicy, Label: "Certificate policy"},
	{Name: OtherKeyUsage, Label: "Key usage"},
}

func init() {
	sort.SliceStable(attributes, func(i, j int) bool {
		return attributes[i].Rank < attributes[j].Rank
	})
}

// Attributes returns all subject attributes ordered by rank
func Attributes() []AttributeParameter {
	return append([]AttributeParameter(nil), attributes...)
}

// SubjectAltNames returns all SAN types in catalog order
func SubjectAltNames() []SubjectAltNameParameter {
	return append([]SubjectAltNameParameter(nil), subjectAltNames...)
}

// ExtendedKeyUsages returns all supported key purposes
func ExtendedKeyUsages() []ExtendedKeyUsageParameter {
	return append([]ExtendedKeyUsageParameter(nil), extendedKeyUsages...)
}

// Others returns all other parameters
func Others() []OtherParameter {
	return append([]OtherParameter(nil), others...)
}

// Attribute returns the attribute by canonical name
func Attribute(name string) (AttributeParameter, bool) {
	for _, a := range attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeParameter{}, false
}

// SubjectAltName returns the SAN type by canonical name
func SubjectAltName(name string) (SubjectAltNameParameter, bool) {
	for _, a := range subjectAltNames {
		if a.Name == name {
			return a, true
		}
	}
	return SubjectAltNameParameter{}, false
}

// ExtendedKeyUsage returns the key purpose by canonical name
func ExtendedKeyUsage(name string) (ExtendedKeyUsageParameter, bool) {
	for _, a := range extendedKeyUsages {
		if a.Name == name {
			return a, true
		}
	}
	return ExtendedKeyUsageParameter{}, false
}

// Other returns the other parameter by canonical name
func Other(name string) (OtherParameter, bool) {
	for _, a := range others {
		if a.Name == name {
			return a, true
		}
	}
	return OtherParameter{}, false
}

// SortAttributes sorts the list by rank, in place
func SortAttributes(list []AttributeParameter) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Rank < list[j].Rank
	})
}
