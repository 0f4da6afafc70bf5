package certmodel

import (
	"crypto/x509/pkix"
	"encoding/asn1"

	"github.com/cockroachdb/errors"
)

// AttributeTypeAndValue is a single typed value of a name
type AttributeTypeAndValue struct {
	Type  asn1.ObjectIdentifier `json:"-"`
	Value string                `json:"value"`
}

// RDN is a set of one or more values forming one element of a name
type RDN []AttributeTypeAndValue

// Name is an ordered sequence of RDNs
type Name struct {
	RDNs []RDN
}

// NewName returns an empty Name
func NewName() *Name {
	return &Name{}
}

// Add appends non-empty RDN to the name
func (n *Name) Add(rdn RDN) {
	if len(rdn) > 0 {
		n.RDNs = append(n.RDNs, rdn)
	}
}

// IsEmpty returns true if the name has no RDNs
func (n *Name) IsEmpty() bool {
	return n == nil || len(n.RDNs) == 0
}

// Values returns all values of the attribute, in order
func (n *Name) Values(typ asn1.ObjectIdentifier) []string {
	var list []string
	if n == nil {
		return list
	}
	for _, rdn := range n.RDNs {
		for _, atv := range rdn {
			if atv.Type.Equal(typ) {
				list = append(list, atv.Value)
			}
		}
	}
	return list
}

// ToRDNSequence returns pkix.RDNSequence
func (n *Name) ToRDNSequence() pkix.RDNSequence {
	seq := pkix.RDNSequence{}
	if n == nil {
		return seq
	}
	for _, rdn := range n.RDNs {
		set := make(pkix.RelativeDistinguishedNameSET, 0, len(rdn))
		for _, atv := range rdn {
			set = append(set, pkix.AttributeTypeAndValue{Type: atv.Type, Value: atv.Value})
		}
		seq = append(seq, set)
	}
	return seq
}

// Marshal returns DER encoded Name
func (n *Name) Marshal() ([]byte, error) {
	der, err := asn1.Marshal(n.ToRDNSequence())
	if err != nil {
		return nil, errors.WithMessage(err, "unable to encode name")
	}
	return der, nil
}

// String returns RFC 2253 representation of the name
func (n *Name) String() string {
	return n.ToRDNSequence().String()
}
