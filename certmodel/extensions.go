package certmodel

import (
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/oid"
)

// GeneralName tags
const (
	tagRFC822Name = 1
	tagDNSName    = 2
	tagURI        = 6
)

type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

type policyInformation struct {
	Policy asn1.ObjectIdentifier
}

// Extensions returns DER encoded extensions set on the model,
// in the order: basic constraints, key usage, extended key usage,
// certificate policies, subject alt names
func (m *Model) Extensions() ([]pkix.Extension, error) {
	var list []pkix.Extension

	if bc := m.BasicConstraints; bc != nil {
		val, err := asn1.Marshal(basicConstraints{IsCA: bc.IsCA, MaxPathLen: -1})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		list = append(list, pkix.Extension{Id: oid.ExtensionBasicConstraints, Critical: bc.Critical, Value: val})
	}

	if ku := m.KeyUsage; ku != nil && ku.Bits != 0 {
		val, err := marshalKeyUsage(ku.Bits)
		if err != nil {
			return nil, err
		}
		list = append(list, pkix.Extension{Id: oid.ExtensionKeyUsage, Critical: ku.Critical, Value: val})
	}

	if eku := m.ExtendedKeyUsage; eku != nil && len(eku.OIDs) > 0 {
		val, err := asn1.Marshal(eku.OIDs)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		list = append(list, pkix.Extension{Id: oid.ExtensionExtendedKeyUsage, Critical: eku.Critical, Value: val})
	}

	if p := m.CertificatePolicies; p != nil && len(p.OIDs) > 0 {
		policies := make([]policyInformation, len(p.OIDs))
		for i, id := range p.OIDs {
			policies[i].Policy = id
		}
		val, err := asn1.Marshal(policies)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		list = append(list, pkix.Extension{Id: oid.ExtensionCertificatePolicies, Critical: p.Critical, Value: val})
	}

	if san := m.SubjectAltNames; san != nil && len(san.Names) > 0 {
		val, err := marshalSubjectAltNames(san.Names)
		if err != nil {
			return nil, err
		}
		list = append(list, pkix.Extension{Id: oid.ExtensionSubjectAltName, Critical: san.Critical, Value: val})
	}

	return list, nil
}

func marshalSubjectAltNames(names map[int][]string) ([]byte, error) {
	var raw []asn1.RawValue
	for _, tag := range sortedTags(names) {
		if _, ok := generalNameTags[tag]; !ok {
			return nil, errors.Errorf("unsupported general name tag: %d", tag)
		}
		for _, v := range names[tag] {
			if v == "" {
				continue
			}
			raw = append(raw, asn1.RawValue{Tag: tag, Class: asn1.ClassContextSpecific, Bytes: []byte(v)})
		}
	}
	val, err := asn1.Marshal(raw)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return val, nil
}

func marshalKeyUsage(ku x509.KeyUsage) ([]byte, error) {
	var a [2]byte
	a[0] = reverseBitsInAByte(byte(ku))
	a[1] = reverseBitsInAByte(byte(ku >> 8))

	l := 1
	if a[1] != 0 {
		l = 2
	}
	bitString := a[:l]
	val, err := asn1.Marshal(asn1.BitString{Bytes: bitString, BitLength: asn1BitLength(bitString)})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return val, nil
}

func reverseBitsInAByte(in byte) byte {
	b1 := in>>4 | in<<4
	b2 := b1>>2&0x33 | b1<<2&0xcc
	b3 := b2>>1&0x55 | b2<<1&0xaa
	return b3
}

// asn1BitLength returns the bit-length of bitString by considering the
// most-significant bit in a byte to be the "first" bit
func asn1BitLength(bitString []byte) int {
	bitLen := len(bitString) * 8

	for i := range bitString {
		b := bitString[len(bitString)-i-1]

		for bit := uint(0); bit < 8; bit++ {
			if (b>>bit)&1 == 1 {
				return bitLen
			}
			bitLen--
		}
	}

	return 0
}

// subjectKeyID returns RFC 5280 method 1 key identifier
func subjectKeyID(spki []byte) ([]byte, error) {
	var info struct {
		Algorithm pkix.AlgorithmIdentifier
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(spki, &info); err != nil {
		return nil, errors.WithMessage(err, "unable to decode public key")
	}
	h := sha1.Sum(info.PublicKey.RightAlign())
	return h[:], nil
}

// Template returns certificate template with the subject,
// subject key ID and the extensions of the model.
// Serial number and validity are set by the issuer.
func (m *Model) Template() (*x509.Certificate, error) {
	if m.PublicKey == nil {
		return nil, errors.New("missing public key")
	}
	subject, err := m.Name.Marshal()
	if err != nil {
		return nil, err
	}
	exts, err := m.Extensions()
	if err != nil {
		return nil, err
	}

	tmpl := &x509.Certificate{
		RawSubject:      subject,
		ExtraExtensions: exts,
	}

	if bc := m.BasicConstraints; bc != nil {
		tmpl.BasicConstraintsValid = true
		tmpl.IsCA = bc.IsCA
		tmpl.MaxPathLen = -1
	}
	if ku := m.KeyUsage; ku != nil {
		tmpl.KeyUsage = ku.Bits
	}

	if m.SubjectKeyID {
		spki, err := x509.MarshalPKIXPublicKey(m.PublicKey)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		tmpl.SubjectKeyId, err = subjectKeyID(spki)
		if err != nil {
			return nil, err
		}
	}

	return tmpl, nil
}
