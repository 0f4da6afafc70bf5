package request

import (
	"encoding/asn1"
	"encoding/hex"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/certutil"
	"github.com/effective-security/certreq/oid"
	"github.com/effective-security/xlog"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// string types not defined in cryptobyte
const (
	tagUniversalString = cbasn1.Tag(28)
	tagBMPString       = cbasn1.Tag(30)
)

var (
	bmpDecoder       = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	universalDecoder = utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)
)

// attributeValue is a typed value of a name,
// with the original ASN.1 tag preserved
type attributeValue struct {
	oid  asn1.ObjectIdentifier
	tag  cbasn1.Tag
	body []byte
	der  []byte
}

// generalName is a single GeneralName with the context-specific tag number
type generalName struct {
	tag   int
	value []byte
}

// parseRDNSequence returns the values of each RDN, in order
func parseRDNSequence(raw []byte) ([][]attributeValue, error) {
	input := cryptobyte.String(raw)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, errors.New("invalid RDNSequence")
	}

	var rdns [][]attributeValue
	for !seq.Empty() {
		var set cryptobyte.String
		if !seq.ReadASN1(&set, cbasn1.SET) {
			return nil, errors.New("invalid RDNSequence: invalid RDN")
		}
		var rdn []attributeValue
		for !set.Empty() {
			var atv cryptobyte.String
			if !set.ReadASN1(&atv, cbasn1.SEQUENCE) {
				return nil, errors.New("invalid RDNSequence: invalid attribute")
			}
			var v attributeValue
			if !atv.ReadASN1ObjectIdentifier(&v.oid) {
				return nil, errors.New("invalid RDNSequence: invalid attribute type")
			}
			var der cryptobyte.String
			if !atv.ReadAnyASN1Element(&der, &v.tag) {
				return nil, errors.New("invalid RDNSequence: invalid attribute value")
			}
			v.der = der
			var body cryptobyte.String
			if !der.ReadAnyASN1(&body, &v.tag) {
				return nil, errors.New("invalid RDNSequence: invalid attribute value")
			}
			v.body = body
			rdn = append(rdn, v)
		}
		rdns = append(rdns, rdn)
	}
	return rdns, nil
}

// valueString returns the textual value of a string or time primitive,
// other types are rendered as '#' followed by hex of DER.
// T61String is read as Latin-1.
func valueString(v attributeValue) (string, error) {
	switch v.tag {
	case cbasn1.UTF8String:
		if !utf8.Valid(v.body) {
			return "", errors.New("invalid UTF8String")
		}
		return string(v.body), nil
	case cbasn1.PrintableString:
		for _, c := range v.body {
			if !isPrintable(c) {
				return "", errors.New("invalid PrintableString")
			}
		}
		return string(v.body), nil
	case cbasn1.IA5String:
		for _, c := range v.body {
			if c >= utf8.RuneSelf {
				return "", errors.New("invalid IA5String")
			}
		}
		return string(v.body), nil
	case cbasn1.T61String:
		return decodeString(charmap.ISO8859_1, v.body, "T61String")
	case tagBMPString:
		if len(v.body)%2 != 0 {
			return "", errors.New("invalid BMPString")
		}
		return decodeString(bmpDecoder, v.body, "BMPString")
	case tagUniversalString:
		if len(v.body)%4 != 0 {
			return "", errors.New("invalid UniversalString")
		}
		return decodeString(universalDecoder, v.body, "UniversalString")
	case cbasn1.GeneralizedTime:
		if len(v.body) < 8 {
			return "", errors.New("invalid GeneralizedTime")
		}
		return string(v.body[:8]), nil
	default:
		return "#" + hex.EncodeToString(v.der), nil
	}
}

func decodeString(enc encoding.Encoding, b []byte, typ string) (string, error) {
	s, err := enc.NewDecoder().Bytes(b)
	if err != nil || !utf8.Valid(s) {
		return "", errors.Newf("invalid %s", typ)
	}
	return string(s), nil
}

func isPrintable(b byte) bool {
	return 'a' <= b && b <= 'z' ||
		'A' <= b && b <= 'Z' ||
		'0' <= b && b <= '9' ||
		'\'' <= b && b <= ')' ||
		'+' <= b && b <= '/' ||
		b == ' ' ||
		b == ':' ||
		b == '=' ||
		b == '?' ||
		// '*' and '&' are not permitted, but are widely used
		b == '*' ||
		b == '&'
}

// findSubjectAltNames returns the general names of SAN extension.
// Absent or malformed extension returns nil.
func findSubjectAltNames(p *ParsedRequest) []generalName {
	val := certutil.FindExtensionValue(p.Extensions(), oid.ExtensionSubjectAltName)
	if val == nil {
		return nil
	}
	names, err := parseGeneralNames(val)
	if err != nil {
		logger.KV(xlog.DEBUG, "reason", "san", "err", err.Error())
		return nil
	}
	return names
}

func parseGeneralNames(der []byte) ([]generalName, error) {
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, errors.New("invalid GeneralNames")
	}

	var list []generalName
	for !seq.Empty() {
		var value cryptobyte.String
		var tag cbasn1.Tag
		if !seq.ReadAnyASN1(&value, &tag) {
			return nil, errors.New("invalid GeneralName")
		}
		// GeneralName is a CHOICE of context-specific tags
		if tag&0xc0 != 0x80 {
			return nil, errors.New("invalid GeneralName")
		}
		list = append(list, generalName{
			tag:   int(tag & 0x1f),
			value: value,
		})
	}
	return list, nil
}
