// Package request parses certificate requests submitted by operators.
//
// A request is either a self-signed certificate or a PKCS#10 request,
// PEM or base64 DER encoded. The signature is verified against the
// declared public key as proof of possession, the key is checked
// against the key policy, and the subject name and subject alt name
// values are extracted and sanitized.
package request

import (
	"crypto"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/catalog"
	"github.com/effective-security/certreq/keypolicy"
	"github.com/effective-security/certreq/metricskey"
	"github.com/effective-security/certreq/sanitize"
	"github.com/effective-security/xlog"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/certreq", "request")

// Result of the request parsing.
// If ErrorMessage is set, Attributes must not be relied upon,
// regardless of its content.
type Result struct {
	Attributes   *AttributeMap    `json:"attributeValueMap"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
	Err          error            `json:"-"`
	PublicKey    crypto.PublicKey `json:"-"`
	Kind         Kind             `json:"-"`
}

// Failed returns true if the request was rejected
func (r *Result) Failed() bool {
	return r.ErrorMessage != ""
}

func (r *Result) fail(err error) *Result {
	r.Err = err
	r.ErrorMessage = err.Error()
	return r
}

type options struct {
	validator keypolicy.Validator
	fixed     map[string]string
}

// An Option sets options such as key policy and fixed values
type Option func(*options)

// WithValidator sets the public key policy.
// By default all keys are accepted.
func WithValidator(v keypolicy.Validator) Option {
	return func(o *options) {
		if v != nil {
			o.validator = v
		}
	}
}

// WithFixedValues sets the values that override
// the values extracted from the request
func WithFixedValues(fixed map[string]string) Option {
	return func(o *options) {
		o.fixed = fixed
	}
}

// Parser parses requests, it is safe for concurrent use
type Parser struct {
	opts options
}

// NewParser returns Parser
func NewParser(opt ...Option) *Parser {
	p := &Parser{
		opts: options{
			validator: keypolicy.AllowAll,
		},
	}
	for _, o := range opt {
		o(&p.opts)
	}
	return p
}

// Parse is a shortcut for NewParser with the validator and fixed values
func Parse(text string, validator keypolicy.Validator, fixed map[string]string) *Result {
	return NewParser(WithValidator(validator), WithFixedValues(fixed)).Parse(text)
}

// Parse returns the Result of the request.
// The processing stops at the first error.
func (p *Parser) Parse(text string) *Result {
	start := time.Now()
	res := &Result{
		Attributes: NewAttributeMap(),
		Kind:       KindUnknown,
	}
	defer func() {
		status := "ok"
		if res.Failed() {
			status = "failed"
		}
		metricskey.PerfRequestParse.MeasureSince(start, string(res.Kind), status)
	}()

	req, err := Decode(text)
	if err != nil {
		return res.fail(err)
	}
	res.Kind = req.Kind()

	if err = req.CheckSignature(); err != nil {
		return res.fail(err)
	}
	res.PublicKey = req.PublicKey()

	if err = p.opts.validator.ValidatePublicKey(res.PublicKey); err != nil {
		logger.KV(xlog.DEBUG, "reason", "key_policy", "kind", res.Kind, "err", err.Error())
		return res.fail(markf(ErrPublicKeyPolicy, "Illegal public key in request - %s", err.Error()))
	}

	if err = p.extractName(req.RawSubject(), res.Attributes); err != nil {
		logger.KV(xlog.DEBUG, "reason", "subject", "kind", res.Kind, "err", err.Error())
		return res.fail(markf(ErrAttributeExtraction, "Error parsing subject name - %s", err.Error()))
	}
	if err = p.extractSubjectAltNames(findSubjectAltNames(req), res.Attributes); err != nil {
		logger.KV(xlog.DEBUG, "reason", "san", "kind", res.Kind, "err", err.Error())
		return res.fail(markf(ErrAttributeExtraction, "Error parsing subject alternative name - %s", err.Error()))
	}

	return res
}

// extractName stores the catalog attributes found in the subject,
// in priority order. For repeated attributes the last one wins.
func (p *Parser) extractName(rawSubject []byte, attrs *AttributeMap) error {
	rdns, err := parseRDNSequence(rawSubject)
	if err != nil {
		return err
	}

	for _, attr := range catalog.Attributes() {
		for _, rdn := range rdns {
			for _, v := range rdn {
				if !v.oid.Equal(attr.OID) {
					continue
				}
				if fixed, ok := p.opts.fixed[attr.Name]; ok {
					attrs.Set(attr.Name, fixed)
					continue
				}
				s, err := safeValue(v, false)
				if err != nil {
					return err
				}
				attrs.Set(attr.Name, s)
			}
		}
	}
	return nil
}

func (p *Parser) extractSubjectAltNames(names []generalName, attrs *AttributeMap) error {
	if len(names) == 0 {
		return nil
	}

	buckets := map[string][]string{}
	for _, gn := range names {
		for _, san := range catalog.SubjectAltNames() {
			if gn.tag != san.Tag {
				continue
			}
			s, err := safeValue(attributeValue{tag: cbasn1.IA5String, body: gn.value}, true)
			if err != nil {
				return err
			}
			buckets[san.Name] = append(buckets[san.Name], s)
		}
	}

	for _, san := range catalog.SubjectAltNames() {
		values, ok := buckets[san.Name]
		if !ok {
			continue
		}
		if fixed, ok := p.opts.fixed[san.Name]; ok {
			attrs.Set(san.Name, fixed)
		} else {
			attrs.Set(san.Name, strings.Join(values, ", "))
		}
	}
	return nil
}

func safeValue(v attributeValue, maskEmailAt bool) (string, error) {
	s, err := valueString(v)
	if err == nil {
		s, err = sanitize.Validate(s, maskEmailAt)
	}
	if err != nil {
		return "", errors.Newf("Unsafe or illegal content in subject name attribute - %s", err.Error())
	}
	return s, nil
}
