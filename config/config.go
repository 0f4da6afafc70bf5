// Package config provides certificate profile configuration
package config

import (
	"encoding/asn1"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/catalog"
	"github.com/effective-security/certreq/keypolicy"
	"github.com/effective-security/certreq/oid"
	"github.com/jinzhu/copier"
)

// DefaultTemplate is the name of the request page template
const DefaultTemplate = "cert-request"

// KeyUsageType specifies a group of key usage bits
type KeyUsageType string

// Key usage types
const (
	// KeyUsageSign is digitalSignature
	KeyUsageSign KeyUsageType = "sign"
	// KeyUsageEncrypt is keyEncipherment for RSA keys, keyAgreement otherwise
	KeyUsageEncrypt KeyUsageType = "encrypt"
	// KeyUsageNonRepudiation is contentCommitment
	KeyUsageNonRepudiation KeyUsageType = "nr"
	// KeyUsageCA is keyCertSign and cRLSign
	KeyUsageCA KeyUsageType = "ca"
)

// Profile specifies a configured certificate profile.
// Fields that are not set inherit the default profile values.
type Profile struct {
	Template            string            `json:"template,omitempty" yaml:"template,omitempty"`
	RequestAttributes   []string          `json:"request_attributes,omitempty" yaml:"request_attributes,omitempty"`
	RequestSubjAltNames []string          `json:"request_subj_alt_names,omitempty" yaml:"request_subj_alt_names,omitempty"`
	RequestEKU          []string          `json:"request_eku,omitempty" yaml:"request_eku,omitempty"`
	RequestOther        []string          `json:"request_other,omitempty" yaml:"request_other,omitempty"`
	RequestFixedValue   map[string]string `json:"request_fixed_value,omitempty" yaml:"request_fixed_value,omitempty"`
	IncludeAKI          *bool             `json:"include_aki,omitempty" yaml:"include_aki,omitempty"`
	IncludeSKI          *bool             `json:"include_ski,omitempty" yaml:"include_ski,omitempty"`
	IncludeCrlDP        *bool             `json:"include_crl_dp,omitempty" yaml:"include_crl_dp,omitempty"`
	IncludeOcspURL      *bool             `json:"include_ocsp_url,omitempty" yaml:"include_ocsp_url,omitempty"`
	Policy              []string          `json:"policy,omitempty" yaml:"policy,omitempty"`
	AnyPolicy           *bool             `json:"any_policy,omitempty" yaml:"any_policy,omitempty"`
	PolicyCritical      *bool             `json:"policy_critical,omitempty" yaml:"policy_critical,omitempty"`
	EKU                 []string          `json:"eku,omitempty" yaml:"eku,omitempty"`
	EKUCritical         *bool             `json:"eku_critical,omitempty" yaml:"eku_critical,omitempty"`
	CA                  *bool             `json:"ca,omitempty" yaml:"ca,omitempty"`
	BCCritical          *bool             `json:"bc_critical,omitempty" yaml:"bc_critical,omitempty"`
	KeyUsages           []KeyUsageType    `json:"key_usages,omitempty" yaml:"key_usages,omitempty"`
	KeyUsageCritical    *bool             `json:"key_usage_critical,omitempty" yaml:"key_usage_critical,omitempty"`
	SubjAltNameCritical *bool             `json:"subj_alt_name_critical,omitempty" yaml:"subj_alt_name_critical,omitempty"`
}

// Instance binds a profile to an issuing instance
type Instance struct {
	Profile string `json:"profile" yaml:"profile"`
	// Policy specifies certificate policies that are added
	// in front of the policies requested in the form
	Policy []string `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// Config of certificate profiles
type Config struct {
	Default   Profile              `json:"default" yaml:"default"`
	Profiles  map[string]*Profile  `json:"profiles,omitempty" yaml:"profiles,omitempty"`
	KeyPolicy *keypolicy.Config    `json:"key_policy,omitempty" yaml:"key_policy,omitempty"`
	Instances map[string]*Instance `json:"instances,omitempty" yaml:"instances,omitempty"`
}

// Merged returns the profile with unset values taken from the default profile
func (c *Config) Merged(name string) (*Profile, error) {
	p, ok := c.Profiles[name]
	if !ok || p == nil {
		return nil, errors.Errorf("profile not found: %s", name)
	}
	return Merge(p, &c.Default)
}

// Merge returns a deep copy of p, with unset values inherited from def
func Merge(p, def *Profile) (*Profile, error) {
	m := Profile{
		Template:            inherit(p.Template, def.Template, p.Template != ""),
		RequestAttributes:   inherit(p.RequestAttributes, def.RequestAttributes, p.RequestAttributes != nil),
		RequestSubjAltNames: inherit(p.RequestSubjAltNames, def.RequestSubjAltNames, p.RequestSubjAltNames != nil),
		RequestEKU:          inherit(p.RequestEKU, def.RequestEKU, p.RequestEKU != nil),
		RequestOther:        inherit(p.RequestOther, def.RequestOther, p.RequestOther != nil),
		RequestFixedValue:   inherit(p.RequestFixedValue, def.RequestFixedValue, p.RequestFixedValue != nil),
		IncludeAKI:          inherit(p.IncludeAKI, def.IncludeAKI, p.IncludeAKI != nil),
		IncludeSKI:          inherit(p.IncludeSKI, def.IncludeSKI, p.IncludeSKI != nil),
		IncludeCrlDP:        inherit(p.IncludeCrlDP, def.IncludeCrlDP, p.IncludeCrlDP != nil),
		IncludeOcspURL:      inherit(p.IncludeOcspURL, def.IncludeOcspURL, p.IncludeOcspURL != nil),
		Policy:              inherit(p.Policy, def.Policy, p.Policy != nil),
		AnyPolicy:           inherit(p.AnyPolicy, def.AnyPolicy, p.AnyPolicy != nil),
		PolicyCritical:      inherit(p.PolicyCritical, def.PolicyCritical, p.PolicyCritical != nil),
		EKU:                 inherit(p.EKU, def.EKU, p.EKU != nil),
		EKUCritical:         inherit(p.EKUCritical, def.EKUCritical, p.EKUCritical != nil),
		CA:                  inherit(p.CA, def.CA, p.CA != nil),
		BCCritical:          inherit(p.BCCritical, def.BCCritical, p.BCCritical != nil),
		KeyUsages:           inherit(p.KeyUsages, def.KeyUsages, p.KeyUsages != nil),
		KeyUsageCritical:    inherit(p.KeyUsageCritical, def.KeyUsageCritical, p.KeyUsageCritical != nil),
		SubjAltNameCritical: inherit(p.SubjAltNameCritical, def.SubjAltNameCritical, p.SubjAltNameCritical != nil),
	}
	if m.Template == "" {
		m.Template = DefaultTemplate
	}

	res := new(Profile)
	if err := copier.CopyWithOption(res, &m, copier.Option{DeepCopy: true}); err != nil {
		return nil, errors.WithStack(err)
	}
	return res, nil
}

func inherit[T any](v, def T, set bool) T {
	if set {
		return v
	}
	return def
}

// Bool returns the value, or false if not set
func Bool(v *bool) bool {
	return v != nil && *v
}

// Validate returns error if the profile refers to unknown
// catalog names, key usages or invalid policy OIDs
func (p *Profile) Validate() error {
	if _, err := p.AttributeParameters(); err != nil {
		return err
	}
	if _, err := p.SubjectAltNameParameters(); err != nil {
		return err
	}
	if _, err := p.EKUParameters(); err != nil {
		return err
	}
	if _, err := p.OtherParameters(); err != nil {
		return err
	}
	if _, err := p.ExtendedKeyUsages(); err != nil {
		return err
	}
	if _, err := p.PolicyOIDs(); err != nil {
		return err
	}
	for _, ku := range p.KeyUsages {
		if !slices.Contains([]KeyUsageType{KeyUsageSign, KeyUsageEncrypt, KeyUsageNonRepudiation, KeyUsageCA}, ku) {
			return errors.Errorf("unknown key usage: %s", ku)
		}
	}
	for name := range p.RequestFixedValue {
		if !isCatalogName(name) {
			return errors.Errorf("unknown fixed value: %s", name)
		}
	}
	return nil
}

func isCatalogName(name string) bool {
	if _, ok := catalog.Attribute(name); ok {
		return true
	}
	_, ok := catalog.SubjectAltName(name)
	return ok
}

// AttributeParameters returns the requested attributes, in configured order
func (p *Profile) AttributeParameters() ([]catalog.AttributeParameter, error) {
	return resolve(p.RequestAttributes, "attribute", catalog.Attribute)
}

// SubjectAltNameParameters returns the requested SAN types
func (p *Profile) SubjectAltNameParameters() ([]catalog.SubjectAltNameParameter, error) {
	return resolve(p.RequestSubjAltNames, "subject alt name", catalog.SubjectAltName)
}

// EKUParameters returns the requested extended key usages
func (p *Profile) EKUParameters() ([]catalog.ExtendedKeyUsageParameter, error) {
	return resolve(p.RequestEKU, "extended key usage", catalog.ExtendedKeyUsage)
}

// OtherParameters returns the requested other parameters
func (p *Profile) OtherParameters() ([]catalog.OtherParameter, error) {
	return resolve(p.RequestOther, "other parameter", catalog.Other)
}

// ExtendedKeyUsages returns the configured extended key usages,
// that override the requested ones
func (p *Profile) ExtendedKeyUsages() ([]catalog.ExtendedKeyUsageParameter, error) {
	return resolve(p.EKU, "extended key usage", catalog.ExtendedKeyUsage)
}

// PolicyOIDs returns the configured policy OIDs
func (p *Profile) PolicyOIDs() ([]asn1.ObjectIdentifier, error) {
	var list []asn1.ObjectIdentifier
	for _, s := range p.Policy {
		id, err := oid.Parse(s)
		if err != nil {
			return nil, err
		}
		list = append(list, id)
	}
	return list, nil
}

func resolve[T any](names []string, kind string, lookup func(string) (T, bool)) ([]T, error) {
	list := make([]T, 0, len(names))
	for _, name := range names {
		v, ok := lookup(name)
		if !ok {
			return nil, errors.Errorf("unknown %s: %s", kind, name)
		}
		list = append(list, v)
	}
	return list, nil
}

// ExtendPolicies returns a copy of the form,
// with the instance policies in front of the requested policies
func (i *Instance) ExtendPolicies(form map[string][]string) map[string][]string {
	res := make(map[string][]string, len(form)+1)
	for k, v := range form {
		res[k] = v
	}
	if len(i.Policy) > 0 {
		res[catalog.OtherPolicy] = append(slices.Clone(i.Policy), form[catalog.OtherPolicy]...)
	}
	return res
}
