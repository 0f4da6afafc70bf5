// Package profile provides certificate profiles.
//
// A profile declares which request fields can be collected,
// the values that are fixed by the profile, and builds the
// certificate content model from the collected values.
package profile

import (
	"crypto"
	"encoding/asn1"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/catalog"
	"github.com/effective-security/certreq/certmodel"
	"github.com/effective-security/certreq/metricskey"
	"github.com/effective-security/certreq/oid"
	"github.com/effective-security/certreq/sanitize"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/certreq", "profile")

// ErrSubjectNameBuild is returned when a form value is rejected
// while building the subject name
var ErrSubjectNameBuild = errors.New("subject name build error")

// FormParams are the values submitted with a request form,
// compatible with url.Values
type FormParams map[string][]string

// Has returns true if the form has the parameter
func (f FormParams) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Profile is a certificate profile
type Profile interface {
	// TemplateName returns the name of the request page template
	TemplateName() string
	// AttributeParameters returns the subject attributes collected by the profile
	AttributeParameters() []catalog.AttributeParameter
	// SubjectAltNameParameters returns the SAN types collected by the profile
	SubjectAltNameParameters() []catalog.SubjectAltNameParameter
	// EKUParameters returns the key purposes that can be requested
	EKUParameters() []catalog.ExtendedKeyUsageParameter
	// OtherParameters returns other parameters collected by the profile
	OtherParameters() []catalog.OtherParameter
	// FixedValues returns the values that override any requested value
	FixedValues() map[string]string
	// CertNameModel returns the subject name built from the form
	CertNameModel(form FormParams) (*certmodel.Name, error)
	// AppendCertificateModel appends the extensions to the builder
	AppendCertificateModel(b certmodel.Builder, pub crypto.PublicKey, form FormParams) error
}

// Updater makes profile specific updates of the certificate model,
// after the policies, SAN and EKU from the form are applied.
// An Updater may override any of those.
type Updater interface {
	Update(b certmodel.Builder, pub crypto.PublicKey, form FormParams) error
}

// UpdaterFunc is an adapter to use a function as an Updater
type UpdaterFunc func(b certmodel.Builder, pub crypto.PublicKey, form FormParams) error

// Update calls f(b, pub, form)
func (f UpdaterFunc) Update(b certmodel.Builder, pub crypto.PublicKey, form FormParams) error {
	return f(b, pub, form)
}

// Criticality of the extensions built from the form
type Criticality struct {
	SubjectAltName bool
	EKU            bool
	Policy         bool
}

// DefaultCriticality marks only EKU as critical
var DefaultCriticality = Criticality{EKU: true}

// Options of the profile
type Options struct {
	// Name is used in logs and metrics
	Name            string
	Template        string
	Attributes      []catalog.AttributeParameter
	SubjectAltNames []catalog.SubjectAltNameParameter
	EKUs            []catalog.ExtendedKeyUsageParameter
	Others          []catalog.OtherParameter
	FixedValues     map[string]string
	// Policies are dotted OIDs always included in certificate policies
	Policies    []string
	Criticality Criticality
}

// Base implements Profile with the shared algorithm,
// the profile specific part is provided by Updater
type Base struct {
	opts    Options
	updater Updater
}

// New returns Base profile.
// Updater is optional.
func New(opts Options, updater Updater) *Base {
	return &Base{
		opts:    opts,
		updater: updater,
	}
}

// Name returns the profile name
func (p *Base) Name() string {
	return p.opts.Name
}

// TemplateName implements Profile
func (p *Base) TemplateName() string {
	return p.opts.Template
}

// AttributeParameters implements Profile
func (p *Base) AttributeParameters() []catalog.AttributeParameter {
	return append([]catalog.AttributeParameter{}, p.opts.Attributes...)
}

// SubjectAltNameParameters implements Profile
func (p *Base) SubjectAltNameParameters() []catalog.SubjectAltNameParameter {
	return append([]catalog.SubjectAltNameParameter{}, p.opts.SubjectAltNames...)
}

// EKUParameters implements Profile
func (p *Base) EKUParameters() []catalog.ExtendedKeyUsageParameter {
	return append([]catalog.ExtendedKeyUsageParameter{}, p.opts.EKUs...)
}

// OtherParameters implements Profile
func (p *Base) OtherParameters() []catalog.OtherParameter {
	return append([]catalog.OtherParameter{}, p.opts.Others...)
}

// FixedValues implements Profile
func (p *Base) FixedValues() map[string]string {
	res := make(map[string]string, len(p.opts.FixedValues))
	for k, v := range p.opts.FixedValues {
		res[k] = v
	}
	return res
}

// CertNameModel returns the name with one RDN per catalog attribute,
// in priority order. A fixed value replaces the form values;
// blank values are dropped.
func (p *Base) CertNameModel(form FormParams) (*certmodel.Name, error) {
	name := certmodel.NewName()

	for _, attr := range catalog.Attributes() {
		values, ok := form[attr.Name]
		if fixed, isFixed := p.opts.FixedValues[attr.Name]; isFixed {
			values = []string{fixed}
		} else if !ok {
			continue
		}

		var rdn certmodel.RDN
		for _, v := range values {
			s, err := sanitize.Validate(v, true)
			if err != nil {
				logger.KV(xlog.DEBUG, "reason", "subject", "profile", p.opts.Name, "attribute", attr.Name, "err", err.Error())
				return nil, errors.Mark(errors.Newf("Subject name error: %s", err.Error()), ErrSubjectNameBuild)
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			rdn = append(rdn, certmodel.AttributeTypeAndValue{Type: attr.OID, Value: s})
		}
		name.Add(rdn)
	}
	return name, nil
}

// AppendCertificateModel appends certificate policies, SAN and EKU
// from the form, then calls the profile Updater
func (p *Base) AppendCertificateModel(b certmodel.Builder, pub crypto.PublicKey, form FormParams) error {
	defer metricskey.PerfProfileBuild.MeasureSince(time.Now(), p.opts.Name)

	if form == nil {
		form = FormParams{}
	}
	crit := p.opts.Criticality

	policies, err := p.policies(form)
	if err != nil {
		return err
	}
	if len(policies) > 0 {
		b.SetCertificatePolicies(policies, crit.Policy)
	}

	if names := p.subjectAltNames(form); len(names) > 0 {
		b.SetSubjectAltNames(names, crit.SubjectAltName)
	}

	var ekus []asn1.ObjectIdentifier
	for _, eku := range catalog.ExtendedKeyUsages() {
		if form.Has(eku.Name) {
			ekus = append(ekus, eku.OID)
		}
	}
	if len(ekus) > 0 {
		b.SetExtendedKeyUsage(ekus, crit.EKU)
	}

	if p.updater != nil {
		return p.updater.Update(b, pub, form)
	}
	return nil
}

// policies returns the profile policies followed by the requested ones,
// without duplicates
func (p *Base) policies(form FormParams) ([]asn1.ObjectIdentifier, error) {
	var list []asn1.ObjectIdentifier
	seen := map[string]bool{}

	all := append(append([]string{}, p.opts.Policies...), form[catalog.OtherPolicy]...)
	for _, s := range all {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		id, err := oid.Parse(s)
		if err != nil {
			return nil, errors.WithMessage(err, "certificate policy")
		}
		seen[s] = true
		list = append(list, id)
	}
	return list, nil
}

// subjectAltNames returns comma separated values by GeneralName tag,
// a fixed value replaces the form values
func (p *Base) subjectAltNames(form FormParams) map[int][]string {
	names := map[int][]string{}
	for _, san := range catalog.SubjectAltNames() {
		values, ok := form[san.Name]
		if fixed, isFixed := p.opts.FixedValues[san.Name]; isFixed {
			values = []string{fixed}
		} else if !ok {
			continue
		}

		var list []string
		for _, v := range values {
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					list = append(list, s)
				}
			}
		}
		if len(list) > 0 {
			names[san.Tag] = list
		}
	}
	return names
}
