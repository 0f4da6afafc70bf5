// Package enroll provides certificate enrollment:
// the request is parsed and validated, the certificate content
// is built by the profile of the issuing instance,
// and the certificate is issued by the Issuer.
package enroll

import (
	"context"
	"crypto/x509"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/certmodel"
	"github.com/effective-security/certreq/config"
	"github.com/effective-security/certreq/keypolicy"
	"github.com/effective-security/certreq/metricskey"
	"github.com/effective-security/certreq/profile"
	"github.com/effective-security/certreq/registry"
	"github.com/effective-security/certreq/request"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/certreq", "enroll")

// Request for enrollment
type Request struct {
	// Instance is the issuing instance,
	// if specified the Profile is taken from the instance
	Instance string
	Profile  string
	// Text is PEM or base64 encoded self-signed certificate or PKCS#10 request
	Text string
	// Form values override the values extracted from the request
	Form profile.FormParams
}

// Response of enrollment
type Response struct {
	Profile string
	Result  *request.Result
	Model   *certmodel.Model
	// Certificate is nil when the content is only prepared
	Certificate *x509.Certificate
}

// Enroller prepares and issues certificates
type Enroller struct {
	cfg       *config.Config
	registry  *registry.Registry
	issuer    certmodel.Issuer
	validator keypolicy.Validator
}

// New returns Enroller.
// The key policy is taken from the configuration.
func New(cfg *config.Config, reg *registry.Registry, issuer certmodel.Issuer) *Enroller {
	if cfg == nil {
		cfg = &config.Config{}
	}
	var validator keypolicy.Validator = keypolicy.AllowAll
	if cfg.KeyPolicy != nil {
		validator = keypolicy.New(cfg.KeyPolicy)
	}
	return &Enroller{
		cfg:       cfg,
		registry:  reg,
		issuer:    issuer,
		validator: validator,
	}
}

// Prepare parses the request and builds the certificate content model.
// If the request is rejected, the returned Response has the Result
// with the error message.
func (e *Enroller) Prepare(req *Request) (*Response, error) {
	name, form, err := e.resolve(req)
	if err != nil {
		return nil, err
	}
	p, ok := e.registry.Get(name)
	if !ok {
		return nil, errors.Errorf("profile not found: %s", name)
	}

	res := &Response{Profile: name}
	res.Result = request.NewParser(
		request.WithValidator(e.validator),
		request.WithFixedValues(p.FixedValues()),
	).Parse(req.Text)
	if res.Result.Failed() {
		return res, res.Result.Err
	}

	form = withAttributes(form, res.Result.Attributes)

	subject, err := p.CertNameModel(form)
	if err != nil {
		return res, err
	}

	m := certmodel.NewModel(res.Result.PublicKey)
	m.SetName(subject)
	crl, ocsp := e.issuerLocations(name)
	m.IncludeCRLDistributionPoint(crl)
	m.IncludeOCSPURL(ocsp)

	if err = p.AppendCertificateModel(m, res.Result.PublicKey, form); err != nil {
		return res, err
	}
	res.Model = m
	return res, nil
}

// Enroll prepares the certificate content and issues the certificate.
// Issuer errors are returned as is.
func (e *Enroller) Enroll(ctx context.Context, req *Request) (res *Response, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		name := req.Profile
		if res != nil {
			name = res.Profile
		}
		metricskey.PerfEnroll.MeasureSince(start, name, status)
	}()

	if e.issuer == nil {
		return nil, errors.New("issuer is not configured")
	}

	res, err = e.Prepare(req)
	if err != nil {
		return res, err
	}

	res.Certificate, err = e.issuer.IssueCertificate(ctx, res.Model)
	if err != nil {
		logger.KV(xlog.ERROR, "reason", "issue", "profile", res.Profile, "err", err.Error())
		return res, err
	}

	logger.KV(xlog.NOTICE,
		"status", "enrolled",
		"instance", req.Instance,
		"profile", res.Profile,
		"serial", res.Certificate.SerialNumber.String(),
	)
	return res, nil
}

// resolve returns the profile name,
// and the form extended with the instance policies
func (e *Enroller) resolve(req *Request) (string, profile.FormParams, error) {
	form := req.Form
	if form == nil {
		form = profile.FormParams{}
	}
	if req.Instance == "" {
		if req.Profile == "" {
			return "", nil, errors.New("profile or instance is required")
		}
		return req.Profile, form, nil
	}

	inst, ok := e.cfg.Instances[req.Instance]
	if !ok || inst == nil {
		return "", nil, errors.Errorf("instance not found: %s", req.Instance)
	}
	return inst.Profile, inst.ExtendPolicies(form), nil
}

// issuerLocations returns include_crl_dp and include_ocsp_url
// of the configured profile, both are included if not configured
func (e *Enroller) issuerLocations(name string) (crl, ocsp bool) {
	crl, ocsp = true, true
	if p, err := e.cfg.Merged(name); err == nil {
		if p.IncludeCrlDP != nil {
			crl = *p.IncludeCrlDP
		}
		if p.IncludeOcspURL != nil {
			ocsp = *p.IncludeOcspURL
		}
	}
	return
}

// withAttributes returns a copy of the form,
// with the attributes of the request for values not in the form
func withAttributes(form profile.FormParams, attrs *request.AttributeMap) profile.FormParams {
	res := make(profile.FormParams, len(form)+attrs.Len())
	for _, k := range attrs.Keys() {
		v, _ := attrs.Get(k)
		res[k] = []string{v}
	}
	for k, v := range form {
		res[k] = v
	}
	return res
}
