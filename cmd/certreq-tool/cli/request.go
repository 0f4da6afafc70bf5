package cli

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/certmodel"
	"github.com/effective-security/certreq/certutil"
	"github.com/effective-security/certreq/enroll"
	"github.com/effective-security/certreq/request"
)

// ParseCmd parses certificate request
type ParseCmd struct {
	In      string `kong:"arg" required:"" help:"self-signed certificate or PKCS#10 request file, PEM or base64, - for stdin"`
	Profile string `help:"profile name to apply the fixed values of, requires --cfg"`
}

// Run the command
func (a *ParseCmd) Run(ctx *Cli) error {
	data, err := ctx.ReadFile(a.In)
	if err != nil {
		return errors.WithMessage(err, "unable to load request")
	}
	validator, err := ctx.KeyPolicy()
	if err != nil {
		return err
	}

	var fixed map[string]string
	if a.Profile != "" {
		reg, err := ctx.Registry()
		if err != nil {
			return err
		}
		fixed = reg.FixedValues(a.Profile)
	}

	res := request.Parse(string(data), validator, fixed)
	return ctx.WriteJSON(res)
}

// BuildCmd builds certificate content
type BuildCmd struct {
	In       string `kong:"arg" required:"" help:"self-signed certificate or PKCS#10 request file, PEM or base64, - for stdin"`
	Profile  string `help:"profile name" xor:"target" required:""`
	Instance string `help:"issuing instance name" xor:"target" required:""`
	Form     string `help:"form values file, YAML or JSON"`
}

// Run the command
func (a *BuildCmd) Run(ctx *Cli) error {
	e, req, err := newEnrollment(ctx, a.In, a.Profile, a.Instance, a.Form, nil)
	if err != nil {
		return err
	}
	res, err := e.Prepare(req)
	if err != nil {
		return err
	}
	return ctx.WriteJSON(res.Model)
}

// EnrollCmd issues certificate with local CA
type EnrollCmd struct {
	In       string        `kong:"arg" required:"" help:"self-signed certificate or PKCS#10 request file, PEM or base64, - for stdin"`
	Profile  string        `help:"profile name" xor:"target" required:""`
	Instance string        `help:"issuing instance name" xor:"target" required:""`
	Form     string        `help:"form values file, YAML or JSON"`
	CACert   string        `name:"ca-cert" required:"" help:"CA certificate file"`
	CAKey    string        `name:"ca-key" required:"" help:"CA private key file"`
	Validity time.Duration `help:"validity period" default:"8760h"`
	CRL      []string      `name:"crl" help:"CRL distribution point URLs"`
	OCSP     []string      `name:"ocsp" help:"OCSP responder URLs"`
}

// Run the command
func (a *EnrollCmd) Run(ctx *Cli) error {
	certPEM, err := ctx.ReadFile(a.CACert)
	if err != nil {
		return errors.WithMessage(err, "unable to load CA certificate")
	}
	ca, err := certutil.ParseFromPEM(certPEM)
	if err != nil {
		return err
	}
	keyPEM, err := ctx.ReadFile(a.CAKey)
	if err != nil {
		return errors.WithMessage(err, "unable to load CA key")
	}
	key, err := certutil.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return err
	}

	issuer := certmodel.NewLocalIssuer(ca, key, a.Validity,
		certmodel.WithCRLDistributionPoints(a.CRL...),
		certmodel.WithOCSPServers(a.OCSP...),
	)
	e, req, err := newEnrollment(ctx, a.In, a.Profile, a.Instance, a.Form, issuer)
	if err != nil {
		return err
	}
	res, err := e.Enroll(ctx.Context(), req)
	if err != nil {
		return err
	}
	return certutil.EncodeToPEM(ctx.Writer(), res.Certificate)
}

func newEnrollment(ctx *Cli, in, profileName, instance, formFile string, issuer certmodel.Issuer) (*enroll.Enroller, *enroll.Request, error) {
	data, err := ctx.ReadFile(in)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "unable to load request")
	}
	form, err := ctx.ReadForm(formFile)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := ctx.Config()
	if err != nil {
		return nil, nil, err
	}
	reg, err := ctx.Registry()
	if err != nil {
		return nil, nil, err
	}

	return enroll.New(cfg, reg, issuer), &enroll.Request{
		Instance: instance,
		Profile:  profileName,
		Text:     string(data),
		Form:     form,
	}, nil
}
