package cli

import (
	"strings"
	"time"

	"github.com/effective-security/certreq/certutil"
	"github.com/effective-security/certreq/profile"
)

func (s *testSuite) TestParse() {
	cmd := ParseCmd{In: s.csrFile}
	err := cmd.Run(s.ctl)
	s.Require().NoError(err)
	s.HasText(`"attributeValueMap"`, `"Alice Smith"`, `"altNameEmail"`, `"alice@example.com"`, `"US"`)
	s.HasNoText(`"errorMessage"`)
}

func (s *testSuite) TestParse_Profile() {
	cmd := ParseCmd{In: s.csrFile, Profile: "tls-server"}
	err := cmd.Run(s.ctl)
	s.Require().NoError(err)
	s.HasText(`"SE"`)
	s.HasNoText(`"US"`)
}

func (s *testSuite) TestParse_Stdin() {
	data, err := s.ctl.ReadFile(s.csrFile)
	s.Require().NoError(err)

	s.ctl.WithReader(strings.NewReader(string(data)))
	defer s.ctl.WithReader(nil)

	cmd := ParseCmd{In: "-"}
	err = cmd.Run(s.ctl)
	s.Require().NoError(err)
	s.HasText(`"Alice Smith"`)
}

func (s *testSuite) TestParse_Invalid() {
	cmd := ParseCmd{In: s.writeFile("garbage.txt", []byte("not a request"))}
	err := cmd.Run(s.ctl)
	s.Require().NoError(err)
	s.HasText(`"errorMessage"`, "Invalid request data")

	cmd = ParseCmd{In: ""}
	err = cmd.Run(s.ctl)
	s.EqualError(err, "empty file name")

	cmd = ParseCmd{In: s.tmpdir + "/missing.csr"}
	err = cmd.Run(s.ctl)
	s.Error(err)
}

func (s *testSuite) TestBuild() {
	form := s.writeFile("form.yaml", []byte(strings.Join([]string{
		"ekuClientAuth: on",
		"otherParamsPolicy:",
		"  - 1.2.3.4",
	}, "\n")))

	cmd := BuildCmd{In: s.csrFile, Instance: "tls-client-ca", Form: form}
	err := cmd.Run(s.ctl)
	s.Require().NoError(err)
	s.HasText(`"subject"`, "CN=Alice Smith", "1.2.752.201.3.7", "1.2.3.4", `"include_crl_dp"`, "alice@example.com")

	s.Out.Reset()
	cmd = BuildCmd{In: s.csrFile, Profile: "nope"}
	err = cmd.Run(s.ctl)
	s.EqualError(err, "profile not found: nope")

	cmd = BuildCmd{In: s.csrFile, Instance: "nope"}
	err = cmd.Run(s.ctl)
	s.EqualError(err, "instance not found: nope")
}

func (s *testSuite) TestEnroll() {
	cmd := EnrollCmd{
		In:       s.csrFile,
		Profile:  "tls-server",
		CACert:   s.caCertFile,
		CAKey:    s.caKeyFile,
		Validity: time.Hour,
		CRL:      []string{"http://localhost/crl"},
		OCSP:     []string{"http://localhost/ocsp"},
	}
	err := cmd.Run(s.ctl)
	s.Require().NoError(err)
	s.HasText("-----BEGIN CERTIFICATE-----")

	crt, err := certutil.ParseFromPEM(s.Out.Bytes())
	s.Require().NoError(err)
	s.Equal("Alice Smith", crt.Subject.CommonName)
	s.Equal([]string{"SE"}, crt.Subject.Country)
	s.Equal([]string{"http://localhost/crl"}, crt.CRLDistributionPoints)
	s.Equal("[TEST] Issuing CA", crt.Issuer.CommonName)

	cmd.CAKey = s.csrFile
	err = cmd.Run(s.ctl)
	s.EqualError(err, "unable to parse private key")
}

func (s *testSuite) TestProfiles() {
	cmd := ProfilesCmd{}
	err := cmd.Run(s.ctl)
	s.Require().NoError(err)
	s.HasText("Profile", "covid", "sub-ca", "tls-client", "tls-server", "country=SE", "altNameDnsName")
}

func (s *testSuite) TestNoConfig() {
	c := &Cli{}
	c.WithWriter(&s.Out)

	err := (&ProfilesCmd{}).Run(c)
	s.EqualError(err, "use --cfg flag to specify profiles config file")

	// key policy is not required to parse
	err = (&ParseCmd{In: s.csrFile}).Run(c)
	s.NoError(err)
	s.HasText(`"Alice Smith"`)
}

func (s *testSuite) TestReadForm() {
	form, err := s.ctl.ReadForm("")
	s.Require().NoError(err)
	s.Empty(form)

	file := s.writeFile("form.json", []byte(`{"commonName":"Alice","altNameDnsName":["a.example.com","b.example.com"]}`))
	form, err = s.ctl.ReadForm(file)
	s.Require().NoError(err)
	s.Equal(profile.FormParams{
		"commonName":     {"Alice"},
		"altNameDnsName": {"a.example.com", "b.example.com"},
	}, form)

	file = s.writeFile("bad.yaml", []byte("- a\n- b\n"))
	_, err = s.ctl.ReadForm(file)
	s.Error(err)
}
