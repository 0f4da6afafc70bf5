package request_test

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/json"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/keypolicy"
	"github.com/effective-security/certreq/oid"
	"github.com/effective-security/certreq/request"
	"github.com/effective-security/certreq/testreq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_InputFormat(t *testing.T) {
	unknownPEM := string(pem.EncodeToMemory(&pem.Block{Type: "EC PARAMETERS", Bytes: []byte{6, 3, 1, 2, 3}}))
	badPEM := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1, 2, 3}}))
	badCSR := string(pem.EncodeToMemory(&pem.Block{Type: "NEW CERTIFICATE REQUEST", Bytes: []byte{1, 2, 3}}))

	tcases := []struct {
		name string
		text string
		err  string
	}{
		{"empty", "", "empty"},
		{"blank", " \n\t ", "empty"},
		{"garbage", "this is not a request", "Invalid request data"},
		{"base64 garbage", "AQIDBAUG", "Invalid request data"},
		{"unknown PEM only", unknownPEM, "Invalid request data"},
		{"bad cert PEM", badPEM, "Invalid request data"},
		{"bad CSR PEM", badCSR, "Invalid request data"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			res := request.Parse(tc.text, nil, nil)
			require.True(t, res.Failed())
			assert.Equal(t, tc.err, res.ErrorMessage)
			assert.True(t, errors.Is(res.Err, request.ErrInputFormat))
			assert.Nil(t, res.PublicKey)
			assert.Equal(t, 0, res.Attributes.Len())
		})
	}
}

func TestParse_Certificate(t *testing.T) {
	e := testreq.NewCertificate(
		testreq.Subject(pkix.Name{CommonName: "Alice"}),
		testreq.Email("alice@example.com"),
	)

	for _, text := range []string{e.PEM(), e.Base64()} {
		res := request.Parse(text, keypolicy.AllowAll, nil)
		require.False(t, res.Failed(), res.ErrorMessage)
		assert.NoError(t, res.Err)
		assert.Equal(t, request.KindCertificate, res.Kind)
		assert.Equal(t, map[string]string{
			"commonName":   "Alice",
			"altNameEmail": "alice@example.com",
		}, res.Attributes.ToMap())
		assert.True(t, e.PrivateKey.Public().(interface{ Equal(crypto.PublicKey) bool }).Equal(res.PublicKey))
	}
}

func TestParse_CSR(t *testing.T) {
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tcases := []struct {
		name string
		e    *testreq.Entity
	}{
		{"ec", testreq.NewCSR(testreq.Subject(pkix.Name{CommonName: "Bob", Country: []string{"US"}}), testreq.DNSName("bob.example.com"))},
		{"rsa", testreq.NewCSR(testreq.PrivateKey(testreq.RSAKey()), testreq.Subject(pkix.Name{CommonName: "Bob", Country: []string{"US"}}), testreq.DNSName("bob.example.com"))},
		{"ed25519", testreq.NewCSR(testreq.PrivateKey(edKey), testreq.Subject(pkix.Name{CommonName: "Bob", Country: []string{"US"}}), testreq.DNSName("bob.example.com"))},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			for _, text := range []string{tc.e.PEM(), tc.e.Base64()} {
				res := request.Parse(text, nil, nil)
				require.False(t, res.Failed(), res.ErrorMessage)
				assert.Equal(t, request.KindCSR, res.Kind)
				assert.Equal(t, []string{"country", "commonName", "altNameDnsName"}, res.Attributes.Keys())
				v, _ := res.Attributes.Get("altNameDnsName")
				assert.Equal(t, "bob.example.com", v)
				assert.NotNil(t, res.PublicKey)
			}
		})
	}
}

func TestParse_SkipsUnknownPEM(t *testing.T) {
	e := testreq.NewCSR(testreq.Subject(pkix.Name{CommonName: "Carol"}))
	text := string(pem.EncodeToMemory(&pem.Block{Type: "EC PARAMETERS", Bytes: []byte{6, 3, 1, 2, 3}})) +
		"some comment\n" +
		e.PEM()

	res := request.Parse(text, nil, nil)
	require.False(t, res.Failed(), res.ErrorMessage)
	v, ok := res.Attributes.Get("commonName")
	assert.True(t, ok)
	assert.Equal(t, "Carol", v)

	// first recognized object wins
	crt := testreq.NewCertificate(testreq.Subject(pkix.Name{CommonName: "Dave"}))
	res = request.Parse(crt.PEM()+e.PEM(), nil, nil)
	require.False(t, res.Failed(), res.ErrorMessage)
	assert.Equal(t, request.KindCertificate, res.Kind)
	v, _ = res.Attributes.Get("commonName")
	assert.Equal(t, "Dave", v)
}

func TestParse_ProofOfPossession(t *testing.T) {
	tcases := []struct {
		name string
		e    *testreq.Entity
		err  string
	}{
		{"cert signed by other key", testreq.NewCertificate(testreq.SignedBy(testreq.ECKey())), request.MsgCertNotSelf},
		{"tampered cert", testreq.NewCertificate(testreq.PrivateKey(testreq.RSAKey()), testreq.Tampered), request.MsgCertNotSelf},
		{"tampered csr", testreq.NewCSR(testreq.PrivateKey(testreq.RSAKey()), testreq.Tampered), request.MsgRequestNotSelf},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			res := request.Parse(tc.e.PEM(), nil, nil)
			require.True(t, res.Failed())
			assert.Equal(t, tc.err, res.ErrorMessage)
			assert.Contains(t, res.ErrorMessage, "not self signed")
			assert.True(t, errors.Is(res.Err, request.ErrProofOfPossession))
			assert.Nil(t, res.PublicKey)
		})
	}
}

func TestParse_KeyPolicy(t *testing.T) {
	e := testreq.NewCSR(testreq.Subject(pkix.Name{CommonName: "Alice"}))

	v := keypolicy.Func(func(crypto.PublicKey) error {
		return errors.New("EC keys are not accepted")
	})
	res := request.Parse(e.PEM(), v, nil)
	require.True(t, res.Failed())
	assert.Equal(t, "Illegal public key in request - EC keys are not accepted", res.ErrorMessage)
	assert.True(t, errors.Is(res.Err, request.ErrPublicKeyPolicy))
	assert.Equal(t, 0, res.Attributes.Len())

	p := keypolicy.New(&keypolicy.Config{AllowedTypes: []string{"RSA"}})
	res = request.NewParser(request.WithValidator(p)).Parse(e.PEM())
	require.True(t, res.Failed())
	assert.Equal(t, "Illegal public key in request - key type ECDSA is not allowed", res.ErrorMessage)
}

func TestParse_FixedValues(t *testing.T) {
	e := testreq.NewCertificate(
		testreq.Subject(pkix.Name{CommonName: "Alice", Country: []string{"US"}}),
		testreq.Email("a@example.com", "b@example.com"),
		testreq.DNSName("example.com"),
	)

	res := request.Parse(e.PEM(), nil, nil)
	require.False(t, res.Failed(), res.ErrorMessage)
	v, _ := res.Attributes.Get("altNameEmail")
	assert.Equal(t, "a@example.com, b@example.com", v)

	p := request.NewParser(request.WithFixedValues(map[string]string{
		"country":      "SE",
		"altNameEmail": "ca@example.se",
		"surname":      "not in request",
	}))
	res = p.Parse(e.PEM())
	require.False(t, res.Failed(), res.ErrorMessage)
	assert.Equal(t, map[string]string{
		"country":        "SE",
		"commonName":     "Alice",
		"altNameDnsName": "example.com",
		"altNameEmail":   "ca@example.se",
	}, res.Attributes.ToMap())
}

func TestParse_PriorityOrder(t *testing.T) {
	// subject in reverse order
	raw, err := asn1.Marshal(pkix.RDNSequence{
		{{Type: oid.NameGivenName, Value: "Alice"}},
		{{Type: oid.NameSurname, Value: "Smith"}},
		{{Type: oid.NameCN, Value: "Alice Smith"}},
		{{Type: oid.NameSerial, Value: "12345"}},
		{{Type: oid.NameO, Value: "Example"}},
		{{Type: oid.NameOU, Value: "Dev"}},
		{{Type: oid.NameOrgIdentifier, Value: "NTRSE-5566778899"}},
		{{Type: oid.NameC, Value: "SE"}},
	})
	require.NoError(t, err)

	e := testreq.NewCSR(testreq.RawSubject(raw))
	res := request.Parse(e.PEM(), nil, nil)
	require.False(t, res.Failed(), res.ErrorMessage)
	assert.Equal(t, []string{
		"country", "organizationName", "orgUnitName", "orgIdentifier",
		"serialNumber", "commonName", "surname", "givenName",
	}, res.Attributes.Keys())
}

func TestParse_RepeatedAttributeLastWins(t *testing.T) {
	e := testreq.NewCertificate(testreq.Subject(pkix.Name{
		ExtraNames: []pkix.AttributeTypeAndValue{
			{Type: oid.NameCN, Value: "First"},
			{Type: oid.NameCN, Value: "Second"},
		},
	}))

	res := request.Parse(e.PEM(), nil, nil)
	require.False(t, res.Failed(), res.ErrorMessage)
	assert.Equal(t, 1, res.Attributes.Len())
	v, _ := res.Attributes.Get("commonName")
	assert.Equal(t, "Second", v)
}

func TestParse_ValueTypes(t *testing.T) {
	raw, err := asn1.Marshal(pkix.RDNSequence{
		{{Type: oid.NameSerial, Value: asn1.RawValue{Tag: asn1.TagGeneralizedTime, Bytes: []byte("19800101000000Z")}}},
		{{Type: oid.NameTitle, Value: 5}},
		{{Type: oid.NameL, Value: asn1.RawValue{Tag: asn1.TagIA5String, Bytes: []byte("Stockholm")}}},
		{{Type: oid.NameCN, Value: "Åsa Öberg"}},
		{{Type: asn1.ObjectIdentifier{1, 2, 3, 4}, Value: "ignored"}},
	})
	require.NoError(t, err)

	e := testreq.NewCSR(testreq.RawSubject(raw))
	res := request.Parse(e.PEM(), nil, nil)
	require.False(t, res.Failed(), res.ErrorMessage)
	assert.Equal(t, map[string]string{
		"serialNumber": "19800101",
		"commonName":   "Åsa Öberg",
		"title":        "#020105",
		"locality":     "Stockholm",
	}, res.Attributes.ToMap())

	// BMPString is UTF-16BE, T61String is read as Latin-1
	raw, err = asn1.Marshal(pkix.RDNSequence{
		{{Type: oid.NameO, Value: asn1.RawValue{Tag: asn1.TagT61String, Bytes: []byte("Ex\xe4mple")}}},
		{{Type: oid.NameCN, Value: asn1.RawValue{Tag: asn1.TagBMPString, Bytes: []byte{0, 'A', 0, 'l', 0, 'i', 0, 'c', 0, 'e'}}}},
	})
	require.NoError(t, err)

	for _, e := range []*testreq.Entity{
		testreq.NewCSR(testreq.RawSubject(raw)),
		testreq.NewCertificate(testreq.RawSubject(raw)),
	} {
		res = request.Parse(e.PEM(), nil, nil)
		require.False(t, res.Failed(), res.ErrorMessage)
		assert.Equal(t, map[string]string{
			"commonName":       "Alice",
			"organizationName": "Exämple",
		}, res.Attributes.ToMap())
	}
}

func TestParse_IllegalContent(t *testing.T) {
	e := testreq.NewCSR(testreq.Subject(pkix.Name{
		Country:    []string{"SE"},
		CommonName: "<script>alert(1)</script>",
	}))
	res := request.Parse(e.PEM(), nil, nil)
	require.True(t, res.Failed())
	assert.Equal(t,
		"Error parsing subject name - Unsafe or illegal content in subject name attribute - string contained illegal content",
		res.ErrorMessage)
	assert.True(t, errors.Is(res.Err, request.ErrAttributeExtraction))
	// partially populated map must not be relied upon
	v, _ := res.Attributes.Get("country")
	assert.Equal(t, "SE", v)
	assert.NotNil(t, res.PublicKey)

	// fixed value replaces the unsafe one
	res = request.Parse(e.PEM(), nil, map[string]string{"commonName": "Safe"})
	require.False(t, res.Failed(), res.ErrorMessage)

	long := testreq.NewCSR(testreq.Subject(pkix.Name{CommonName: strings.Repeat("a", 251)}))
	res = request.Parse(long.PEM(), nil, nil)
	require.True(t, res.Failed())
	assert.Equal(t,
		"Error parsing subject name - Unsafe or illegal content in subject name attribute - string too long (251) characters exceeds maximum of 250 characters",
		res.ErrorMessage)

	san := testreq.NewCSR(
		testreq.Subject(pkix.Name{CommonName: "Alice"}),
		testreq.DNSName("<b>example.com</b>"),
	)
	res = request.Parse(san.PEM(), nil, nil)
	require.True(t, res.Failed())
	assert.Equal(t,
		"Error parsing subject alternative name - Unsafe or illegal content in subject name attribute - string contained illegal content",
		res.ErrorMessage)
	assert.True(t, errors.Is(res.Err, request.ErrAttributeExtraction))
	v, _ = res.Attributes.Get("commonName")
	assert.Equal(t, "Alice", v)
}

func TestResult_JSON(t *testing.T) {
	e := testreq.NewCertificate(
		testreq.Subject(pkix.Name{CommonName: "Alice", Country: []string{"SE"}}),
		testreq.Email("alice@example.com"),
	)
	res := request.Parse(e.PEM(), nil, nil)
	require.False(t, res.Failed(), res.ErrorMessage)

	js, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t,
		`{"attributeValueMap":{"country":"SE","commonName":"Alice","altNameEmail":"alice@example.com"}}`,
		string(js))

	res = request.Parse("", nil, nil)
	js, err = json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, `{"attributeValueMap":{},"errorMessage":"empty"}`, string(js))
}

func TestAttributeMap(t *testing.T) {
	m := request.NewAttributeMap()
	m.Set("b", "1")
	m.Set("a", "2")
	m.Set("b", "3")
	assert.Equal(t, []string{"b", "a"}, m.Keys())
	assert.Equal(t, 2, m.Len())
	v, ok := m.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	_, ok = m.Get("c")
	assert.False(t, ok)

	js, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"b":"3","a":"2"}`, string(js))
}
