package oid_test

import (
	"crypto/x509"
	"testing"

	"github.com/effective-security/certreq/oid"
	"github.com/stretchr/testify/assert"
)

func Test_KeyUsages(t *testing.T) {
	assert.Equal(t, []string{"cert sign"}, oid.KeyUsages(x509.KeyUsageCertSign))
	assert.Equal(t,
		[]string{"digital signature", "key agreement"},
		oid.KeyUsages(x509.KeyUsageDigitalSignature|x509.KeyUsageKeyAgreement))
	assert.Empty(t, oid.KeyUsages(0))
}

func Test_Strings(t *testing.T) {
	assert.Equal(t, []string{"2.5.29.32.0", "2.5.4.97"}, oid.Strings(oid.AnyPolicy, oid.NameOrgIdentifier))
}

func Test_DisplayName(t *testing.T) {
	assert.Equal(t, "TLS Client authentication", oid.DisplayName[oid.KeyPurposeClientAuth.String()])
}

func Test_Parse(t *testing.T) {
	tcases := []struct {
		s   string
		exp string
		err string
	}{
		{s: "1.2.752.201.3.1", exp: "1.2.752.201.3.1"},
		{s: " 2.5.29.32.0 ", exp: "2.5.29.32.0"},
		{s: "1", err: `invalid OID: "1"`},
		{s: "", err: `invalid OID: ""`},
		{s: "1.2.x", err: `invalid OID: "1.2.x"`},
		{s: "1.-2", err: `invalid OID: "1.-2"`},
		{s: "3.1", err: `invalid OID: "3.1"`},
		{s: "1.40", err: `invalid OID: "1.40"`},
		{s: "1..2", err: `invalid OID: "1..2"`},
	}
	for _, tc := range tcases {
		id, err := oid.Parse(tc.s)
		if tc.err != "" {
			assert.EqualError(t, err, tc.err)
		} else {
			assert.NoError(t, err)
			assert.Equal(t, tc.exp, id.String())
		}
	}
}
