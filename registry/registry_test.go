package registry_test

import (
	"testing"

	"github.com/effective-security/certreq/config"
	"github.com/effective-security/certreq/profile"
	"github.com/effective-security/certreq/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	b := registry.NewBuilder()
	require.NoError(t, b.Register("tls-client", profile.NewTLSClient()))
	require.NoError(t, b.Register("ca", profile.NewCA()))

	err := b.Register("ca", profile.NewCA())
	assert.EqualError(t, err, "profile already registered: ca")
	err = b.Register("", profile.NewCA())
	assert.EqualError(t, err, "profile name is required")
	err = b.Register("nil", nil)
	assert.EqualError(t, err, "profile nil is nil")

	r := b.Build()
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"ca", "tls-client"}, r.Names())

	p, ok := r.Get("ca")
	require.True(t, ok)
	assert.Len(t, p.AttributeParameters(), 5)
	_, ok = r.Get("unknown")
	assert.False(t, ok)

	err = b.Register("other", profile.NewCA())
	assert.EqualError(t, err, "registry is already built, unable to register other")
	assert.Equal(t, 2, r.Len())

	// Names returns a copy
	names := r.Names()
	names[0] = "changed"
	assert.Equal(t, []string{"ca", "tls-client"}, r.Names())
}

func TestFixedValues(t *testing.T) {
	b := registry.NewBuilder()
	require.NoError(t, b.Register("se", profile.New(profile.Options{
		Name:        "se",
		FixedValues: map[string]string{"country": "SE"},
	}, nil)))
	r := b.Build()

	fixed := r.FixedValues("se")
	assert.Equal(t, map[string]string{"country": "SE"}, fixed)
	fixed["country"] = "US"
	assert.Equal(t, map[string]string{"country": "SE"}, r.FixedValues("se"))

	assert.NotNil(t, r.FixedValues("unknown"))
	assert.Empty(t, r.FixedValues("unknown"))
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Load("../config/testdata/profiles.yaml")
	require.NoError(t, err)

	r, err := registry.FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"covid", "sub-ca", "tls-client", "tls-server"}, r.Names())

	p, ok := r.Get("tls-server")
	require.True(t, ok)
	assert.Equal(t, "cert-request", p.TemplateName())
	assert.Len(t, p.AttributeParameters(), 5)
	assert.Len(t, p.SubjectAltNameParameters(), 1)
	assert.Equal(t, map[string]string{"country": "SE"}, r.FixedValues("tls-server"))

	p, ok = r.Get("tls-client")
	require.True(t, ok)
	assert.Len(t, p.AttributeParameters(), 6)
	assert.Len(t, p.EKUParameters(), 1)
	assert.Len(t, p.OtherParameters(), 1)

	bad := &config.Config{
		Profiles: map[string]*config.Profile{
			"bad": {RequestEKU: []string{"ekuUnknown"}},
		},
	}
	_, err = registry.FromConfig(bad)
	assert.EqualError(t, err, "profile bad: unknown extended key usage: ekuUnknown")
}
