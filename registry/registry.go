// Package registry provides the set of certificate profiles
// available for issuance.
//
// The registry is composed once at startup with Builder,
// and is read-only afterwards.
package registry

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/config"
	"github.com/effective-security/certreq/profile"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/certreq", "registry")

// Registry is immutable set of named profiles
type Registry struct {
	profiles map[string]profile.Profile
	names    []string
}

// Get returns the profile by name
func (r *Registry) Get(name string) (profile.Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// Names returns sorted profile names
func (r *Registry) Names() []string {
	return append([]string{}, r.names...)
}

// Len returns the number of profiles
func (r *Registry) Len() int {
	return len(r.names)
}

// FixedValues returns the fixed values of the profile,
// or empty map if the profile is not registered
func (r *Registry) FixedValues(name string) map[string]string {
	if p, ok := r.profiles[name]; ok {
		return p.FixedValues()
	}
	return map[string]string{}
}

// Builder composes Registry.
// Builder is not safe for concurrent use.
type Builder struct {
	profiles map[string]profile.Profile
	built    bool
}

// NewBuilder returns Builder
func NewBuilder() *Builder {
	return &Builder{
		profiles: map[string]profile.Profile{},
	}
}

// Register adds the profile.
// Returns error if the name is empty or already registered,
// or if the registry is already built.
func (b *Builder) Register(name string, p profile.Profile) error {
	if b.built {
		return errors.Errorf("registry is already built, unable to register %s", name)
	}
	if name == "" {
		return errors.New("profile name is required")
	}
	if p == nil {
		return errors.Errorf("profile %s is nil", name)
	}
	if _, ok := b.profiles[name]; ok {
		return errors.Errorf("profile already registered: %s", name)
	}
	b.profiles[name] = p
	return nil
}

// Build returns the registry.
// No profiles can be registered after Build.
func (b *Builder) Build() *Registry {
	b.built = true

	r := &Registry{
		profiles: make(map[string]profile.Profile, len(b.profiles)),
		names:    make([]string, 0, len(b.profiles)),
	}
	for name, p := range b.profiles {
		r.profiles[name] = p
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// FromConfig returns registry with a configured profile
// for every profile in the configuration
func FromConfig(cfg *config.Config) (*Registry, error) {
	b := NewBuilder()
	for _, name := range cfg.ProfileNames() {
		merged, err := cfg.Merged(name)
		if err != nil {
			return nil, err
		}
		p, err := profile.NewConfigured(name, merged)
		if err != nil {
			return nil, err
		}
		if err = b.Register(name, p); err != nil {
			return nil, err
		}
		logger.KV(xlog.INFO,
			"profile", name,
			"template", p.TemplateName(),
			"attributes", len(p.AttributeParameters()),
			"subj_alt_names", len(p.SubjectAltNameParameters()),
		)
	}
	r := b.Build()
	logger.KV(xlog.NOTICE, "status", "registry_built", "profiles", r.Len())
	return r, nil
}
