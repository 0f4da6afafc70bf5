package config

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/oid"
	"github.com/effective-security/xlog"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/certreq", "config")

//go:embed schema.json
var schemaJSON []byte

var schema *gojsonschema.Schema

func init() {
	var err error
	schema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic("failed to load embedded schema: " + err.Error())
	}
}

// Load returns Config loaded from YAML or JSON file
func Load(file string) (*Config, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to read configuration: %s", file)
	}

	cfg, err := Parse(b, strings.ToLower(filepath.Ext(file)) == ".json")
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid configuration: %s", file)
	}
	logger.KV(xlog.INFO, "status", "loaded", "file", file, "profiles", len(cfg.Profiles))
	return cfg, nil
}

// Parse returns validated Config from YAML or JSON
func Parse(data []byte, isJSON bool) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	cfg := new(Config)
	var err error
	if isJSON {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "unable to decode")
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns error if any profile, merged with defaults, is invalid,
// or an instance refers to unknown profile
func (c *Config) Validate() error {
	for _, name := range c.ProfileNames() {
		p, err := c.Merged(name)
		if err != nil {
			return err
		}
		if err = p.Validate(); err != nil {
			return errors.WithMessagef(err, "profile %s", name)
		}
	}
	for name, inst := range c.Instances {
		if _, ok := c.Profiles[inst.Profile]; !ok {
			return errors.Errorf("instance %s: profile not found: %s", name, inst.Profile)
		}
		for _, s := range inst.Policy {
			if _, err := oid.Parse(s); err != nil {
				return errors.WithMessagef(err, "instance %s", name)
			}
		}
	}
	return nil
}

// ProfileNames returns sorted names of the configured profiles
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateSchema(data []byte) error {
	// YAML is a superset of JSON
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.WithMessage(err, "invalid YAML")
	}
	if doc == nil {
		doc = map[string]any{}
	}

	js, err := json.Marshal(doc)
	if err != nil {
		return errors.WithMessage(err, "failed to convert YAML to JSON")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(js))
	if err != nil {
		return errors.WithMessage(err, "schema validation failed")
	}
	if !result.Valid() {
		var list []string
		for _, desc := range result.Errors() {
			list = append(list, desc.String())
		}
		sort.Strings(list)
		return errors.Errorf("configuration validation failed:\n%s", strings.Join(list, "\n"))
	}
	return nil
}
