package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/config"
	"github.com/effective-security/certreq/keypolicy"
	"github.com/effective-security/certreq/profile"
	"github.com/effective-security/certreq/registry"
	"github.com/effective-security/x/ctl"
	"github.com/effective-security/xlog"
	"gopkg.in/yaml.v3"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/certreq", "cli")

// Cli provides CLI context to run commands
type Cli struct {
	Version  ctl.VersionFlag `name:"version" help:"Print version information and quit" hidden:""`
	Cfg      string          `help:"Location of profiles config file" type:"path"`
	Debug    bool            `short:"D" help:"Enable debug mode"`
	LogLevel string          `short:"l" help:"Set the logging level (debug|info|notice|warning|error)" default:"error"`

	// Stdin is the source to read from, typically set to os.Stdin
	stdin io.Reader
	// Output is the destination for all output from the command, typically set to os.Stdout
	output io.Writer
	// ErrOutput is the destinaton for errors.
	// If not set, errors will be written to os.StdError
	errOutput io.Writer

	ctx      context.Context
	cfg      *config.Config
	registry *registry.Registry
}

// Context for requests
func (c *Cli) Context() context.Context {
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	return c.ctx
}

// Reader is the source to read from, typically set to os.Stdin
func (c *Cli) Reader() io.Reader {
	if c.stdin != nil {
		return c.stdin
	}
	return os.Stdin
}

// WithReader allows to specify a custom reader
func (c *Cli) WithReader(reader io.Reader) *Cli {
	c.stdin = reader
	return c
}

// Writer returns a writer for control output
func (c *Cli) Writer() io.Writer {
	if c.output != nil {
		return c.output
	}
	return os.Stdout
}

// WithWriter allows to specify a custom writer
func (c *Cli) WithWriter(out io.Writer) *Cli {
	c.output = out
	return c
}

// ErrWriter returns a writer for control output
func (c *Cli) ErrWriter() io.Writer {
	if c.errOutput != nil {
		return c.errOutput
	}
	return os.Stderr
}

// WithErrWriter allows to specify a custom error writer
func (c *Cli) WithErrWriter(out io.Writer) *Cli {
	c.errOutput = out
	return c
}

// AfterApply hook sets the log level
func (c *Cli) AfterApply(_ *kong.Kong, _ kong.Vars) error {
	if c.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
		return nil
	}
	val := strings.TrimLeft(c.LogLevel, "=")
	l, err := xlog.ParseLevel(strings.ToUpper(val))
	if err != nil {
		return errors.WithStack(err)
	}
	xlog.SetGlobalLogLevel(l)
	return nil
}

// WriteJSON prints response to out
func (c *Cli) WriteJSON(value any) error {
	return WriteJSON(c.Writer(), value)
}

// ReadFile reads from stdin if the file is "-"
func (c *Cli) ReadFile(filename string) ([]byte, error) {
	if filename == "" {
		return nil, errors.New("empty file name")
	}
	if filename == "-" {
		return io.ReadAll(c.Reader())
	}
	return os.ReadFile(filename)
}

// Config returns the loaded profiles configuration
func (c *Cli) Config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	if c.Cfg == "" {
		return nil, errors.New("use --cfg flag to specify profiles config file")
	}
	cfg, err := config.Load(c.Cfg)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return c.cfg, nil
}

// Registry returns profiles registry built from the configuration
func (c *Cli) Registry() (*registry.Registry, error) {
	if c.registry != nil {
		return c.registry, nil
	}
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	c.registry, err = registry.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return c.registry, nil
}

// KeyPolicy returns the configured key policy,
// or AllowAll if the configuration is not specified
func (c *Cli) KeyPolicy() (keypolicy.Validator, error) {
	if c.Cfg == "" {
		return keypolicy.AllowAll, nil
	}
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	if cfg.KeyPolicy == nil {
		return keypolicy.AllowAll, nil
	}
	return keypolicy.New(cfg.KeyPolicy), nil
}

// ReadForm reads the form values, YAML or JSON.
// Scalar values are accepted for single valued parameters.
func (c *Cli) ReadForm(filename string) (profile.FormParams, error) {
	form := profile.FormParams{}
	if filename == "" {
		return form, nil
	}
	data, err := c.ReadFile(filename)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to read form")
	}

	var raw map[string]yaml.Node
	if err = yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.WithMessage(err, "unable to parse form")
	}
	for k, node := range raw {
		var values []string
		switch node.Kind {
		case yaml.SequenceNode:
			err = node.Decode(&values)
		default:
			var s string
			err = node.Decode(&s)
			values = []string{s}
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid form value: %s", k)
		}
		form[k] = values
	}
	logger.KV(xlog.DEBUG, "form", filename, "params", len(form))
	return form, nil
}
