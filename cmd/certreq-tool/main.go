package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/effective-security/certreq/cmd/certreq-tool/cli"
	"github.com/effective-security/certreq/internal/version"
	"github.com/effective-security/x/ctl"
)

type app struct {
	cli.Cli

	Parse    cli.ParseCmd    `cmd:"" help:"parse certificate request and print the attributes"`
	Build    cli.BuildCmd    `cmd:"" help:"build certificate content for the request"`
	Enroll   cli.EnrollCmd   `cmd:"" help:"issue certificate for the request with local CA"`
	Profiles cli.ProfilesCmd `cmd:"" help:"list configured profiles"`
}

func main() {
	realMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

func realMain(args []string, out io.Writer, errout io.Writer, exit func(int)) {
	cl := app{
		Cli: cli.Cli{},
	}
	cl.Cli.WithErrWriter(errout).
		WithWriter(out)

	parser, err := kong.New(&cl,
		kong.Name("certreq-tool"),
		kong.Description("Certificate request and profile tool"),
		kong.Writers(out, errout),
		kong.Exit(exit),
		ctl.BoolPtrMapper,
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.Current().String(),
		})
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args[1:])
	parser.FatalIfErrorf(err)

	if ctx != nil {
		if cl.Debug {
			_, _ = fmt.Fprintf(ctx.Stdout, "#\n# %s\n#\n", strings.Join(args, " "))
		}
		err = ctx.Run(&cl.Cli)
		ctx.FatalIfErrorf(err)
	}
}
