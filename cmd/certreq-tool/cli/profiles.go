package cli

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/certreq/profile"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// ProfilesCmd lists configured profiles
type ProfilesCmd struct{}

// Run the command
func (a *ProfilesCmd) Run(ctx *Cli) error {
	reg, err := ctx.Registry()
	if err != nil {
		return err
	}

	table := tablewriter.NewTable(ctx.Writer(),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
		}),
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
	table.Header([]string{"Profile", "Template", "Attributes", "SAN", "EKU", "Fixed"})

	var data [][]string
	for _, name := range reg.Names() {
		p, _ := reg.Get(name)
		data = append(data, profileRow(name, p))
	}
	if err = table.Bulk(data); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(table.Render())
}

func profileRow(name string, p profile.Profile) []string {
	var attrs, sans, ekus, fixed []string
	for _, a := range p.AttributeParameters() {
		attrs = append(attrs, a.Name)
	}
	for _, s := range p.SubjectAltNameParameters() {
		sans = append(sans, s.Name)
	}
	for _, e := range p.EKUParameters() {
		ekus = append(ekus, e.Name)
	}
	for k, v := range p.FixedValues() {
		fixed = append(fixed, k+"="+v)
	}
	sort.Strings(fixed)

	return []string{
		name,
		p.TemplateName(),
		strings.Join(attrs, ","),
		strings.Join(sans, ","),
		strings.Join(ekus, ","),
		strings.Join(fixed, ","),
	}
}
