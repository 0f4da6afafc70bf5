// Package version provides the build version
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Set with -ldflags "-X github.com/effective-security/certreq/internal/version.semver=..."
var (
	semver = "0.1.0"
	commit = "dev"
)

// Info describes the version
type Info struct {
	Major  int
	Minor  int
	Patch  int
	Commit string
}

// String returns version as major.minor.patch-commit
func (v Info) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Commit != "" {
		s += "-" + v.Commit
	}
	return s
}

// Current returns the current version
func Current() Info {
	return parse(semver, commit)
}

func parse(ver, commit string) Info {
	v := Info{Commit: commit}
	parts := strings.SplitN(strings.TrimPrefix(ver, "v"), ".", 3)
	nums := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, p := range parts {
		n, _ := strconv.Atoi(p)
		*nums[i] = n
	}
	return v
}
