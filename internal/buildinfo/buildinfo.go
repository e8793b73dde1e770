// Package buildinfo holds version details stamped at link time:
//
//	go build -ldflags "-X pickplan/internal/buildinfo.Version=v1.2.0 -X pickplan/internal/buildinfo.Commit=$(git rev-parse HEAD)"
package buildinfo

import "runtime"

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
		"go":      runtime.Version(),
	}
}

// String is the one-line form printed by the CLI.
func String() string {
	s := "pickplan " + Version
	if Commit != "" {
		s += " (" + Commit + ")"
	}
	if BuiltAt != "" {
		s += " built " + BuiltAt
	}
	return s
}
