// Package version carries the build version, overridable with
// -ldflags "-X bcprimers/internal/version.Version=...".
package version

var Version = "0.3.0"
