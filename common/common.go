// Package common holds identifiers shared across PrivateCourt binaries.
package common

// PackageName is used as the metrics namespace and in log output.
const PackageName = "privatecourt"

// Version is overridden at build time via -ldflags.
var Version = "dev"
