// Package common contains service-wide constants and the logger setup shared
// by all entrypoints.
package common

// PackageName identifies this service in logs and metrics.
const PackageName = "sponsord"

// Version is set at build time via -ldflags.
var Version = "dev"
