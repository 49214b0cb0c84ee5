// Package config holds scan settings assembled from defaults, an optional
// YAML file and command-line flags.
package config
