// SPDX-License-Identifier: MPL-2.0

// Package config reads the project configuration file (buildenv.cfg).
//
// The file is INI formatted with one section per profile: [local] holds the
// values for developer machines and [ci] the overrides used when the CI
// environment variable is non-empty. Lookups under CI fall back to [local],
// then to the optional [DEFAULT] section, then to the caller's default.
//
// Each profile is validated against an embedded CUE schema (schema.cue)
// before being merged into a Viper instance. Values may reference
// environment variables with ${NAME}; resolution is repeated until no
// placeholder remains.
package config
