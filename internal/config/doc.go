// Package config loads aecwatch settings from defaults, an optional YAML
// file and AECWATCH_* environment variables, in increasing precedence.
package config
