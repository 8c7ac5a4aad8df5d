// Package config loads workspace settings from naclws.toml.
package config
