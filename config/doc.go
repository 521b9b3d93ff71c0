// Package config handles application configuration loading and validation.
//
// Configuration is loaded from YAML (gtfsman.yml in the base folder, or the XDG config
// directory) and validated using struct tags. Environment variables, optionally read from a
// .env file, override the base folder and scan depth.
package config
