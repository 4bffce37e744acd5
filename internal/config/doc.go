// Package config loads watchwherelive settings from YAML, .env and WWL_ environment variables.
package config
