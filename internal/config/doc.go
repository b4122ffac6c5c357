// Package config loads and validates the frameloop TOML configuration.
//
// Configuration is optional: when no file exists the repository defaults
// apply, which target a single-user appliance install under
// ~/.local/share/frameloop. All path fields are expanded and made
// absolute during load.
package config
