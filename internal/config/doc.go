// Package config manages updater settings stored at ~/.blob-updater/config.yaml.
// Settings resolve in the order defaults, config file, then BLOB_UPDATER_*
// environment variables. The config file is checked against an embedded JSON
// schema before it is merged, and the merged result is checked again by
// Config.Validate.
package config
