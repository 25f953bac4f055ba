// Package config defines the drowsy-server settings and provides helpers to
// load, validate and save them in YAML format.
//
// The Config type holds the listen address, the drowsy dwell duration and the
// connection settings for the record store, the Redis mirror, the MQTT device
// bridge and the Telegram notification channel.
package config
