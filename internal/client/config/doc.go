// Package config loads runtime configuration for the socialmaster CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file passed with --config.
//  3. Environment variables (SOCIALMASTER_SERVER_ADDR,
//     SOCIALMASTER_ACCESS_TOKEN, SOCIALMASTER_REQUEST_TIMEOUT).
//
// Command-line flags are applied on top by the cli package.
package config
