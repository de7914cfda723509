// Package utils carries the shared infrastructure beneath the uvmigrate
// commands: Viper-backed configuration loading with embedded defaults and
// environment overrides, zap logger construction from configured level and
// format, context plumbing for command-scoped values, and console writer
// helpers.
package utils
