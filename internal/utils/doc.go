// Package utils hosts shared infrastructure for the command-line application:
// the Viper-backed configuration loader, the zap logger factory that tees
// output into the configured log file, and command context plumbing.
package utils
