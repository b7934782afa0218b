// Package env holds the environment variable naming for the CLI
package env

// Prefix is the common prefix for all service environment variables
const Prefix = "XDCRISK"
