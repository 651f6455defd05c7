// Package config defines the application configuration structures and
// loading logic. Configuration is read from an optional config.yaml file
// and STORYBOOK_-prefixed environment variables, with environment values
// taking precedence, and is validated before use.
package config
