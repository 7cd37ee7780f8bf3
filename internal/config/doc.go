// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Connection settings can also come straight from the environment (FromEnv),
// with .env file support for local development:
//
//	P21_BASE_URL, P21_USERNAME, P21_PASSWORD, P21_VERIFY_SSL, P21_CONSUMER_KEY
package config
