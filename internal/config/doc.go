// Package config resolves the effective configuration for an export run.
//
// Values are layered, highest priority first:
//  1. Command-line flags
//  2. Process environment variables
//  3. A .env file loaded into the environment at startup
//  4. Built-in defaults
//
// The layering is implemented by seeding CLI flag defaults from
// DefaultsFromEnv, so an explicitly passed flag always overrides the
// environment, and godotenv's non-overriding load keeps real environment
// variables ahead of .env entries.
//
// Supported environment variables:
//   - AUTH_TYPE: bearer_token or client_credentials
//   - AZURE_BEARER_TOKEN: token for bearer_token auth
//   - AZURE_TENANT_ID, AZURE_CLIENT_ID, AZURE_CLIENT_SECRET: client
//     credentials auth
//   - AZURE_SUBSCRIPTION_ID, AZURE_RESOURCE_GROUP: query scope
//   - DEFAULT_SERVICES: comma-separated service names or resource IDs
//   - DEFAULT_FROM_DATE, DEFAULT_TO_DATE: date range (YYYY-MM-DD)
//   - DEFAULT_EXPORT_PATH: output CSV path
//   - COST_THRESHOLD: minimum USD cost for a row to be exported
//   - MAX_DAYS_PER_REQUEST: query window limit per API request
//   - REQUEST_TIMEOUT, MAX_RETRIES, RETRY_DELAY: HTTP behaviour (seconds)
//   - LOG_LEVEL: debug, info, warn, or error
//
// The resulting Config is immutable for the duration of the run. Exactly
// one auth method's credentials are populated; the other method's fields
// stay empty regardless of what the environment contained.
package config
