// Package auth produces bearer tokens for the Cost Management API.
//
// Two providers exist, selected from the configured auth type:
//   - StaticProvider wraps a token supplied directly by the caller.
//   - ClientCredentialsProvider performs the OAuth2 client credentials
//     exchange against Azure AD via azidentity and caches the issued
//     token until shortly before its expiry.
//
// The whole run is single-threaded, so the token cache needs no locking:
// it is read and conditionally refreshed between sequential segment
// fetches.
package auth
