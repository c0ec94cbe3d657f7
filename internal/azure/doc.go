// Package azure implements the Cost Management API billing client.
//
// The client posts resource-group scoped cost queries (monthly ActualCost
// totals in the billing currency and USD, grouped and filtered by resource
// ID) and follows nextLink continuations until a segment's result set is
// exhausted. Request and response bodies use the armcostmanagement wire
// types.
//
// Transient failures (network errors, timeouts, 429, 5xx) are retried up
// to the configured attempt count with a fixed delay between attempts. A
// 401 triggers a single token refresh through the auth provider; any other
// 4xx stops immediately. Retry exhaustion surfaces as a FetchError naming
// the failing segment.
package azure
