// Package auth provides authentication middleware for the mock API.
//
// APIKey(header, key) wraps an http.Handler and validates the API key in the
// named request header. When key == "" every request passes through (useful
// for local development with auth disabled). When the key is incorrect or
// absent the middleware answers 401 immediately.
package auth
