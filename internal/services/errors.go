package services

import "errors"

// Credential lifecycle error taxonomy. Callers distinguish "no credential
// at all" from "provider rejected the exchange" to decide between a
// connect prompt and a reconnect prompt.
var (
	// ErrNotConnected means no credential record exists for the user.
	ErrNotConnected = errors.New("not connected to Google Calendar")

	// ErrTokenExchangeFailed means the provider rejected an authorization
	// code or refresh token exchange.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrAuthRequired means the provider rejected the access token itself
	// (the stored connection is stale).
	ErrAuthRequired = errors.New("calendar authorization required")

	// ErrProviderAPI means event creation failed for a non-auth reason.
	ErrProviderAPI = errors.New("calendar provider error")
)
