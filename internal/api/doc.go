// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the FlaskChat backend.
//
// The backend speaks JSON with Spanish field names. This package hides the
// wire format and returns the domain types from the model package.
//
// # Key Types
//
//   - Client: HTTP client for the FlaskChat API
//   - ClientConfig: Base URL and timeout settings
//   - ClientError: Categorized failure (connection, timeout, status, decode)
//
// # Usage
//
//	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: "http://127.0.0.1:5000"})
//	convs, err := client.ListConversations(ctx)
//	if api.IsTimeout(err) {
//	    // retry later
//	}
//
// Every non-2xx response is reported as an error of type ErrTypeStatus (or
// ErrTypeNotFound for 404), regardless of the body.
package api
