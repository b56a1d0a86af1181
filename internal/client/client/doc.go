// Package client contains the CLI's side of the receipt API.
//
// # Overview
//
// HTTPClient is a typed client for the JSON and multipart contract in package
// wire: Register, Login, Refresh, UploadReceipt, GetMetadata,
// DownloadReceipt, GetDownloadURL and Health. It keeps no credentials of its
// own; protected calls ask the injected TokenSource for the bearer token.
//
// Every response body is decoded into an explicit struct and checked before
// it is returned. A body that does not match the contract yields
// ErrMalformedResponse. Error responses are mapped back to the sentinels in
// package common, so callers match them with errors.Is.
//
// InitDatabase and RunMigrations open the local SQLite file that keeps the
// session tokens between invocations.
//
// The client never retries.
package client
