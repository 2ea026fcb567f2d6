// Package transport is the single path every API call takes to the server.
//
// Transport.Send encodes the request body (JSON, multipart or raw bytes),
// attaches the bearer token read from a TokenSource at call time, executes
// the request and hands the response to package api for normalization.
// Unauthorized responses trigger the bound UnauthorizedHandler before the
// error is returned; cancelled contexts surface as api.ErrCanceled.
package transport
