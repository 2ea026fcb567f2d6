// Package api turns raw server responses into values the rest of the client
// can rely on.
//
// Every endpoint answers with the same envelope:
//
//	{"success": true,  "data": ..., "pagination": {...}, "message": "..."}
//	{"success": false, "error": {"code": "...", "message": "...", "fields": {...}}}
//
// Normalize classifies a body as OK, Error or PassThrough (no envelope);
// NormalizeError builds the uniform *Error for failed requests. Cancelled
// requests are reported as ErrCanceled and must be ignored by callers.
package api
