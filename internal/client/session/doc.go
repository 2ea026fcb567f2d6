// Package session is the single source of truth for who is logged in.
//
// Store restores the session persisted in SQLite on start (Initialize),
// establishes it on Login, tears it down on Logout or when the transport
// reports an unauthorized response (Expire), and exposes the current token
// to the transport through Token. Authenticated means a server-confirmed
// user is present; a token on its own is not enough.
package session
