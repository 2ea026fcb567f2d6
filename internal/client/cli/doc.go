// Package cli provides the interactive recipe book command-line client.
//
// It wires configuration, the local SQLite store, the REST transport, the
// session store and the list controllers into a REPL. On start the stored
// session is verified, a background watcher keeps the online/offline mode
// current, and user commands run until "exit".
//
// Key features:
//   - Account: register, login, logout, email verification, password reset
//   - Browsing: paged recipe list with search and category filters
//   - Recipes: show, create with an image, delete, toggle favorites
//   - Comments: list, post, edit and delete on the open recipe
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
