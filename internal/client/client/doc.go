// Package client holds the API contract of the recipe service and its REST
// implementation.
//
// Client splits into AuthAPI, RecipeAPI and CommentAPI so that consumers
// such as the session store depend on the narrowest part they need.
// RESTClient implements all of it on top of transport.Transport; every error
// it returns is either api.ErrCanceled or an *api.Error.
//
// The package also bootstraps local persistence for the CLI: InitDatabase
// opens SQLite and applies the goose migrations embedded in package
// migrations. ConfigCache keeps the last GET /config payload there.
package client
