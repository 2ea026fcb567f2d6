// Package lists holds the list controllers the CLI pages through: a generic
// Paginated controller built on async.Hook, and the Comments and Recipes
// controllers that add authenticated mutations on top of it.
//
// Paging, sorting and resource changes only change the dependency key of the
// underlying hook. Mutations patch the held page in place from the server's
// answer and never trigger a reload.
package lists
