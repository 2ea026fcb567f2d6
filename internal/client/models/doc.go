// Package models defines the client-side data models exchanged with the
// recipe API: users, recipes, comments, pagination and site configuration.
package models
