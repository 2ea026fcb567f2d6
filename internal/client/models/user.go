package models

import "slices"

// User is the authenticated account as confirmed by the server.
type User struct {
	ID                string   `json:"id"`
	Username          string   `json:"username"`
	Email             string   `json:"email,omitempty"`
	FirstName         string   `json:"firstName,omitempty"`
	LastName          string   `json:"lastName,omitempty"`
	ProfilePictureURL string   `json:"profilePictureUrl,omitempty"`
	EmailVerified     bool     `json:"emailVerified"`
	Favorites         []string `json:"favorites,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// HasFavorite reports whether recipeID is in the user's favorites.
func (u User) HasFavorite(recipeID string) bool {
	return slices.Contains(u.Favorites, recipeID)
}

// ToggleFavorite returns a copy of u with recipeID added to or removed from
// the favorites.
func (u User) ToggleFavorite(recipeID string) User {
	out := u.Clone()
	if i := slices.Index(out.Favorites, recipeID); i >= 0 {
		out.Favorites = slices.Delete(out.Favorites, i, i+1)
	} else {
		out.Favorites = append(out.Favorites, recipeID)
	}
	return out
}

// Clone returns a deep copy so callers cannot alias the favorites slice.
func (u User) Clone() User {
	u.Favorites = slices.Clone(u.Favorites)
	return u
}

// UserPatch lists fields to overwrite on a User. Nil fields are left alone.
type UserPatch struct {
	Username          *string   `json:"username,omitempty"`
	Email             *string   `json:"email,omitempty"`
	FirstName         *string   `json:"firstName,omitempty"`
	LastName          *string   `json:"lastName,omitempty"`
	ProfilePictureURL *string   `json:"profilePictureUrl,omitempty"`
	EmailVerified     *bool     `json:"emailVerified,omitempty"`
	Favorites         *[]string `json:"favorites,omitempty"`
}

// Apply returns u with the patch fields written over it.
func (p UserPatch) Apply(u User) User {
	out := u.Clone()
	if p.Username != nil {
		out.Username = *p.Username
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.FirstName != nil {
		out.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		out.LastName = *p.LastName
	}
	if p.ProfilePictureURL != nil {
		out.ProfilePictureURL = *p.ProfilePictureURL
	}
	if p.EmailVerified != nil {
		out.EmailVerified = *p.EmailVerified
	}
	if p.Favorites != nil {
		out.Favorites = slices.Clone(*p.Favorites)
	}
	return out
}

// UserSummary is the public part of a user embedded in recipes and comments.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
