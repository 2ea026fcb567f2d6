package models

import "time"

type Comment struct {
	ID        string       `json:"id"`
	RecipeID  string       `json:"recipeId"`
	AuthorID  string       `json:"authorId"`
	Author    *UserSummary `json:"author,omitempty"`
	Text      string       `json:"text"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Key identifies the comment inside paginated lists.
func (c Comment) Key() string { return c.ID }
