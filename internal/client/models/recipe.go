package models

import "time"

type Recipe struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Category     string       `json:"category,omitempty"`
	Ingredients  []string     `json:"ingredients,omitempty"`
	Instructions []string     `json:"instructions,omitempty"`
	PrepMinutes  int          `json:"prepTime,omitempty"`
	CookMinutes  int          `json:"cookTime,omitempty"`
	Servings     int          `json:"servings,omitempty"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	AuthorID     string       `json:"authorId"`
	Author       *UserSummary `json:"author,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Key identifies the recipe inside paginated lists.
func (r Recipe) Key() string { return r.ID }

// RecipeInput is the writable part of a recipe. Image, when set, is sent as
// a multipart file part named "image".
type RecipeInput struct {
	Title        string
	Description  string
	Category     string
	Ingredients  []string
	Instructions []string
	PrepMinutes  int
	CookMinutes  int
	Servings     int
	Image        *Upload
}

// Upload is an in-memory file attached to a multipart request.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// RecipeFilter narrows GET /recipes.
type RecipeFilter struct {
	Category string
	Search   string
}
