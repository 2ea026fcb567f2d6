package client

import (
	"context"

	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

// Response is the outcome of a call whose payload is informational only,
// such as registration or a password reset request.
type Response struct {
	Message string
}

// AuthAPI is the part of Client the session store talks to.
type AuthAPI interface {
	Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error)
	Register(ctx context.Context, req models.RegisterRequest) (*Response, error)
	Logout(ctx context.Context) error
	Verify(ctx context.Context) (*models.AuthResult, error)
	ForgotPassword(ctx context.Context, email string) (*Response, error)
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (*Response, error)
	VerifyEmail(ctx context.Context, token string) (*Response, error)
	ResendVerification(ctx context.Context, email string) (*Response, error)
	UpdateProfile(ctx context.Context, patch models.UserPatch) (*models.User, error)
}

// RecipeAPI covers recipes and favorites.
type RecipeAPI interface {
	ListRecipes(ctx context.Context, filter models.RecipeFilter, opts models.ListOptions) (*models.Page[models.Recipe], error)
	GetRecipe(ctx context.Context, id string) (*models.Recipe, error)
	CreateRecipe(ctx context.Context, in models.RecipeInput) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, id string, in models.RecipeInput) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
	AddFavorite(ctx context.Context, recipeID string) ([]string, error)
	RemoveFavorite(ctx context.Context, recipeID string) ([]string, error)
}

// CommentAPI covers the comments of a recipe.
type CommentAPI interface {
	ListComments(ctx context.Context, recipeID string, opts models.ListOptions) (*models.Page[models.Comment], error)
	CreateComment(ctx context.Context, recipeID, text string) (*models.Comment, error)
	UpdateComment(ctx context.Context, recipeID, commentID, text string) (*models.Comment, error)
	DeleteComment(ctx context.Context, recipeID, commentID string) error
}

// Client is the full API contract used by the CLI.
type Client interface {
	AuthAPI
	RecipeAPI
	CommentAPI
	GetConfig(ctx context.Context) (*models.SiteConfig, error)
	Ping(ctx context.Context) error
}
