package lists

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/recipebook/internal/client/async"
	"github.com/dmitrijs2005/recipebook/internal/client/client"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

// ErrNotOwner is returned when deleting or editing a recipe held in the list
// that the current user did not write.
var ErrNotOwner = errors.New("only the author can change this recipe")

// Recipes is the browsable recipe list with category and search filters.
type Recipes struct {
	*Paginated[models.RecipeFilter, models.Recipe]

	api     client.RecipeAPI
	session Session
}

func NewRecipes(c client.RecipeAPI, s Session, opts ...async.Option) *Recipes {
	opts = append([]async.Option{async.WithErrorMessage("Could not load recipes.")}, opts...)
	return &Recipes{
		Paginated: NewPaginated[models.RecipeFilter, models.Recipe](c.ListRecipes, models.RecipeFilter{}, models.DefaultListOptions(), opts...),
		api:       c,
		session:   s,
	}
}

func (r *Recipes) SetCategory(category string) bool {
	f := r.Resource()
	f.Category = category
	return r.SetResource(f)
}

func (r *Recipes) SetSearch(q string) bool {
	f := r.Resource()
	f.Search = q
	return r.SetResource(f)
}

// Get loads a single recipe. It does not touch the list.
func (r *Recipes) Get(ctx context.Context, id string) (*models.Recipe, error) {
	return r.api.GetRecipe(ctx, id)
}

// Create uploads a new recipe and puts it first in the held page.
func (r *Recipes) Create(ctx context.Context, in models.RecipeInput) (*models.Recipe, error) {
	if !r.session.IsAuthenticated() {
		r.setErr(ErrLoginRequired)
		return nil, nil
	}

	created, err := r.api.CreateRecipe(ctx, in)
	if err != nil {
		r.record(err)
		return nil, err
	}
	r.setErr(nil)
	r.Prepend(*created)
	return created, nil
}

func (r *Recipes) Update(ctx context.Context, id string, in models.RecipeInput) (*models.Recipe, error) {
	if err := r.checkOwner(id); err != nil {
		return nil, err
	}

	updated, err := r.api.UpdateRecipe(ctx, id, in)
	if err != nil {
		r.record(err)
		return nil, err
	}
	r.setErr(nil)
	r.Replace(id, *updated)
	return updated, nil
}

func (r *Recipes) Delete(ctx context.Context, id string) error {
	if err := r.checkOwner(id); err != nil {
		return err
	}

	if err := r.api.DeleteRecipe(ctx, id); err != nil {
		r.record(err)
		return err
	}
	r.setErr(nil)
	r.Remove(id)
	return nil
}

// checkOwner refuses early when the recipe is in the list and belongs to
// someone else. Recipes outside the list are left to the server.
func (r *Recipes) checkOwner(id string) error {
	if !r.session.IsAuthenticated() {
		r.setErr(ErrLoginRequired)
		return ErrLoginRequired
	}
	if rec, found := r.Find(id); found && !CanEdit(currentUserID(r.session), rec.AuthorID) {
		r.setErr(ErrNotOwner)
		return ErrNotOwner
	}
	return nil
}

// ToggleFavorite flips recipe id in the user's favorites and stores the
// server's resulting set on the session user. It reports whether the recipe
// is now a favorite.
func (r *Recipes) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	user := r.session.User()
	if user == nil {
		r.setErr(ErrLoginRequired)
		return false, ErrLoginRequired
	}

	var (
		favs []string
		err  error
	)
	if user.HasFavorite(id) {
		favs, err = r.api.RemoveFavorite(ctx, id)
	} else {
		favs, err = r.api.AddFavorite(ctx, id)
	}
	if err != nil {
		r.record(err)
		return false, err
	}

	if favs == nil {
		favs = []string{}
	}
	if err := r.session.UpdateUserInfo(ctx, models.UserPatch{Favorites: &favs}); err != nil {
		r.record(err)
		return false, err
	}
	r.setErr(nil)
	return models.User{Favorites: favs}.HasFavorite(id), nil
}
