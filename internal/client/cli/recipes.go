package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/recipebook/internal/client/lists"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

// Recipes shows the current page of the recipe list, loading it on first
// use and refreshing it afterwards.
func (a *App) Recipes(_ context.Context, _ []string) error {
	if !a.recipes.Load() {
		a.recipes.Refetch()
	}
	return a.showRecipes()
}

func (a *App) NextPage(_ context.Context, _ []string) error {
	a.recipes.Load()
	a.recipes.Wait()
	if !a.recipes.NextPage() {
		a.println("Already on the last page.")
		return nil
	}
	return a.showRecipes()
}

func (a *App) PrevPage(_ context.Context, _ []string) error {
	a.recipes.Load()
	a.recipes.Wait()
	if !a.recipes.PrevPage() {
		a.println("Already on the first page.")
		return nil
	}
	return a.showRecipes()
}

// Search filters by title. Without arguments it clears the search.
func (a *App) Search(_ context.Context, args []string) error {
	a.recipes.SetSearch(strings.Join(args, " "))
	a.recipes.Load()
	return a.showRecipes()
}

// Category filters by category id. Without arguments it clears the filter.
func (a *App) Category(_ context.Context, args []string) error {
	a.recipes.SetCategory(strings.Join(args, " "))
	a.recipes.Load()
	return a.showRecipes()
}

func (a *App) showRecipes() error {
	a.recipes.Wait()
	v := a.recipes.View()
	if v.Status == lists.StatusErrored {
		a.printf("Error: %s\n", v.Message)
		return v.Err
	}

	if f := a.recipes.Resource(); f.Search != "" || f.Category != "" {
		a.printf("Filter: search=%q category=%q\n", f.Search, f.Category)
	}
	if len(v.Items) == 0 {
		a.println("No recipes found.")
		return nil
	}

	var favs []string
	if u := a.session.User(); u != nil {
		favs = u.Favorites
	}
	fav := models.User{Favorites: favs}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tAUTHOR\t")
	for _, r := range v.Items {
		star := ""
		if fav.HasFavorite(r.ID) {
			star = " *"
		}
		fmt.Fprintf(tw, "%s\t%s%s\t%s\t%s\t\n", r.ID, r.Title, star, r.Category, authorName(r.Author))
	}
	_ = tw.Flush()

	p := v.Pagination
	a.printf("Page %d of %d (%d recipes)\n", p.Page, p.TotalPages, p.TotalItems)
	return nil
}

func authorName(s *models.UserSummary) string {
	if s == nil {
		return "-"
	}
	return s.Username
}

func (a *App) Recipe(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.println("Usage: recipe <id>")
		return errUsage
	}

	r, err := a.recipes.Get(ctx, args[0])
	if err != nil {
		a.report(err)
		return err
	}

	a.printf("%s  [%s]\n", r.Title, r.ID)
	a.printf("by %s", authorName(r.Author))
	if r.Category != "" {
		a.printf(" in %s", r.Category)
	}
	if u := a.session.User(); u != nil && u.HasFavorite(r.ID) {
		a.printf(" (favorite)")
	}
	a.println()
	if r.Description != "" {
		a.println(r.Description)
	}
	if r.PrepMinutes+r.CookMinutes > 0 || r.Servings > 0 {
		a.printf("Prep %d min, cook %d min, serves %d\n", r.PrepMinutes, r.CookMinutes, r.Servings)
	}
	if len(r.Ingredients) > 0 {
		a.println("Ingredients:")
		for _, in := range r.Ingredients {
			a.printf("  - %s\n", in)
		}
	}
	if len(r.Instructions) > 0 {
		a.println("Instructions:")
		for i, step := range r.Instructions {
			a.printf("  %d. %s\n", i+1, step)
		}
	}
	if r.ImageURL != "" {
		a.printf("Image: %s\n", r.ImageURL)
	}
	return nil
}

// NewRecipe prompts for a recipe and uploads it, with an optional image file.
func (a *App) NewRecipe(ctx context.Context, _ []string) error {
	if !a.isLoggedIn() {
		a.println("Log in to add recipes.")
		return nil
	}

	in, err := a.readRecipeInput()
	if err != nil {
		return err
	}

	created, err := a.recipes.Create(ctx, in)
	if err != nil {
		a.report(err)
		return err
	}
	a.printf("Created recipe %s\n", created.ID)
	return nil
}

func (a *App) readRecipeInput() (models.RecipeInput, error) {
	var in models.RecipeInput
	var err error

	if in.Title, err = a.ask("Title"); err != nil {
		return in, err
	}
	if in.Category, err = a.ask("Category (optional)"); err != nil {
		return in, err
	}
	if in.Description, err = GetMultiline(a.reader, "Description", a.out); err != nil {
		return in, err
	}
	if in.Ingredients, err = GetLines(a.reader, "Ingredients, one per line", a.out); err != nil {
		return in, err
	}
	if in.Instructions, err = GetLines(a.reader, "Steps, one per line", a.out); err != nil {
		return in, err
	}

	servings, err := a.ask("Servings (optional)")
	if err != nil {
		return in, err
	}
	if servings != "" {
		if in.Servings, err = strconv.Atoi(servings); err != nil {
			a.println("Servings must be a number.")
			return in, err
		}
	}

	path, err := a.ask("Image file (optional)")
	if err != nil {
		return in, err
	}
	if path != "" {
		if in.Image, err = readUpload(path); err != nil {
			a.printf("Error: %v\n", err)
			return in, err
		}
	}
	return in, nil
}

func readUpload(path string) (*models.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &models.Upload{FileName: filepath.Base(path), ContentType: ct, Data: data}, nil
}

func (a *App) DeleteRecipe(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.println("Usage: delete-recipe <id>")
		return errUsage
	}
	if err := a.recipes.Delete(ctx, args[0]); err != nil {
		a.report(err)
		return err
	}
	a.println("Recipe deleted.")
	return nil
}

// Favorite toggles a recipe in the user's favorites.
func (a *App) Favorite(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.println("Usage: favorite <recipe-id>")
		return errUsage
	}

	on, err := a.recipes.ToggleFavorite(ctx, args[0])
	switch {
	case errors.Is(err, lists.ErrLoginRequired):
		a.println("Log in to keep favorites.")
		return err
	case err != nil:
		a.report(err)
		return err
	case on:
		a.println("Added to favorites.")
	default:
		a.println("Removed from favorites.")
	}
	return nil
}
