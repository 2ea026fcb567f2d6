package apitest

import (
	"encoding/json"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

// AddRecipe stores r as written by authorID and returns the stored copy.
func (s *Server) AddRecipe(authorID string, r models.Recipe) models.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Add(time.Duration(s.seq) * time.Millisecond)
	if r.ID == "" {
		r.ID = s.nextID("r")
	}
	r.AuthorID = authorID
	r.Author = s.summary(authorID)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = r.CreatedAt

	s.recipes[r.ID] = &r
	s.recipeOrder = append(s.recipeOrder, r.ID)
	return r
}

// AddComment stores a comment on recipeID and returns it.
func (s *Server) AddComment(recipeID, authorID, text string) models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.addComment(recipeID, authorID, text)
}

func (s *Server) addComment(recipeID, authorID, text string) *models.Comment {
	now := time.Now().UTC().Add(time.Duration(s.seq) * time.Millisecond)
	c := &models.Comment{
		ID:        s.nextID("c"),
		RecipeID:  recipeID,
		AuthorID:  authorID,
		Author:    s.summary(authorID),
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.comments[recipeID] = append(s.comments[recipeID], c)
	return c
}

func (s *Server) summary(userID string) *models.UserSummary {
	a, found := s.accounts[userID]
	if !found {
		return nil
	}
	return &models.UserSummary{ID: a.user.ID, Username: a.user.Username}
}

func pageParams(r *http.Request) (page, limit int, sortBy string) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit, r.URL.Query().Get("sort")
}

func paginate[T any](items []T, page, limit int) ([]T, models.Pagination) {
	p := models.Pagination{Page: page, Limit: limit}.WithTotal(len(items))
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}, p
	}
	end := min(start+limit, len(items))
	return items[start:end], p
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	page, limit, sortBy := pageParams(r)
	category := r.URL.Query().Get("category")
	search := strings.ToLower(r.URL.Query().Get("search"))

	s.mu.Lock()
	var out []models.Recipe
	for _, id := range s.recipeOrder {
		rec := s.recipes[id]
		if category != "" && rec.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rec.Title), search) {
			continue
		}
		out = append(out, *rec)
	}
	s.mu.Unlock()

	sortByTime(out, func(r models.Recipe) time.Time { return r.CreatedAt }, sortBy)
	items, p := paginate(out, page, limit)
	okPage(w, items, p)
}

func sortByTime[T any](items []T, at func(T) time.Time, sortBy string) {
	sort.SliceStable(items, func(i, j int) bool {
		if sortBy == "oldest" {
			return at(items[i]).Before(at(items[j]))
		}
		return at(items[i]).After(at(items[j]))
	})
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rec, found := s.recipes[chi.URLParam(r, "recipeID")]
	var out models.Recipe
	if found {
		out = *rec
	}
	s.mu.Unlock()

	if !found {
		fail(w, http.StatusNotFound, "not_found", "Recipe not found")
		return
	}
	ok(w, http.StatusOK, out)
}

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	in, fields := readRecipeForm(r)
	if len(fields) > 0 {
		invalid(w, fields)
		return
	}
	in.ID = ""
	in.CreatedAt = time.Time{}
	ok(w, http.StatusCreated, s.AddRecipe(principalFrom(r).userID, in))
}

func (s *Server) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	in, fields := readRecipeForm(r)
	if len(fields) > 0 {
		invalid(w, fields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.recipes[chi.URLParam(r, "recipeID")]
	if !found {
		fail(w, http.StatusNotFound, "not_found", "Recipe not found")
		return
	}
	if rec.AuthorID != principalFrom(r).userID {
		fail(w, http.StatusForbidden, "forbidden", "Only the author can edit this recipe")
		return
	}

	rec.Title = in.Title
	rec.Description = in.Description
	rec.Category = in.Category
	rec.Ingredients = in.Ingredients
	rec.Instructions = in.Instructions
	rec.PrepMinutes = in.PrepMinutes
	rec.CookMinutes = in.CookMinutes
	rec.Servings = in.Servings
	if in.ImageURL != "" {
		rec.ImageURL = in.ImageURL
	}
	rec.UpdatedAt = time.Now().UTC()
	ok(w, http.StatusOK, *rec)
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "recipeID")

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.recipes[id]
	if !found {
		fail(w, http.StatusNotFound, "not_found", "Recipe not found")
		return
	}
	if rec.AuthorID != principalFrom(r).userID {
		fail(w, http.StatusForbidden, "forbidden", "Only the author can delete this recipe")
		return
	}

	delete(s.recipes, id)
	delete(s.comments, id)
	s.recipeOrder = slices.DeleteFunc(s.recipeOrder, func(x string) bool { return x == id })
	okMessage(w, "Recipe deleted")
}

func (s *Server) handleFavorite(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "recipeID")

		s.mu.Lock()
		defer s.mu.Unlock()

		if _, found := s.recipes[id]; !found {
			fail(w, http.StatusNotFound, "not_found", "Recipe not found")
			return
		}

		a := s.accounts[principalFrom(r).userID]
		if a.user.HasFavorite(id) != add {
			a.user = a.user.ToggleFavorite(id)
		}
		favs := slices.Clone(a.user.Favorites)
		if favs == nil {
			favs = []string{}
		}
		ok(w, http.StatusOK, map[string][]string{"favorites": favs})
	}
}

func readRecipeForm(r *http.Request) (models.Recipe, map[string]string) {
	fields := map[string]string{}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		fields["form"] = "Expected multipart form data"
		return models.Recipe{}, fields
	}

	rec := models.Recipe{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}
	if rec.Title == "" {
		fields["title"] = "Title is required"
	}
	if err := json.Unmarshal([]byte(r.FormValue("ingredients")), &rec.Ingredients); err != nil {
		fields["ingredients"] = "Ingredients must be a JSON array"
	}
	if err := json.Unmarshal([]byte(r.FormValue("instructions")), &rec.Instructions); err != nil {
		fields["instructions"] = "Instructions must be a JSON array"
	}
	rec.PrepMinutes, _ = strconv.Atoi(r.FormValue("prepTime"))
	rec.CookMinutes, _ = strconv.Atoi(r.FormValue("cookTime"))
	rec.Servings, _ = strconv.Atoi(r.FormValue("servings"))

	if _, hdr, err := r.FormFile("image"); err == nil {
		rec.ImageURL = "/uploads/" + uuid.NewString() + "-" + hdr.Filename
	}
	return rec, fields
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cfg := s.config
	s.mu.Unlock()
	ok(w, http.StatusOK, cfg)
}
