package apitest

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	page, limit, sortBy := pageParams(r)
	recipeID := chi.URLParam(r, "recipeID")

	s.mu.Lock()
	_, found := s.recipes[recipeID]
	out := make([]models.Comment, 0, len(s.comments[recipeID]))
	for _, c := range s.comments[recipeID] {
		out = append(out, *c)
	}
	s.mu.Unlock()

	if !found {
		fail(w, http.StatusNotFound, "not_found", "Recipe not found")
		return
	}

	sortByTime(out, func(c models.Comment) time.Time { return c.CreatedAt }, sortBy)
	items, p := paginate(out, page, limit)
	okPage(w, items, p)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		invalid(w, map[string]string{"text": "Comment cannot be empty"})
		return
	}

	recipeID := chi.URLParam(r, "recipeID")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.recipes[recipeID]; !found {
		fail(w, http.StatusNotFound, "not_found", "Recipe not found")
		return
	}
	ok(w, http.StatusCreated, *s.addComment(recipeID, principalFrom(r).userID, in.Text))
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		invalid(w, map[string]string{"text": "Comment cannot be empty"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findComment(r)
	if c == nil {
		fail(w, http.StatusNotFound, "not_found", "Comment not found")
		return
	}
	if c.AuthorID != principalFrom(r).userID {
		fail(w, http.StatusForbidden, "forbidden", "Only the author can edit this comment")
		return
	}
	c.Text = in.Text
	c.UpdatedAt = time.Now().UTC()
	ok(w, http.StatusOK, *c)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	recipeID := chi.URLParam(r, "recipeID")
	userID := principalFrom(r).userID

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findComment(r)
	if c == nil {
		fail(w, http.StatusNotFound, "not_found", "Comment not found")
		return
	}
	if c.AuthorID != userID && s.recipes[recipeID].AuthorID != userID {
		fail(w, http.StatusForbidden, "forbidden", "Not allowed to delete this comment")
		return
	}
	s.comments[recipeID] = slices.DeleteFunc(s.comments[recipeID], func(x *models.Comment) bool { return x.ID == c.ID })
	okMessage(w, "Comment deleted")
}

// findComment must be called with s.mu held.
func (s *Server) findComment(r *http.Request) *models.Comment {
	recipeID := chi.URLParam(r, "recipeID")
	if _, found := s.recipes[recipeID]; !found {
		return nil
	}
	id := chi.URLParam(r, "commentID")
	for _, c := range s.comments[recipeID] {
		if c.ID == id {
			return c
		}
	}
	return nil
}
