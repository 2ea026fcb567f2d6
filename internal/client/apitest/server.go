// Package apitest runs an in-memory recipe API that speaks the same envelope
// format as the real backend. It exists for tests of the client packages.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

const tokenTTL = time.Hour

type account struct {
	user         models.User
	passwordHash []byte
}

type fault struct {
	status int
	body   string
}

// Server is a fake recipe API. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	secret []byte
	router *chi.Mux

	mu          sync.Mutex
	accounts    map[string]*account // by user id
	byEmail     map[string]string   // email -> user id
	revoked     map[string]bool
	emailTokens map[string]string // token -> user id
	resetTokens map[string]string // token -> user id
	recipes     map[string]*models.Recipe
	recipeOrder []string
	comments    map[string][]*models.Comment // by recipe id
	config      models.SiteConfig
	calls       map[string]int
	faults      map[string][]fault
	seq         int
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:      []byte("apitest-secret"),
		accounts:    make(map[string]*account),
		byEmail:     make(map[string]string),
		revoked:     make(map[string]bool),
		emailTokens: make(map[string]string),
		resetTokens: make(map[string]string),
		recipes:     make(map[string]*models.Recipe),
		comments:    make(map[string][]*models.Comment),
		calls:       make(map[string]int),
		faults:      make(map[string][]fault),
		config: models.SiteConfig{
			Categories: []models.Category{
				{ID: "breakfast", Name: "Breakfast"},
				{ID: "dessert", Name: "Dessert"},
				{ID: "dinner", Name: "Dinner"},
			},
			Locale: "en",
			Translations: map[string]map[string]string{
				"en": {"recipes.title": "Recipes"},
			},
		},
	}

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	s.router = r
	r.Use(s.observe)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.Post("/reset-password", s.handleResetPassword)
		r.Post("/verify-email", s.handleVerifyEmail)
		r.Post("/resend-verification", s.handleResendVerification)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/logout", s.handleLogout)
			r.Get("/verify", s.handleVerify)
			r.Put("/profile", s.handleUpdateProfile)
		})
	})

	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", s.handleListRecipes)
		r.With(s.requireAuth).Post("/", s.handleCreateRecipe)

		r.Route("/{recipeID}", func(r chi.Router) {
			r.Get("/", s.handleGetRecipe)
			r.Get("/comments", s.handleListComments)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Put("/", s.handleUpdateRecipe)
				r.Delete("/", s.handleDeleteRecipe)
				r.Post("/favorite", s.handleFavorite(true))
				r.Delete("/favorite", s.handleFavorite(false))
				r.Post("/comments", s.handleCreateComment)
				r.Put("/comments/{commentID}", s.handleUpdateComment)
				r.Delete("/comments/{commentID}", s.handleDeleteComment)
			})
		})
	})

	r.Get("/config", s.handleConfig)
	return r
}

// Calls returns how many requests reached route, written as
// "METHOD /pattern", for example "GET /auth/verify" or
// "POST /recipes/{recipeID}/comments".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests the server has seen.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// FailNext makes the next request to route answer with status and body
// instead of running the handler. Faults queue up per route.
func (s *Server) FailNext(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = append(s.faults[route], fault{status: status, body: body})
}

// SetConfig replaces the payload of GET /config.
func (s *Server) SetConfig(cfg models.SiteConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// observe counts the request under its route pattern and answers with a
// queued fault when there is one.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		rctx := chi.NewRouteContext()
		if s.router.Match(rctx, r.Method, r.URL.Path) {
			key = r.Method + " " + rctx.RoutePattern()
		}

		s.mu.Lock()
		s.calls[key]++
		var f *fault
		if queue := s.faults[key]; len(queue) > 0 {
			f = &queue[0]
			s.faults[key] = queue[1:]
		}
		s.mu.Unlock()

		if f == nil {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	})
}
