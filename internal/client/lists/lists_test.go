package lists

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/recipebook/internal/client/api"
	"github.com/dmitrijs2005/recipebook/internal/client/apitest"
	"github.com/dmitrijs2005/recipebook/internal/client/client"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
	"github.com/dmitrijs2005/recipebook/internal/client/session"
	"github.com/dmitrijs2005/recipebook/internal/client/transport"
	"github.com/dmitrijs2005/recipebook/internal/logging"
)

type env struct {
	srv   *apitest.Server
	api   *client.RESTClient
	store *session.Store
	alice models.User
	bob   models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv := apitest.New(t)

	tr, err := transport.New(srv.URL)
	require.NoError(t, err)

	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "lists.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rc := client.NewRESTClient(tr)
	store := session.New(rc, session.NewSQLitePersistence(db))
	tr.SetAuth(store, store)

	return &env{
		srv:   srv,
		api:   rc,
		store: store,
		alice: srv.AddUser("alice", "alice@example.com", "secret1"),
		bob:   srv.AddUser("bob", "bob@example.com", "secret2"),
	}
}

func (e *env) login(t *testing.T, email, password string) {
	t.Helper()
	_, err := e.store.Login(context.Background(), models.Credentials{Email: email, Password: password})
	require.NoError(t, err)
}

func loaded[R any, T Keyed](t *testing.T, p *Paginated[R, T]) View[T] {
	t.Helper()
	p.Wait()
	v := p.View()
	require.Equal(t, StatusLoaded, v.Status, "err: %v", v.Err)
	return v
}

func TestPaginated_StateMachine(t *testing.T) {
	e := newEnv(t)
	for _, title := range []string{"a", "b", "c"} {
		e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: title})
	}

	r := NewRecipes(e.api, e.store)
	defer r.Close()
	assert.Equal(t, StatusIdle, r.View().Status)
	assert.False(t, r.SetSort("newest"), "no fetch before Load")

	require.True(t, r.Load())
	v := loaded(t, r.Paginated)
	assert.Len(t, v.Items, 3)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 10, TotalItems: 3, TotalPages: 1}, v.Pagination)

	assert.False(t, r.Load(), "same key does not reload")

	require.True(t, r.SetLimit(2))
	v = loaded(t, r.Paginated)
	assert.Len(t, v.Items, 2)
	assert.Equal(t, 2, v.Pagination.TotalPages)

	require.True(t, r.NextPage())
	v = loaded(t, r.Paginated)
	assert.Len(t, v.Items, 1)
	assert.Equal(t, 2, r.Options().Page)
	assert.False(t, r.NextPage())

	require.True(t, r.PrevPage())
	loaded(t, r.Paginated)
	assert.False(t, r.PrevPage())

	assert.Equal(t, 4, e.srv.Calls("GET /recipes"))
}

func TestPaginated_LoadError(t *testing.T) {
	e := newEnv(t)
	e.srv.FailNext("GET /recipes", http.StatusInternalServerError, `{"success":false,"error":{"code":"internal","message":"db down"}}`)

	r := NewRecipes(e.api, e.store)
	defer r.Close()
	r.Load()
	r.Wait()

	v := r.View()
	assert.Equal(t, StatusErrored, v.Status)
	assert.Equal(t, "Could not load recipes.", v.Message)
	assert.Error(t, r.Err())
}

func TestRecipes_Filters(t *testing.T) {
	e := newEnv(t)
	e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Pancakes", Category: "breakfast"})
	e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Brownies", Category: "dessert"})
	e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Banana pancakes", Category: "breakfast"})

	r := NewRecipes(e.api, e.store)
	defer r.Close()
	r.Load()
	loaded(t, r.Paginated)

	require.True(t, r.SetCategory("breakfast"))
	v := loaded(t, r.Paginated)
	assert.Len(t, v.Items, 2)

	require.True(t, r.SetSearch("banana"))
	v = loaded(t, r.Paginated)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Banana pancakes", v.Items[0].Title)
	assert.Equal(t, models.RecipeFilter{Category: "breakfast", Search: "banana"}, r.Resource())
}

func TestComments_CreateRequiresLogin(t *testing.T) {
	e := newEnv(t)
	rec := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Soup"})

	c := NewComments(e.api, e.store, rec.ID, rec.AuthorID)
	defer c.Close()

	before := e.srv.TotalCalls()
	got, err := c.Create(context.Background(), "hi")
	assert.Nil(t, got)
	assert.NoError(t, err)
	assert.ErrorIs(t, c.Err(), ErrLoginRequired)
	assert.Equal(t, before, e.srv.TotalCalls(), "no request without a session")
}

func TestComments_MutationErrorClearedByReload(t *testing.T) {
	e := newEnv(t)
	soup := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Soup"})
	stew := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Stew"})

	c := NewComments(e.api, e.store, soup.ID, soup.AuthorID)
	defer c.Close()
	c.Load()
	loaded(t, c.Paginated)

	got, err := c.Create(context.Background(), "hi")
	require.NoError(t, err)
	require.Nil(t, got)
	require.ErrorIs(t, c.Err(), ErrLoginRequired)

	e.login(t, "bob@example.com", "secret2")
	c.Refetch()
	c.Wait()
	v := c.View()
	assert.Equal(t, StatusLoaded, v.Status)
	assert.NoError(t, v.Err)
	assert.Empty(t, v.Message)
	assert.NoError(t, c.Err())

	_, err = c.Update(context.Background(), "missing", "x")
	require.Error(t, err)
	require.Error(t, c.Err())

	c.SetRecipe(stew.ID, stew.AuthorID)
	c.Wait()
	v = c.View()
	assert.Equal(t, StatusLoaded, v.Status)
	assert.NoError(t, v.Err)
	assert.NoError(t, c.Err())
}

func TestComments_CreatePrependsAndCounts(t *testing.T) {
	e := newEnv(t)
	rec := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Soup"})
	e.srv.AddComment(rec.ID, e.alice.ID, "first")
	e.login(t, "bob@example.com", "secret2")

	c := NewComments(e.api, e.store, rec.ID, rec.AuthorID)
	defer c.Close()
	c.Load()
	loaded(t, c.Paginated)
	listCalls := e.srv.Calls("GET /recipes/{recipeID}/comments")

	created, err := c.Create(context.Background(), "second")
	require.NoError(t, err)
	require.NotNil(t, created)

	v := c.View()
	require.Len(t, v.Items, 2)
	assert.Equal(t, created.ID, v.Items[0].ID)
	assert.Equal(t, 2, v.Pagination.TotalItems)
	assert.NoError(t, c.Err())
	assert.Equal(t, listCalls, e.srv.Calls("GET /recipes/{recipeID}/comments"), "no refetch after create")
}

func TestComments_CreateFailureLeavesList(t *testing.T) {
	e := newEnv(t)
	rec := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Soup"})
	e.login(t, "bob@example.com", "secret2")

	c := NewComments(e.api, e.store, rec.ID, rec.AuthorID)
	defer c.Close()
	c.Load()
	loaded(t, c.Paginated)

	_, err := c.Create(context.Background(), "   ")
	require.Error(t, err)

	apiErr, ok := api.As(c.Err())
	require.True(t, ok)
	assert.True(t, apiErr.HasField("text"))
	assert.Empty(t, c.View().Items)
}

func TestComments_DeleteLastKeepsOnePage(t *testing.T) {
	e := newEnv(t)
	rec := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Soup"})
	cm := e.srv.AddComment(rec.ID, e.bob.ID, "only one")
	e.login(t, "bob@example.com", "secret2")

	c := NewComments(e.api, e.store, rec.ID, rec.AuthorID)
	defer c.Close()
	c.Load()
	v := loaded(t, c.Paginated)
	assert.Equal(t, 1, v.Pagination.TotalItems)

	require.NoError(t, c.Delete(context.Background(), cm.ID))

	v = c.View()
	assert.Empty(t, v.Items)
	assert.Equal(t, 0, v.Pagination.TotalItems)
	assert.Equal(t, 1, v.Pagination.TotalPages)
}

func TestComments_UpdateUsesServerCopy(t *testing.T) {
	e := newEnv(t)
	rec := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Soup"})
	cm := e.srv.AddComment(rec.ID, e.bob.ID, "tpyo")
	e.srv.AddComment(rec.ID, e.alice.ID, "other")
	e.login(t, "bob@example.com", "secret2")

	c := NewComments(e.api, e.store, rec.ID, rec.AuthorID)
	defer c.Close()
	c.Load()
	loaded(t, c.Paginated)

	updated, err := c.Update(context.Background(), cm.ID, "typo")
	require.NoError(t, err)

	got, found := c.Find(cm.ID)
	require.True(t, found)
	assert.Equal(t, "typo", got.Text)
	assert.Equal(t, updated.UpdatedAt, got.UpdatedAt)
	assert.Len(t, c.View().Items, 2)
}

func TestComments_Permissions(t *testing.T) {
	e := newEnv(t)
	rec := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Soup"})
	bobs := e.srv.AddComment(rec.ID, e.bob.ID, "bob was here")

	c := NewComments(e.api, e.store, rec.ID, rec.AuthorID)
	defer c.Close()

	assert.False(t, c.CanEdit(bobs))
	assert.False(t, c.CanDelete(bobs))

	e.login(t, "alice@example.com", "secret1")
	assert.False(t, c.CanEdit(bobs))
	assert.True(t, c.CanDelete(bobs), "recipe owner moderates")

	e.login(t, "bob@example.com", "secret2")
	assert.True(t, c.CanEdit(bobs))
	assert.True(t, c.CanDelete(bobs))
}

func TestComments_SetRecipe(t *testing.T) {
	e := newEnv(t)
	soup := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Soup"})
	cake := e.srv.AddRecipe(e.bob.ID, models.Recipe{Title: "Cake"})
	e.srv.AddComment(cake.ID, e.alice.ID, "nice cake")

	c := NewComments(e.api, e.store, soup.ID, soup.AuthorID)
	defer c.Close()
	c.Load()
	assert.Empty(t, loaded(t, c.Paginated).Items)

	require.True(t, c.SetRecipe(cake.ID, cake.AuthorID))
	v := loaded(t, c.Paginated)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "nice cake", v.Items[0].Text)
}

func TestRecipes_CreateUpdateDelete(t *testing.T) {
	e := newEnv(t)
	e.login(t, "alice@example.com", "secret1")

	r := NewRecipes(e.api, e.store)
	defer r.Close()
	r.Load()
	loaded(t, r.Paginated)

	created, err := r.Create(context.Background(), models.RecipeInput{
		Title:       "Toast",
		Ingredients: []string{"bread"},
		Image:       &models.Upload{FileName: "toast.jpg", ContentType: "image/jpeg", Data: []byte("jpg")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.View().Pagination.TotalItems)

	updated, err := r.Update(context.Background(), created.ID, models.RecipeInput{Title: "Better toast"})
	require.NoError(t, err)
	got, _ := r.Find(created.ID)
	assert.Equal(t, updated.Title, got.Title)

	require.NoError(t, r.Delete(context.Background(), created.ID))
	assert.Empty(t, r.View().Items)
}

func TestRecipes_DeleteNotOwnerIsRefusedLocally(t *testing.T) {
	e := newEnv(t)
	rec := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Soup"})
	e.login(t, "bob@example.com", "secret2")

	r := NewRecipes(e.api, e.store)
	defer r.Close()
	r.Load()
	loaded(t, r.Paginated)

	before := e.srv.TotalCalls()
	assert.ErrorIs(t, r.Delete(context.Background(), rec.ID), ErrNotOwner)
	assert.Equal(t, before, e.srv.TotalCalls())
	assert.Len(t, r.View().Items, 1)
}

func TestRecipes_ToggleFavorite(t *testing.T) {
	e := newEnv(t)
	rec := e.srv.AddRecipe(e.alice.ID, models.Recipe{Title: "Soup"})

	r := NewRecipes(e.api, e.store)
	defer r.Close()

	_, err := r.ToggleFavorite(context.Background(), rec.ID)
	assert.ErrorIs(t, err, ErrLoginRequired)

	e.login(t, "bob@example.com", "secret2")

	fav, err := r.ToggleFavorite(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, fav)
	assert.True(t, e.store.User().HasFavorite(rec.ID))

	fav, err = r.ToggleFavorite(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, fav)
	assert.False(t, e.store.User().HasFavorite(rec.ID))
	assert.Equal(t, 1, e.srv.Calls("DELETE /recipes/{recipeID}/favorite"))
}

func TestRecipes_UnauthorizedMutationLogsOut(t *testing.T) {
	e := newEnv(t)
	e.login(t, "alice@example.com", "secret1")

	r := NewRecipes(e.api, e.store)
	defer r.Close()

	e.srv.FailNext("POST /recipes", http.StatusUnauthorized, `{"success":false,"error":{"code":401,"message":"Token expired"}}`)
	_, err := r.Create(context.Background(), models.RecipeInput{Title: "x"})
	require.True(t, api.IsUnauthorized(err))
	assert.False(t, e.store.IsAuthenticated())
	assert.Equal(t, api.SessionExpiredMessage, r.View().Message)
}
