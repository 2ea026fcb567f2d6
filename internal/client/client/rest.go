package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/recipebook/internal/client/api"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
	"github.com/dmitrijs2005/recipebook/internal/client/transport"
)

// Sender is satisfied by *transport.Transport.
type Sender interface {
	Send(ctx context.Context, method, path string, body any, opts ...transport.RequestOption) (*api.Result, error)
}

// RESTClient implements Client over the JSON REST API.
type RESTClient struct {
	tr Sender
}

var _ Client = (*RESTClient)(nil)

func NewRESTClient(tr Sender) *RESTClient {
	return &RESTClient{tr: tr}
}

func (c *RESTClient) Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := c.call(ctx, http.MethodPost, "/auth/login", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) Register(ctx context.Context, req models.RegisterRequest) (*Response, error) {
	return c.message(ctx, http.MethodPost, "/auth/register", req)
}

func (c *RESTClient) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Verify asks the server to confirm the current token. The result carries
// the canonical user; Token is empty when the server did not rotate it.
func (c *RESTClient) Verify(ctx context.Context) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := c.call(ctx, http.MethodGet, "/auth/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) ForgotPassword(ctx context.Context, email string) (*Response, error) {
	return c.message(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email})
}

func (c *RESTClient) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (*Response, error) {
	return c.message(ctx, http.MethodPost, "/auth/reset-password", req)
}

func (c *RESTClient) VerifyEmail(ctx context.Context, token string) (*Response, error) {
	return c.message(ctx, http.MethodPost, "/auth/verify-email", map[string]string{"token": token})
}

func (c *RESTClient) ResendVerification(ctx context.Context, email string) (*Response, error) {
	return c.message(ctx, http.MethodPost, "/auth/resend-verification", map[string]string{"email": email})
}

func (c *RESTClient) UpdateProfile(ctx context.Context, patch models.UserPatch) (*models.User, error) {
	var out models.User
	if err := c.call(ctx, http.MethodPut, "/auth/profile", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) ListRecipes(ctx context.Context, filter models.RecipeFilter, opts models.ListOptions) (*models.Page[models.Recipe], error) {
	q := listQuery(opts)
	q.Set("category", filter.Category)
	q.Set("search", filter.Search)
	return list[models.Recipe](ctx, c.tr, "/recipes", opts, q)
}

func (c *RESTClient) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	var out models.Recipe
	if err := c.call(ctx, http.MethodGet, "/recipes/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) CreateRecipe(ctx context.Context, in models.RecipeInput) (*models.Recipe, error) {
	body, err := recipeForm(in)
	if err != nil {
		return nil, err
	}
	var out models.Recipe
	if err := c.call(ctx, http.MethodPost, "/recipes", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) UpdateRecipe(ctx context.Context, id string, in models.RecipeInput) (*models.Recipe, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	body, err := recipeForm(in)
	if err != nil {
		return nil, err
	}
	var out models.Recipe
	if err := c.call(ctx, http.MethodPut, "/recipes/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) DeleteRecipe(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return c.call(ctx, http.MethodDelete, "/recipes/"+url.PathEscape(id), nil, nil)
}

// AddFavorite returns the user's favorites after the change.
func (c *RESTClient) AddFavorite(ctx context.Context, recipeID string) ([]string, error) {
	return c.favorite(ctx, http.MethodPost, recipeID)
}

// RemoveFavorite returns the user's favorites after the change.
func (c *RESTClient) RemoveFavorite(ctx context.Context, recipeID string) ([]string, error) {
	return c.favorite(ctx, http.MethodDelete, recipeID)
}

func (c *RESTClient) favorite(ctx context.Context, method, recipeID string) ([]string, error) {
	if recipeID == "" {
		return nil, ErrEmptyID
	}
	var out struct {
		Favorites []string `json:"favorites"`
	}
	if err := c.call(ctx, method, "/recipes/"+url.PathEscape(recipeID)+"/favorite", nil, &out); err != nil {
		return nil, err
	}
	return out.Favorites, nil
}

func (c *RESTClient) ListComments(ctx context.Context, recipeID string, opts models.ListOptions) (*models.Page[models.Comment], error) {
	if recipeID == "" {
		return nil, ErrEmptyID
	}
	return list[models.Comment](ctx, c.tr, commentsPath(recipeID), opts, listQuery(opts))
}

func (c *RESTClient) CreateComment(ctx context.Context, recipeID, text string) (*models.Comment, error) {
	if recipeID == "" {
		return nil, ErrEmptyID
	}
	var out models.Comment
	if err := c.call(ctx, http.MethodPost, commentsPath(recipeID), map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) UpdateComment(ctx context.Context, recipeID, commentID, text string) (*models.Comment, error) {
	if recipeID == "" || commentID == "" {
		return nil, ErrEmptyID
	}
	var out models.Comment
	path := commentsPath(recipeID) + "/" + url.PathEscape(commentID)
	if err := c.call(ctx, http.MethodPut, path, map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) DeleteComment(ctx context.Context, recipeID, commentID string) error {
	if recipeID == "" || commentID == "" {
		return ErrEmptyID
	}
	return c.call(ctx, http.MethodDelete, commentsPath(recipeID)+"/"+url.PathEscape(commentID), nil, nil)
}

func (c *RESTClient) GetConfig(ctx context.Context) (*models.SiteConfig, error) {
	var out models.SiteConfig
	if err := c.call(ctx, http.MethodGet, "/config", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping reports ErrUnavailable when the server cannot be reached. Any
// response from the server counts as online.
func (c *RESTClient) Ping(ctx context.Context) error {
	_, err := c.tr.Send(ctx, http.MethodGet, "/config", nil)
	if err == nil {
		return nil
	}
	if apiErr, ok := api.As(err); ok && apiErr.IsNetwork() {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if api.IsCanceled(err) {
		return err
	}
	return nil
}

// call sends the request and decodes the payload into out when out is not
// nil. Responses without a payload are fine when out is nil.
func (c *RESTClient) call(ctx context.Context, method, path string, body, out any) error {
	res, err := c.tr.Send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return res.Decode(out)
}

func (c *RESTClient) message(ctx context.Context, method, path string, body any) (*Response, error) {
	res, err := c.tr.Send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return &Response{Message: res.Message}, nil
}

func list[T any](ctx context.Context, tr Sender, path string, opts models.ListOptions, q url.Values) (*models.Page[T], error) {
	res, err := tr.Send(ctx, http.MethodGet, path, nil, transport.WithQuery(q))
	if err != nil {
		return nil, err
	}

	var items []T
	if err := res.Decode(&items); err != nil {
		return nil, err
	}

	page := &models.Page[T]{Items: items}
	if res.Pagination != nil {
		page.Pagination = *res.Pagination
	} else {
		page.Pagination = models.Pagination{Page: opts.Page, Limit: opts.Limit}.WithTotal(len(items))
	}
	return page, nil
}

func listQuery(opts models.ListOptions) url.Values {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	q.Set("sort", opts.Sort)
	return q
}

func commentsPath(recipeID string) string {
	return "/recipes/" + url.PathEscape(recipeID) + "/comments"
}

func recipeForm(in models.RecipeInput) (*transport.Multipart, error) {
	ingredients, err := json.Marshal(nonNil(in.Ingredients))
	if err != nil {
		return nil, fmt.Errorf("encode ingredients: %w", err)
	}
	instructions, err := json.Marshal(nonNil(in.Instructions))
	if err != nil {
		return nil, fmt.Errorf("encode instructions: %w", err)
	}

	m := transport.NewMultipart().
		AddField("title", in.Title).
		AddField("description", in.Description).
		AddField("category", in.Category).
		AddField("ingredients", string(ingredients)).
		AddField("instructions", string(instructions)).
		AddField("prepTime", strconv.Itoa(in.PrepMinutes)).
		AddField("cookTime", strconv.Itoa(in.CookMinutes)).
		AddField("servings", strconv.Itoa(in.Servings))

	if in.Image != nil {
		m.AddFile(transport.FilePart{
			FieldName:   "image",
			FileName:    in.Image.FileName,
			ContentType: in.Image.ContentType,
			Data:        in.Image.Data,
		})
	}
	return m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
