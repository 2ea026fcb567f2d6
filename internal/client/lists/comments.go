package lists

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/recipebook/internal/client/async"
	"github.com/dmitrijs2005/recipebook/internal/client/client"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

// Comments is the comment list of one recipe.
type Comments struct {
	*Paginated[string, models.Comment]

	api     client.CommentAPI
	session Session

	mu      sync.Mutex
	ownerID string
}

// NewComments returns an idle list for recipeID; call Load to fetch it.
// ownerID is the recipe author, who may delete any comment.
func NewComments(c client.CommentAPI, s Session, recipeID, ownerID string, opts ...async.Option) *Comments {
	opts = append([]async.Option{async.WithErrorMessage("Could not load comments.")}, opts...)
	return &Comments{
		Paginated: NewPaginated[string, models.Comment](c.ListComments, recipeID, models.DefaultListOptions(), opts...),
		api:       c,
		session:   s,
		ownerID:   ownerID,
	}
}

// SetRecipe switches to the comments of another recipe.
func (c *Comments) SetRecipe(recipeID, ownerID string) bool {
	c.mu.Lock()
	c.ownerID = ownerID
	c.mu.Unlock()
	return c.SetResource(recipeID)
}

// Create posts a comment. Without a logged in user it records
// ErrLoginRequired and returns (nil, nil) without calling the server.
func (c *Comments) Create(ctx context.Context, text string) (*models.Comment, error) {
	if !c.session.IsAuthenticated() {
		c.setErr(ErrLoginRequired)
		return nil, nil
	}

	recipeID := c.Resource()
	created, err := c.api.CreateComment(ctx, recipeID, text)
	if err != nil {
		c.record(err)
		return nil, err
	}
	c.setErr(nil)
	if c.Resource() == recipeID {
		c.Prepend(*created)
	}
	return created, nil
}

// Update replaces the comment with the server's canonical copy.
func (c *Comments) Update(ctx context.Context, id, text string) (*models.Comment, error) {
	if !c.session.IsAuthenticated() {
		c.setErr(ErrLoginRequired)
		return nil, ErrLoginRequired
	}

	recipeID := c.Resource()
	updated, err := c.api.UpdateComment(ctx, recipeID, id, text)
	if err != nil {
		c.record(err)
		return nil, err
	}
	c.setErr(nil)
	if c.Resource() == recipeID {
		c.Replace(id, *updated)
	}
	return updated, nil
}

func (c *Comments) Delete(ctx context.Context, id string) error {
	if !c.session.IsAuthenticated() {
		c.setErr(ErrLoginRequired)
		return ErrLoginRequired
	}

	recipeID := c.Resource()
	if err := c.api.DeleteComment(ctx, recipeID, id); err != nil {
		c.record(err)
		return err
	}
	c.setErr(nil)
	if c.Resource() == recipeID {
		c.Remove(id)
	}
	return nil
}

func (c *Comments) CanEdit(cm models.Comment) bool {
	return CanEdit(currentUserID(c.session), cm.AuthorID)
}

func (c *Comments) CanDelete(cm models.Comment) bool {
	c.mu.Lock()
	owner := c.ownerID
	c.mu.Unlock()
	return CanDelete(currentUserID(c.session), cm.AuthorID, owner)
}
