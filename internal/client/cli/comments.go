package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/recipebook/internal/client/lists"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

// Comments opens the comments of a recipe: "comments <recipe-id> [page]".
// Without arguments it refreshes the open list.
func (a *App) Comments(ctx context.Context, args []string) error {
	if len(args) == 0 {
		if a.comments == nil {
			a.println("Usage: comments <recipe-id> [page]")
			return errUsage
		}
		a.comments.Refetch()
		return a.showComments()
	}

	recipeID := args[0]
	if a.comments == nil || a.comments.Resource() != recipeID {
		r, err := a.recipes.Get(ctx, recipeID)
		if err != nil {
			a.report(err)
			return err
		}
		if a.comments == nil {
			a.comments = lists.NewComments(a.api, a.session, r.ID, r.AuthorID, a.listOpts...)
		} else {
			a.comments.SetRecipe(r.ID, r.AuthorID)
		}
	}

	if len(args) > 1 {
		page, err := strconv.Atoi(args[1])
		if err != nil || page < 1 {
			a.println("Page must be a positive number.")
			return errUsage
		}
		a.comments.SetPage(page)
	}
	a.comments.Load()
	return a.showComments()
}

func (a *App) showComments() error {
	a.comments.Wait()
	v := a.comments.View()
	if v.Status == lists.StatusErrored {
		a.printf("Error: %s\n", v.Message)
		return v.Err
	}
	if len(v.Items) == 0 {
		a.println("No comments yet.")
		return nil
	}

	for _, c := range v.Items {
		a.printf("[%s] %s, %s\n", c.ID, authorName(c.Author), c.CreatedAt.Local().Format("2006-01-02 15:04"))
		a.printf("    %s%s\n", c.Text, a.commentMarks(c))
	}
	p := v.Pagination
	a.printf("Page %d of %d (%d comments)\n", p.Page, p.TotalPages, p.TotalItems)
	return nil
}

func (a *App) commentMarks(c models.Comment) string {
	var marks []string
	if !c.UpdatedAt.Equal(c.CreatedAt) {
		marks = append(marks, "edited")
	}
	if a.comments.CanEdit(c) {
		marks = append(marks, "yours")
	} else if a.comments.CanDelete(c) {
		marks = append(marks, "can delete")
	}
	if len(marks) == 0 {
		return ""
	}
	return "  (" + strings.Join(marks, ", ") + ")"
}

func (a *App) needComments(usage string) bool {
	if a.comments != nil {
		return true
	}
	a.println("Open a recipe first: comments <recipe-id>")
	a.println("Usage: " + usage)
	return false
}

// Comment adds a comment to the open recipe: "comment <text>".
func (a *App) Comment(ctx context.Context, args []string) error {
	if !a.needComments("comment <text>") {
		return errUsage
	}
	text, err := a.argOrAsk(args, "Comment")
	if err != nil {
		return err
	}

	created, err := a.comments.Create(ctx, text)
	if err != nil {
		a.report(err)
		return err
	}
	if created == nil {
		if errors.Is(a.comments.Err(), lists.ErrLoginRequired) {
			a.println("Log in to comment.")
		}
		return nil
	}
	a.printf("Comment %s posted.\n", created.ID)
	return nil
}

// EditComment replaces the text of a comment: "edit-comment <id> <text>".
func (a *App) EditComment(ctx context.Context, args []string) error {
	if !a.needComments("edit-comment <comment-id> <text>") {
		return errUsage
	}
	if len(args) == 0 {
		a.println("Usage: edit-comment <comment-id> <text>")
		return errUsage
	}

	id := args[0]
	if c, found := a.comments.Find(id); found && a.isLoggedIn() && !a.comments.CanEdit(c) {
		a.println("You can only edit your own comments.")
		return nil
	}
	text, err := a.argOrAsk(args[1:], "New text")
	if err != nil {
		return err
	}

	if _, err := a.comments.Update(ctx, id, text); err != nil {
		a.commentError(err)
		return err
	}
	a.println("Comment updated.")
	return nil
}

func (a *App) DeleteComment(ctx context.Context, args []string) error {
	if !a.needComments("delete-comment <comment-id>") {
		return errUsage
	}
	if len(args) == 0 {
		a.println("Usage: delete-comment <comment-id>")
		return errUsage
	}

	id := args[0]
	if c, found := a.comments.Find(id); found && a.isLoggedIn() && !a.comments.CanDelete(c) {
		a.println("You cannot delete this comment.")
		return nil
	}
	if err := a.comments.Delete(ctx, id); err != nil {
		a.commentError(err)
		return err
	}
	a.println("Comment deleted.")
	return nil
}

func (a *App) commentError(err error) {
	if errors.Is(err, lists.ErrLoginRequired) {
		a.println("Log in to change comments.")
		return
	}
	a.report(err)
}
