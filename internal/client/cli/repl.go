package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context, args []string) error
	VerifyEmail(ctx context.Context, args []string) error
	ResendVerification(ctx context.Context, args []string) error
	ForgotPassword(ctx context.Context, args []string) error
	ResetPassword(ctx context.Context, args []string) error
	Profile(ctx context.Context, args []string) error

	Recipes(ctx context.Context, args []string) error
	NextPage(ctx context.Context, args []string) error
	PrevPage(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Category(ctx context.Context, args []string) error
	Recipe(ctx context.Context, args []string) error
	NewRecipe(ctx context.Context, args []string) error
	DeleteRecipe(ctx context.Context, args []string) error
	Favorite(ctx context.Context, args []string) error

	Comments(ctx context.Context, args []string) error
	Comment(ctx context.Context, args []string) error
	EditComment(ctx context.Context, args []string) error
	DeleteComment(ctx context.Context, args []string) error

	SiteConfig(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
}

// errUsage is returned by commands called with missing arguments. The
// command prints its own usage line.
var errUsage = errors.New("usage")

const (
	helpGuest = "Available commands: register, login, forgot-password, reset-password, verify-email, " +
		"recipes, next, prev, search, category, recipe, comments, config, stats, exit"
	helpUser = "Available commands: whoami, profile, logout, resend-verification, verify-email, " +
		"recipes, next, prev, search, category, recipe, new-recipe, delete-recipe, favorite, " +
		"comments, comment, edit-comment, delete-comment, config, stats, exit"
)

// runREPL reads commands from reader until EOF, "exit" or "quit" and
// dispatches them to a. The prompt shows statusFn().
//
// Command errors are not handled here; commands report their own failures.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("recipes %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpUser)
			} else {
				printlnFn(helpGuest)
			}

		case "register":
			_ = a.Register(ctx, args)
		case "login":
			_ = a.Login(ctx, args)
		case "logout":
			_ = a.Logout(ctx, args)
		case "whoami":
			_ = a.WhoAmI(ctx, args)
		case "verify-email":
			_ = a.VerifyEmail(ctx, args)
		case "resend-verification":
			_ = a.ResendVerification(ctx, args)
		case "forgot-password":
			_ = a.ForgotPassword(ctx, args)
		case "reset-password":
			_ = a.ResetPassword(ctx, args)
		case "profile":
			_ = a.Profile(ctx, args)

		case "l", "recipes":
			_ = a.Recipes(ctx, args)
		case "next":
			_ = a.NextPage(ctx, args)
		case "prev":
			_ = a.PrevPage(ctx, args)
		case "search":
			_ = a.Search(ctx, args)
		case "category":
			_ = a.Category(ctx, args)
		case "recipe", "show":
			_ = a.Recipe(ctx, args)
		case "new-recipe":
			_ = a.NewRecipe(ctx, args)
		case "delete-recipe":
			_ = a.DeleteRecipe(ctx, args)
		case "favorite", "fav":
			_ = a.Favorite(ctx, args)

		case "comments":
			_ = a.Comments(ctx, args)
		case "comment":
			_ = a.Comment(ctx, args)
		case "edit-comment":
			_ = a.EditComment(ctx, args)
		case "delete-comment":
			_ = a.DeleteComment(ctx, args)

		case "config":
			_ = a.SiteConfig(ctx, args)

		case "stats":
			_ = a.Stats(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
