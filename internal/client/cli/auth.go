package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/recipebook/internal/client/client"
	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

func (a *App) askPassword(prompt string) (string, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	defer clear(pw)
	return string(pw), nil
}

// argOrAsk returns the joined args, or prompts for the value when none were
// given on the command line.
func (a *App) argOrAsk(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return a.ask(prompt)
}

func (a *App) done(resp *client.Response, fallback string) {
	if resp != nil && resp.Message != "" {
		a.println(resp.Message)
		return
	}
	a.println(fallback)
}

// Register prompts for the account fields and creates the account. It does
// not log in; the user verifies the email address first.
func (a *App) Register(ctx context.Context, _ []string) error {
	var req models.RegisterRequest
	var err error

	if req.Username, err = a.ask("Enter username"); err != nil {
		return err
	}
	if req.Email, err = a.ask("Enter email"); err != nil {
		return err
	}
	if req.Password, err = a.askPassword("Enter password"); err != nil {
		return err
	}

	resp, err := a.session.Register(ctx, req)
	if err != nil {
		a.report(err)
		return err
	}
	a.done(resp, "Success! Check your inbox to verify your email.")
	return nil
}

// Login prompts for credentials. The email may be passed as an argument.
func (a *App) Login(ctx context.Context, args []string) error {
	email, err := a.argOrAsk(args, "Enter email")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter password")
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, models.Credentials{Email: email, Password: password})
	if err != nil {
		a.report(err)
		return err
	}
	a.printf("Welcome, %s!\n", user.DisplayName())
	if !user.EmailVerified {
		a.println("Your email address is not verified yet.")
	}
	return nil
}

// Logout ends the session. Local data is cleared even when the server call
// fails.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if !a.isLoggedIn() {
		a.println("Not logged in.")
		return nil
	}
	if !a.session.Logout(ctx) {
		a.println("Logged out, but local session data could not be removed.")
		return nil
	}
	a.println("Logged out.")
	return nil
}

func (a *App) WhoAmI(_ context.Context, _ []string) error {
	u := a.session.User()
	if u == nil {
		a.println("Not logged in.")
		return nil
	}

	a.printf("%s <%s>\n", u.DisplayName(), u.Email)
	a.printf("  username: %s\n", u.Username)
	a.printf("  verified: %t\n", u.EmailVerified)
	a.printf("  favorites: %d\n", len(u.Favorites))
	if exp, ok := a.session.TokenExpiry(); ok {
		a.printf("  session expires: %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *App) VerifyEmail(ctx context.Context, args []string) error {
	token, err := a.argOrAsk(args, "Enter verification token")
	if err != nil {
		return err
	}
	resp, err := a.session.VerifyEmail(ctx, token)
	if err != nil {
		a.report(err)
		return err
	}
	a.done(resp, "Email verified.")
	return nil
}

// ResendVerification uses the session email when logged in.
func (a *App) ResendVerification(ctx context.Context, args []string) error {
	var email string
	if u := a.session.User(); u != nil && len(args) == 0 {
		email = u.Email
	} else {
		var err error
		if email, err = a.argOrAsk(args, "Enter email"); err != nil {
			return err
		}
	}

	resp, err := a.session.ResendVerification(ctx, email)
	if err != nil {
		a.report(err)
		return err
	}
	a.done(resp, "Verification email sent.")
	return nil
}

func (a *App) ForgotPassword(ctx context.Context, args []string) error {
	email, err := a.argOrAsk(args, "Enter email")
	if err != nil {
		return err
	}
	resp, err := a.session.ForgotPassword(ctx, email)
	if err != nil {
		a.report(err)
		return err
	}
	a.done(resp, "If the address is registered, a reset link is on its way.")
	return nil
}

func (a *App) ResetPassword(ctx context.Context, args []string) error {
	token, err := a.argOrAsk(args, "Enter reset token")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter new password")
	if err != nil {
		return err
	}
	resp, err := a.session.ResetPassword(ctx, token, password)
	if err != nil {
		a.report(err)
		return err
	}
	a.done(resp, "Password changed. You can log in now.")
	return nil
}

// Profile edits the name fields. An empty answer keeps the current value.
func (a *App) Profile(ctx context.Context, _ []string) error {
	u := a.session.User()
	if u == nil {
		a.println("Log in to edit your profile.")
		return nil
	}

	var patch models.UserPatch
	first, err := a.ask("First name [" + u.FirstName + "]")
	if err != nil {
		return err
	}
	if first != "" {
		patch.FirstName = &first
	}
	last, err := a.ask("Last name [" + u.LastName + "]")
	if err != nil {
		return err
	}
	if last != "" {
		patch.LastName = &last
	}
	if patch.FirstName == nil && patch.LastName == nil {
		a.println("Nothing to change.")
		return nil
	}

	updated, err := a.session.UpdateProfile(ctx, patch)
	if err != nil {
		a.report(err)
		return err
	}
	a.printf("Profile saved: %s\n", updated.DisplayName())
	return nil
}
