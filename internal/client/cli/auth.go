package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tillapos/internal/client/credentials"
	"github.com/dmitrijs2005/tillapos/internal/client/services"
	"github.com/dmitrijs2005/tillapos/internal/common"
)

// getSimpleText and getPassword are indirections swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getFile       = GetFile
)

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

// Login prompts for credentials and signs in. When the server asks for a
// one-time code the email is remembered for the verify command.
//
// A rejected sign-in also passes through session invalidation; that signal is
// not a session expiry from the user's point of view and is dropped.
func (a *App) Login(ctx context.Context) error {
	defer a.drainSession()

	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.svc.Auth.Login(ctx, services.LoginCredentials{Email: email, Password: string(password)}, nil)
	if err != nil {
		return err
	}

	switch res.Kind {
	case services.LoginNeedsOTP:
		a.pendingEmail = email
		fmt.Fprintf(a.out, "A verification code was sent to %s. Enter it with 'verify'.\n", email)
	default:
		a.pendingEmail = ""
		fmt.Fprintln(a.out, "Login successful")
	}
	return nil
}

func (a *App) VerifyOTP(ctx context.Context) error {
	defer a.drainSession()

	email, err := a.pendingOrAsk()
	if err != nil {
		return err
	}

	code, err := a.ask("Enter the 6-digit code")
	if err != nil {
		return err
	}

	if _, err := a.svc.Auth.VerifyOTP(ctx, code, email, nil); err != nil {
		return err
	}

	a.pendingEmail = ""
	fmt.Fprintln(a.out, "Verification successful, you are signed in")
	return nil
}

func (a *App) ResendOTP(ctx context.Context) error {
	email, err := a.pendingOrAsk()
	if err != nil {
		return err
	}

	res, err := a.svc.Auth.ResendOTP(ctx, email)
	if err != nil {
		return err
	}
	if !res.Sent {
		return errors.New(res.Message)
	}

	a.pendingEmail = email
	fmt.Fprintln(a.out, res.Message)
	return nil
}

func (a *App) pendingOrAsk() (string, error) {
	if a.pendingEmail != "" {
		return a.pendingEmail, nil
	}
	return a.ask("Enter email")
}

func (a *App) Register(ctx context.Context) error {
	username, err := a.ask("Enter username")
	if err != nil {
		return err
	}
	email, err := a.ask("Enter email")
	if err != nil {
		return err
	}
	phone, err := a.ask("Enter phone")
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.svc.Auth.Register(ctx, services.RegisterCredentials{
		Username: username,
		Email:    email,
		Phone:    phone,
		Password: string(password),
	})
	if err != nil {
		return err
	}

	a.pendingEmail = user.Email
	fmt.Fprintf(a.out, "Account created for %s. Set up your business with 'create-business'.\n", user.Email)
	return nil
}

func (a *App) CreateBusiness(ctx context.Context) error {
	var req services.CreateBusinessRequest

	prompts := []struct {
		text string
		dst  *string
	}{
		{"Enter business name", &req.Name},
		{"Enter slug", &req.Slug},
		{"Enter currency (e.g. USD)", &req.Currency},
		{"Enter shopkeeper id", &req.ShopkeeperID},
		{"Enter business type (see 'business-types')", &req.BusinessTypeID},
	}
	for _, p := range prompts {
		v, err := a.ask(p.text)
		if err != nil {
			return err
		}
		*p.dst = v
	}

	email, err := a.pendingOrAsk()
	if err != nil {
		return err
	}
	req.Email = email

	image, err := getFile(a.reader, "Path to logo image", a.out)
	if err != nil {
		return err
	}

	b, err := a.svc.Auth.CreateBusiness(ctx, req, image)
	if err != nil {
		return err
	}

	a.pendingEmail = email
	fmt.Fprintf(a.out, "Business %q created. Verify %s with 'verify'.\n", b.Name, email)
	return nil
}

// Logout always ends the local session, even if the server is unreachable.
func (a *App) Logout(ctx context.Context) error {
	err := a.svc.Auth.Logout(ctx)
	a.drainSession()
	a.pendingEmail = ""
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Status shows what the stored access token says about the session.
func (a *App) Status(ctx context.Context) error {
	token, err := a.svc.Tokens.Get(ctx, credentials.KeyAccessToken)
	if err != nil {
		return err
	}
	if token == "" {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}

	claims, err := credentials.ParseClaims(token)
	if errors.Is(err, credentials.ErrNotJWT) {
		fmt.Fprintln(a.out, "Signed in (opaque token)")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Signed in as %s\n", claims.Subject)
	if !claims.ExpiresAt.IsZero() {
		state := "valid until"
		if claims.Expired(time.Now()) {
			state = "expired at"
		}
		fmt.Fprintf(a.out, "Access token %s %s (refreshed automatically)\n", state, claims.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
