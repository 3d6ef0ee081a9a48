package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/tillapos/internal/apitest"
	"github.com/dmitrijs2005/tillapos/internal/client/config"
	"github.com/dmitrijs2005/tillapos/internal/client/credentials"
	"github.com/dmitrijs2005/tillapos/internal/client/models"
	"github.com/dmitrijs2005/tillapos/internal/logging"
)

const (
	ownerEmail    = "owner@example.com"
	ownerPassword = "s3cret"
)

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer) ([]byte, error) {
		return []byte(pw), nil
	}
	t.Cleanup(func() { getPassword = orig })
}

type harness struct {
	srv *apitest.Server
	cfg *config.Config
	out *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	_, err := srv.AddUser("owner", ownerEmail, ownerPassword)
	require.NoError(t, err)

	cfg := config.NewConfig()
	cfg.BaseURL = srv.URL
	cfg.DBPath = filepath.Join(t.TempDir(), "data", "pos.db")

	return &harness{srv: srv, cfg: cfg, out: &bytes.Buffer{}}
}

func (h *harness) app(t *testing.T, input ...string) *App {
	t.Helper()

	a, err := NewApp(context.Background(), h.cfg, logging.NewNop(), "test", strings.NewReader(strings.Join(input, "\n")+"\n"), h.out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// feed replaces the pending input of a.
func feed(a *App, input ...string) {
	a.reader = bufio.NewReader(strings.NewReader(strings.Join(input, "\n") + "\n"))
}

func TestApp_SessionLifecycle(t *testing.T) {
	stubPassword(t, ownerPassword)
	h := newHarness(t)

	h.app(t,
		"status",
		"login", ownerEmail,
		"me",
		"add-category", "Drinks", "",
		"categories",
		"devices",
		"status",
		"logout",
		"status",
		"exit",
	).Run(context.Background())

	out := h.out.String()
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, "Login successful")
	assert.Contains(t, out, "owner <"+ownerEmail+">")
	assert.Contains(t, out, "Category created")
	assert.Contains(t, out, "Drinks")
	assert.Contains(t, out, "current")
	assert.Contains(t, out, "Signed in as ")
	assert.Contains(t, out, "Logged out")
	assert.Contains(t, out, "tillapos (signed in)> ")
	assert.NotContains(t, out, "session has expired")
	assert.Equal(t, 1, h.srv.Calls(apitest.RouteLogout))
}

func TestApp_SessionRestoredFromDatabase(t *testing.T) {
	stubPassword(t, ownerPassword)
	h := newHarness(t)

	first := h.app(t, "login", ownerEmail, "exit")
	first.Run(context.Background())
	require.NoError(t, first.Close())

	second := h.app(t)
	assert.True(t, second.isLoggedIn())
	require.NoError(t, second.Me(context.Background()))
}

func TestApp_ExpiredSessionIsReported(t *testing.T) {
	stubPassword(t, ownerPassword)
	h := newHarness(t)

	a := h.app(t, ownerEmail)
	require.NoError(t, a.Login(context.Background()))

	h.srv.RevokeAccessTokens()
	h.srv.ExpireRefreshTokens()

	feed(a, "me", "exit")
	a.Run(context.Background())

	out := h.out.String()
	assert.Contains(t, out, "Error: Session expired, please log in again.")
	assert.Contains(t, out, "Your session has expired. Please log in again.")
	assert.False(t, a.isLoggedIn())

	token, err := a.svc.Tokens.Get(context.Background(), credentials.KeyAccessToken)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestApp_WrongPasswordIsNotAnExpiry(t *testing.T) {
	stubPassword(t, "wrong")
	h := newHarness(t)

	h.app(t, "login", ownerEmail, "status", "exit").Run(context.Background())

	out := h.out.String()
	assert.Contains(t, out, "Error: Invalid credentials")
	assert.NotContains(t, out, "session has expired")
}

func TestApp_OTPFlow(t *testing.T) {
	stubPassword(t, ownerPassword)
	h := newHarness(t)
	h.srv.RequireOTP(ownerEmail)
	ctx := context.Background()

	a := h.app(t, ownerEmail)
	require.NoError(t, a.Login(ctx))
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, "(verify "+ownerEmail+")", a.getStatus())

	feed(a, h.srv.OTPCode(ownerEmail))
	require.NoError(t, a.VerifyOTP(ctx))
	assert.True(t, a.isLoggedIn())
	assert.Contains(t, h.out.String(), "Verification successful")
}

func TestApp_RegisterAndCreateBusiness(t *testing.T) {
	stubPassword(t, "pw")
	h := newHarness(t)
	ctx := context.Background()

	a := h.app(t, "cashier", "cashier@example.com", "+15550100")
	require.NoError(t, a.Register(ctx))
	assert.Equal(t, "cashier@example.com", a.pendingEmail)

	orig := getFile
	getFile = func(*bufio.Reader, string, io.Writer) (*models.FileData, error) {
		return &models.FileData{Name: "logo.png", ContentType: "image/png", Content: strings.NewReader("png")}, nil
	}
	t.Cleanup(func() { getFile = orig })

	feed(a, "Corner Cafe", "corner-cafe", "EUR", "u-1", "cafe")
	require.NoError(t, a.CreateBusiness(ctx))
	assert.Contains(t, h.out.String(), `Business "Corner Cafe" created`)

	feed(a, h.srv.OTPCode("cashier@example.com"))
	require.NoError(t, a.VerifyOTP(ctx))
	require.NoError(t, a.Business(ctx))
	assert.Contains(t, h.out.String(), "Corner Cafe [corner-cafe]")
	assert.Contains(t, h.out.String(), "Logo: "+h.srv.URL+"/business/")
}

func TestApp_LogoutWhenServerIsDown(t *testing.T) {
	stubPassword(t, ownerPassword)
	h := newHarness(t)
	ctx := context.Background()

	a := h.app(t, ownerEmail)
	require.NoError(t, a.Login(ctx))

	h.srv.Close()

	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.isLoggedIn())

	require.NoError(t, a.Status(ctx))
	assert.Contains(t, h.out.String(), "Not signed in")
}
