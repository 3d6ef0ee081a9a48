package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/tillapos/internal/client/client"
)

type fakeExec struct {
	loggedIn bool
	checks   int
	calls    []string
	failWith error
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) checkSession()    { f.checks++ }

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	return f.failWith
}

func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) VerifyOTP(context.Context) error      { return f.record("verify") }
func (f *fakeExec) ResendOTP(context.Context) error      { return f.record("resend-otp") }
func (f *fakeExec) Register(context.Context) error       { return f.record("register") }
func (f *fakeExec) CreateBusiness(context.Context) error { return f.record("create-business") }
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) Status(context.Context) error        { return f.record("status") }
func (f *fakeExec) Me(context.Context) error            { return f.record("me") }
func (f *fakeExec) Business(context.Context) error      { return f.record("business") }
func (f *fakeExec) BusinessTypes(context.Context) error { return f.record("business-types") }
func (f *fakeExec) Categories(context.Context) error    { return f.record("categories") }
func (f *fakeExec) Category(_ context.Context, id string) error {
	return f.record("category " + id)
}
func (f *fakeExec) AddCategory(context.Context) error { return f.record("add-category") }
func (f *fakeExec) UpdateCategory(_ context.Context, id string) error {
	return f.record("update-category " + id)
}
func (f *fakeExec) Devices(context.Context) error { return f.record("devices") }

func run(exec *fakeExec, lines ...string) string {
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	runREPL(context.Background(), exec, func() string { return "" }, in, &out)
	return out.String()
}

func TestRunREPL_Dispatch(t *testing.T) {
	exec := &fakeExec{}

	out := run(exec,
		"help",
		"login",
		"help",
		"",
		"me",
		"business",
		"business-types",
		"categories",
		"category 42",
		"add-category",
		"update-category 42",
		"devices",
		"status",
		"logout",
		"foobar",
		"exit",
		"me",
	)

	assert.Equal(t, []string{
		"login", "me", "business", "business-types", "categories", "category 42",
		"add-category", "update-category 42", "devices", "status", "logout",
	}, exec.calls)
	assert.Contains(t, out, helpSignedOut)
	assert.Contains(t, out, helpSignedIn)
	assert.Contains(t, out, "Unknown command: foobar")
	assert.Contains(t, out, "Bye!")
	assert.Equal(t, 16, exec.checks)
}

func TestRunREPL_AuthCommands(t *testing.T) {
	exec := &fakeExec{}

	run(exec, "register", "create-business", "verify", "resend-otp")

	assert.Equal(t, []string{"register", "create-business", "verify", "resend-otp"}, exec.calls)
}

func TestRunREPL_UsageWithoutID(t *testing.T) {
	exec := &fakeExec{}

	out := run(exec, "category", "update-category")

	assert.Empty(t, exec.calls)
	assert.Contains(t, out, "Usage: category <id>")
	assert.Contains(t, out, "Usage: update-category <id>")
}

func TestRunREPL_ErrorsAreReportedAndLoopContinues(t *testing.T) {
	exec := &fakeExec{failWith: &client.APIError{StatusCode: 404, Message: "Category not found"}}

	out := run(exec, "category x", "me")

	assert.Equal(t, []string{"category x", "me"}, exec.calls)
	assert.Equal(t, 2, strings.Count(out, "Error: Category not found"))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&client.RefreshError{Err: errors.New("expired")}, "Session expired, please log in again."},
		{fmt.Errorf("%w: dial tcp: refused", client.ErrUnavailable), "Server unavailable, check your connection and try again."},
		{fmt.Errorf("login error: %w", &client.APIError{StatusCode: 401, Message: "Invalid credentials"}), "Invalid credentials"},
		{errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, describe(tt.err))
	}
}
