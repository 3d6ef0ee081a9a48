package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL needs. App satisfies it; tests
// can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	checkSession()

	Login(ctx context.Context) error
	VerifyOTP(ctx context.Context) error
	ResendOTP(ctx context.Context) error
	Register(ctx context.Context) error
	CreateBusiness(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error

	Me(ctx context.Context) error
	Business(ctx context.Context) error
	BusinessTypes(ctx context.Context) error
	Categories(ctx context.Context) error
	Category(ctx context.Context, id string) error
	AddCategory(ctx context.Context) error
	UpdateCategory(ctx context.Context, id string) error
	Devices(ctx context.Context) error
}

const (
	helpSignedOut = "Available commands: login, verify, resend-otp, register, create-business, business-types, status, exit"
	helpSignedIn  = "Available commands: me, business, business-types, categories, category <id>, add-category, update-category <id>, devices, status, logout, exit"
)

// runREPL reads commands from reader and dispatches them to a until EOF or
// "exit". Command errors are printed and never end the loop. Commands prompt
// for their own input on the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		a.checkSession()

		fmt.Fprintf(out, "tillapos %s> ", statusFn())
		line, readErr := reader.ReadString('\n')
		if readErr != nil && line == "" {
			fmt.Fprintln(out)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, helpSignedIn)
			} else {
				fmt.Fprintln(out, helpSignedOut)
			}

		case "login":
			err = a.Login(ctx)
		case "verify":
			err = a.VerifyOTP(ctx)
		case "resend-otp":
			err = a.ResendOTP(ctx)
		case "register":
			err = a.Register(ctx)
		case "create-business":
			err = a.CreateBusiness(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "status":
			err = a.Status(ctx)

		case "me":
			err = a.Me(ctx)
		case "business":
			err = a.Business(ctx)
		case "business-types":
			err = a.BusinessTypes(ctx)
		case "categories":
			err = a.Categories(ctx)
		case "add-category":
			err = a.AddCategory(ctx)

		case "category", "update-category":
			if len(args) == 0 {
				fmt.Fprintf(out, "Usage: %s <id>\n", cmd)
				continue
			}
			if cmd == "category" {
				err = a.Category(ctx, args[0])
			} else {
				err = a.UpdateCategory(ctx, args[0])
			}

		case "devices":
			err = a.Devices(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(out, "Error:", describe(err))
		}
	}
}
