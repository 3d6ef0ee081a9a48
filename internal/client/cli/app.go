package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/tillapos/internal/client/client"
	"github.com/dmitrijs2005/tillapos/internal/client/config"
	"github.com/dmitrijs2005/tillapos/internal/client/credentials"
	"github.com/dmitrijs2005/tillapos/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tillapos/internal/client/services"
	"github.com/dmitrijs2005/tillapos/internal/client/session"
	"github.com/dmitrijs2005/tillapos/internal/logging"
)

// Services groups everything the commands talk to.
type Services struct {
	Auth          services.AuthService
	Users         services.UserService
	Businesses    services.BusinessService
	BusinessTypes services.BusinessTypeService
	Categories    services.CategoryService
	Devices       services.DeviceService
	// Tokens reads the stored credential for the status command.
	Tokens credentials.Store
}

type App struct {
	svc         Services
	state       *session.State
	invalidated <-chan struct{}
	logger      logging.Logger

	reader *bufio.Reader
	out    io.Writer

	// email awaiting a one-time code
	pendingEmail string

	db *sql.DB
}

func newApp(svc Services, state *session.State, logger logging.Logger, in io.Reader, out io.Writer) *App {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &App{
		svc:         svc,
		state:       state,
		invalidated: state.Subscribe(),
		logger:      logger,
		reader:      bufio.NewReader(in),
		out:         out,
	}
}

// NewApp opens the local database, builds the authenticated client and the
// services on top of it and restores a stored session.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger, version string, in io.Reader, out io.Writer) (*App, error) {
	db, err := client.InitDatabase(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	store := credentials.NewSQLiteStore(db)
	state := session.NewState()

	api := client.NewHTTPClient(cfg.BaseURL, store,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(logger),
		client.WithRateLimit(cfg.RateLimit),
		client.WithRefreshMode(client.RefreshMode(cfg.RefreshMode)),
		client.WithNotifier(state),
	)

	device := services.NewHostDevice(metadata.NewSQLiteRepository(db), version)

	svc := Services{
		Auth:          services.NewAuthService(api, store, state, device, logger),
		Users:         services.NewUserService(api, state, api.BaseURL()),
		Businesses:    services.NewBusinessService(api, state, api.BaseURL()),
		BusinessTypes: services.NewBusinessTypeService(api, state),
		Categories:    services.NewCategoryService(api, state, api.BaseURL()),
		Devices:       services.NewDeviceService(api),
		Tokens:        store,
	}

	app := newApp(svc, state, logger, in, out)
	app.db = db

	restored, err := svc.Auth.Restore(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	if restored {
		logger.Info(ctx, "restored stored session")
	}

	return app, nil
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to TillaPos CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.state.Authenticated()
}

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return "(signed in)"
	}
	if a.pendingEmail != "" {
		return fmt.Sprintf("(verify %s)", a.pendingEmail)
	}
	return ""
}

// checkSession reports an invalidation that happened since the last prompt.
func (a *App) checkSession() {
	select {
	case <-a.invalidated:
		fmt.Fprintln(a.out, "Your session has expired. Please log in again.")
	default:
	}
}

// drainSession swallows the signal of a user-initiated logout.
func (a *App) drainSession() {
	select {
	case <-a.invalidated:
	default:
	}
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	var (
		apiErr     *client.APIError
		refreshErr *client.RefreshError
	)

	switch {
	case errors.As(err, &refreshErr):
		return "Session expired, please log in again."
	case errors.Is(err, client.ErrUnavailable):
		return "Server unavailable, check your connection and try again."
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}
