// Package services contains the client's operations over the TillaPos API:
// authentication and the resource queries built on the authenticated client.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/tillapos/internal/client/client"
	"github.com/dmitrijs2005/tillapos/internal/client/credentials"
	"github.com/dmitrijs2005/tillapos/internal/client/models"
	"github.com/dmitrijs2005/tillapos/internal/client/session"
	"github.com/dmitrijs2005/tillapos/internal/logging"
	"github.com/dmitrijs2005/tillapos/internal/netx"
)

const (
	PathSignIn         = "/auth/sign-in"
	PathSignUp         = "/auth/signup"
	PathOTPVerify      = "/auth/otp-verify"
	PathResendOTP      = "/auth/resend-otp"
	PathCreateBusiness = "/auth/create-business"
	PathLogout         = "/auth/logout"
)

var ErrNoAccessToken = errors.New("response carries no access token")

type LoginCredentials struct {
	Email    string
	Password string
}

type RegisterCredentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type CreateBusinessRequest struct {
	Name           string
	Slug           string
	Currency       string
	Email          string
	ShopkeeperID   string
	BusinessTypeID string
}

type OTPResend struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

type LoginKind int

const (
	// LoginAuthenticated carries a Credential that has been persisted.
	LoginAuthenticated LoginKind = iota
	// LoginNeedsOTP means the server wants a one-time code first; nothing
	// was persisted.
	LoginNeedsOTP
)

// LoginResult is the outcome of a sign-in. Credential is set only for
// LoginAuthenticated.
type LoginResult struct {
	Kind       LoginKind
	Credential models.Credential
}

// AuthService is the authentication surface used by the CLI.
//
// Login and VerifyOTP persist the credential and update the session on
// success; Logout always clears local state whatever the server says.
type AuthService interface {
	Login(ctx context.Context, creds LoginCredentials, loc *models.Location) (LoginResult, error)
	Register(ctx context.Context, creds RegisterCredentials) (models.User, error)
	VerifyOTP(ctx context.Context, code, email string, loc *models.Location) (models.Credential, error)
	ResendOTP(ctx context.Context, email string) (OTPResend, error)
	CreateBusiness(ctx context.Context, req CreateBusinessRequest, image *models.FileData) (models.Business, error)
	Logout(ctx context.Context) error
	AccessToken(ctx context.Context) (string, error)
	Restore(ctx context.Context) (bool, error)
}

type authService struct {
	client client.Client
	store  credentials.Store
	holder session.Holder
	device DeviceDescriber
	logger logging.Logger
}

func NewAuthService(c client.Client, store credentials.Store, holder session.Holder, device DeviceDescriber, logger logging.Logger) AuthService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &authService{client: c, store: store, holder: holder, device: device, logger: logger}
}

type signInRequest struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Device   models.DeviceInfo `json:"device"`
	Location *models.Location  `json:"location"`
}

type signInResponse struct {
	models.Credential
	NeedsOTP bool `json:"needsOtp"`
}

type otpVerifyRequest struct {
	Code     string            `json:"code"`
	Email    string            `json:"email"`
	Device   models.DeviceInfo `json:"device"`
	Location *models.Location  `json:"location"`
}

func (a *authService) Login(ctx context.Context, creds LoginCredentials, loc *models.Location) (LoginResult, error) {
	device, err := a.device.Describe(ctx)
	if err != nil {
		return LoginResult{}, err
	}

	r, err := client.NewJSONRequest(http.MethodPost, PathSignIn, signInRequest{
		Email:    creds.Email,
		Password: creds.Password,
		Device:   device,
		Location: loc,
	})
	if err != nil {
		return LoginResult{}, err
	}

	var resp signInResponse
	if err := a.client.Do(ctx, r, &resp); err != nil {
		return LoginResult{}, fmt.Errorf("login error: %w", err)
	}

	if resp.NeedsOTP {
		a.logger.Info(ctx, "sign-in needs one-time code", "email", creds.Email)
		return LoginResult{Kind: LoginNeedsOTP}, nil
	}

	if err := a.establish(ctx, resp.Credential); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Kind: LoginAuthenticated, Credential: resp.Credential}, nil
}

func (a *authService) Register(ctx context.Context, creds RegisterCredentials) (models.User, error) {
	var user models.User

	r, err := client.NewJSONRequest(http.MethodPost, PathSignUp, creds)
	if err != nil {
		return user, err
	}
	if err := a.client.Do(ctx, r, &user); err != nil {
		return user, fmt.Errorf("register error: %w", err)
	}
	return user, nil
}

func (a *authService) VerifyOTP(ctx context.Context, code, email string, loc *models.Location) (models.Credential, error) {
	var cred models.Credential

	device, err := a.device.Describe(ctx)
	if err != nil {
		return cred, err
	}

	r, err := client.NewJSONRequest(http.MethodPost, PathOTPVerify, otpVerifyRequest{
		Code:     code,
		Email:    email,
		Device:   device,
		Location: loc,
	})
	if err != nil {
		return cred, err
	}

	if err := a.client.Do(ctx, r, &cred); err != nil {
		return cred, fmt.Errorf("otp verification error: %w", err)
	}
	if err := a.establish(ctx, cred); err != nil {
		return models.Credential{}, err
	}
	return cred, nil
}

func (a *authService) ResendOTP(ctx context.Context, email string) (OTPResend, error) {
	var out OTPResend

	r, err := client.NewJSONRequest(http.MethodPost, PathResendOTP, map[string]string{"email": email})
	if err != nil {
		return out, err
	}
	if err := a.client.Do(ctx, r, &out); err != nil {
		return out, fmt.Errorf("resend otp error: %w", err)
	}
	return out, nil
}

func (a *authService) CreateBusiness(ctx context.Context, req CreateBusinessRequest, image *models.FileData) (models.Business, error) {
	var b models.Business

	fields := []netx.Field{
		{Name: "name", Value: req.Name},
		{Name: "slug", Value: req.Slug},
		{Name: "currency", Value: req.Currency},
		{Name: "email", Value: req.Email},
		{Name: "shopkeeperId", Value: req.ShopkeeperID},
		{Name: "businessTypeId", Value: req.BusinessTypeID},
	}

	r, err := client.NewMultipartRequest(http.MethodPost, PathCreateBusiness, fields, imagePart(image))
	if err != nil {
		return b, err
	}
	if err := a.client.Do(ctx, r, &b); err != nil {
		return b, fmt.Errorf("create business error: %w", err)
	}
	return b, nil
}

// Logout tells the server best-effort, then clears local state regardless.
func (a *authService) Logout(ctx context.Context) error {
	if err := a.client.Do(ctx, client.NewRequest(http.MethodPost, PathLogout), nil); err != nil {
		a.logger.Warn(ctx, "remote logout failed", "error", err)
	}

	err := a.store.Clear(ctx)
	a.holder.OnSessionInvalidated(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

func (a *authService) AccessToken(ctx context.Context) (string, error) {
	return a.store.Get(ctx, credentials.KeyAccessToken)
}

// Restore seeds the session from a previously stored access token.
func (a *authService) Restore(ctx context.Context) (bool, error) {
	token, err := a.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}
	a.holder.SetToken(token)
	return true, nil
}

func (a *authService) establish(ctx context.Context, cred models.Credential) error {
	if cred.Empty() {
		return ErrNoAccessToken
	}
	if err := credentials.Save(ctx, a.store, cred); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	a.holder.SetToken(cred.AccessToken)
	return nil
}

func imagePart(f *models.FileData) *netx.FilePart {
	if f == nil {
		return nil
	}
	return &netx.FilePart{Field: "image", FileName: f.Name, ContentType: f.ContentType, Content: f.Content}
}
