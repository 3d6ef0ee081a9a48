package apitest

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/tillapos/internal/client/models"
)

const maxFormMemory = 10 << 20

type category struct {
	owner string
	models.Category
}

type signUpRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" validate:"required"`
}

type signInRequest struct {
	Email    string             `json:"email" validate:"required,email"`
	Password string             `json:"password" validate:"required"`
	Device   *models.DeviceInfo `json:"device"`
	Location *models.Location   `json:"location"`
}

type otpVerifyRequest struct {
	Code     string             `json:"code" validate:"required,len=6"`
	Email    string             `json:"email" validate:"required,email"`
	Device   *models.DeviceInfo `json:"device"`
	Location *models.Location   `json:"location"`
}

type resendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

var businessTypes = []models.BusinessTypeOption{
	{Label: "Restaurant", Value: "restaurant"},
	{Label: "Retail", Value: "retail"},
	{Label: "Cafe", Value: "cafe"},
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	handle := func(route string, h http.HandlerFunc) {
		mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
			s.record(route, r)
			h(w, r)
		})
	}

	handle(RouteSignUp, s.signUp)
	handle(RouteSignIn, s.signIn)
	handle(RouteOTPVerify, s.verifyOTP)
	handle(RouteResendOTP, s.resendOTP)
	handle(RouteRefresh, s.refresh)
	handle(RouteLogout, s.requireAuth(s.logout))
	handle(RouteCreateBusiness, s.createBusiness)
	handle(RouteMe, s.requireAuth(s.me))
	handle(RouteMyBusiness, s.requireAuth(s.myBusiness))
	handle(RouteBusinessTypes, s.requireAuth(s.businessTypes))
	handle(RouteCategories, s.requireAuth(s.listCategories))
	handle(RouteCategory, s.requireAuth(s.getCategory))
	handle(RouteCreateCategory, s.requireAuth(s.createCategory))
	handle(RouteUpdateCategory, s.requireAuth(s.updateCategory))
	handle(RouteDevices, s.requireAuth(s.listDevices))

	return s.logRequests(mux)
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[signUpRequest](w, r)
	if !ok {
		return
	}

	u, err := s.AddUser(req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, http.StatusConflict, "User already exists")
		return
	}

	s.mu.Lock()
	a := s.accounts[req.Email]
	a.user.Phone = req.Phone
	u = a.user
	s.mu.Unlock()

	writeData(w, r, http.StatusCreated, u)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[signInRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	a, found := s.accounts[req.Email]
	s.mu.Unlock()

	if !found || bcrypt.CompareHashAndPassword(a.passwordHash, []byte(req.Password)) != nil {
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.requireOTP {
		s.otpCodes[req.Email] = newOTPCode()
		writeData(w, r, http.StatusOK, map[string]bool{"needsOtp": true})
		return
	}

	s.signInLocked(w, r, a, req.Device, req.Location)
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[otpVerifyRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.accounts[req.Email]
	code, pending := s.otpCodes[req.Email]
	if !found || !pending || code != req.Code {
		writeError(w, r, http.StatusBadRequest, "Invalid OTP code")
		return
	}
	delete(s.otpCodes, req.Email)

	s.signInLocked(w, r, a, req.Device, req.Location)
}

// signInLocked registers the device and answers with a fresh credential.
func (s *Server) signInLocked(w http.ResponseWriter, r *http.Request, a *account, device *models.DeviceInfo, loc *models.Location) {
	deviceID := ""
	if device != nil {
		deviceID = device.DeviceID
		s.trackDeviceLocked(a.user.ID, *device, loc)
	}

	cred, err := s.issueLocked(a.user.ID, deviceID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, r, http.StatusOK, cred)
}

func (s *Server) trackDeviceLocked(userID string, info models.DeviceInfo, loc *models.Location) {
	now := time.Now().UTC()
	devices := s.devices[userID]

	idx := slices.IndexFunc(devices, func(d models.Device) bool { return d.DeviceID == info.DeviceID })
	if idx < 0 {
		devices = append(devices, models.Device{
			ID:            uuid.NewString(),
			Name:          info.DeviceName,
			Type:          info.DeviceType,
			Brand:         info.Brand,
			Model:         info.Model,
			DeviceID:      info.DeviceID,
			AppVersion:    info.AppVersion,
			IsEmulator:    info.IsEmulator,
			IsTablet:      info.IsTablet,
			SystemName:    info.SystemName,
			SystemVersion: info.SystemVersion,
			UserAgent:     info.UserAgent,
			CreatedAt:     now,
		})
		idx = len(devices) - 1
	}

	d := &devices[idx]
	d.UpdatedAt = now
	d.LastActivityAt = &now
	if loc != nil {
		d.Locations = append(d.Locations, models.DeviceLocation{
			ID:               uuid.NewString(),
			Country:          loc.Country,
			Region:           loc.Region,
			City:             loc.City,
			PostalCode:       loc.PostalCode,
			CountryCode:      loc.CountryCode,
			FormattedAddress: loc.FormattedAddress,
			Latitude:         fmt.Sprintf("%f", loc.Latitude),
			Longitude:        fmt.Sprintf("%f", loc.Longitude),
			CreatedAt:        now,
		})
	}

	s.devices[userID] = devices
}

func (s *Server) resendOTP(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[resendOTPRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.accounts[req.Email]; !found {
		writeError(w, r, http.StatusNotFound, "User not found")
		return
	}
	s.otpCodes[req.Email] = newOTPCode()

	writeData(w, r, http.StatusOK, map[string]any{"sent": true, "message": "OTP sent to " + req.Email})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[refreshRequest](w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	status, delay := s.refreshStatus, s.refreshDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if status != 0 {
		writeError(w, r, status, "Refresh rejected")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rt, found := s.refreshTokens[req.RefreshToken]
	if !found {
		writeError(w, r, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(s.refreshTokens, req.RefreshToken)

	if rt.expires.Before(time.Now()) {
		writeError(w, r, http.StatusUnauthorized, "Refresh token expired")
		return
	}

	cred, err := s.issueLocked(rt.userID, rt.deviceID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, r, http.StatusOK, cred)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.logoutStatus != 0 {
		writeError(w, r, s.logoutStatus, "Logout failed")
		return
	}

	for token, userID := range s.liveAccess {
		if userID == p.userID {
			delete(s.liveAccess, token)
		}
	}
	for token, rt := range s.refreshTokens {
		if rt.userID == p.userID {
			delete(s.refreshTokens, token)
		}
	}

	writeData(w, r, http.StatusOK, nil)
}

func (s *Server) createBusiness(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, r, http.StatusBadRequest, "Expected multipart form")
		return
	}

	var missing []string
	for _, f := range []string{"name", "slug", "currency", "email"} {
		if r.FormValue(f) == "" {
			missing = append(missing, f+" should not be empty")
		}
	}
	if len(missing) > 0 {
		writeError(w, r, http.StatusBadRequest, missing)
		return
	}

	image, err := uploadedImage(r, "business")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	email := r.FormValue("email")

	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.accounts[email]
	if !found {
		writeError(w, r, http.StatusNotFound, "User not found")
		return
	}

	now := time.Now().UTC()
	b := models.Business{
		ID:        uuid.NewString(),
		Name:      r.FormValue("name"),
		Currency:  r.FormValue("currency"),
		Slug:      r.FormValue("slug"),
		Image:     image,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.businesses[a.user.ID] = b
	a.user.Business = &b
	// new shopkeepers confirm their email before the first sign-in
	s.otpCodes[email] = newOTPCode()

	writeData(w, r, http.StatusCreated, b)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.user.ID == p.userID {
			writeData(w, r, http.StatusOK, a.user)
			return
		}
	}
	writeError(w, r, http.StatusNotFound, "User not found")
}

func (s *Server) myBusiness(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	s.mu.Lock()
	b, found := s.businesses[p.userID]
	s.mu.Unlock()

	if !found {
		writeError(w, r, http.StatusNotFound, "Business not found")
		return
	}
	writeData(w, r, http.StatusOK, b)
}

func (s *Server) businessTypes(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, businessTypes)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Category, 0)
	for _, c := range s.categories {
		if c.owner == p.userID {
			out = append(out, c.Category)
		}
	}
	writeData(w, r, http.StatusOK, out)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.categoryIndexLocked(p.userID, r.PathValue("id"))
	if idx < 0 {
		writeError(w, r, http.StatusNotFound, "Category not found")
		return
	}
	writeData(w, r, http.StatusOK, s.categories[idx].Category)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, r, http.StatusBadRequest, "Expected multipart form")
		return
	}
	name := r.FormValue("name")
	if name == "" {
		writeError(w, r, http.StatusBadRequest, []string{"name should not be empty"})
		return
	}
	image, err := uploadedImage(r, "categories")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	c := models.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Image:     image,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if b, ok := s.businesses[p.userID]; ok {
		c.Business = &b
	}
	s.categories = append(s.categories, category{owner: p.userID, Category: c})

	writeData(w, r, http.StatusCreated, c)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, r, http.StatusBadRequest, "Expected multipart form")
		return
	}
	image, err := uploadedImage(r, "categories")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.categoryIndexLocked(p.userID, r.PathValue("id"))
	if idx < 0 {
		writeError(w, r, http.StatusNotFound, "Category not found")
		return
	}

	c := &s.categories[idx].Category
	if name := r.FormValue("name"); name != "" {
		c.Name = name
	}
	if image != "" {
		c.Image = image
	}
	c.UpdatedAt = time.Now().UTC()

	writeData(w, r, http.StatusOK, *c)
}

func (s *Server) categoryIndexLocked(owner, id string) int {
	return slices.IndexFunc(s.categories, func(c category) bool {
		return c.owner == owner && c.ID == id
	})
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	out := models.Devices{ActiveDevices: []models.Device{}, InactiveDevices: []models.Device{}}
	for _, d := range s.devices[p.userID] {
		if d.DeviceID != "" && d.DeviceID == p.deviceID {
			d.IsCurrentDevice = true
			current := d
			out.CurrentDevice = &current
			continue
		}
		if s.deviceActiveLocked(p.userID, d.DeviceID) {
			out.ActiveDevices = append(out.ActiveDevices, d)
		} else {
			out.InactiveDevices = append(out.InactiveDevices, d)
		}
	}
	writeData(w, r, http.StatusOK, out)
}

// deviceActiveLocked reports whether deviceID still holds a refresh token.
func (s *Server) deviceActiveLocked(userID, deviceID string) bool {
	for _, rt := range s.refreshTokens {
		if rt.userID == userID && rt.deviceID == deviceID {
			return true
		}
	}
	return false
}

// uploadedImage returns the asset URL of the optional "image" part.
func uploadedImage(r *http.Request, folder string) (string, error) {
	_, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("invalid image: %w", err)
	}
	return assetURL(folder, header), nil
}

func assetURL(folder string, header *multipart.FileHeader) string {
	return fmt.Sprintf("%s/%s/%s/%s", AssetHost, folder, uuid.NewString(), header.Filename)
}

func newOTPCode() string {
	return fmt.Sprintf("%06d", rand.IntN(1_000_000))
}
