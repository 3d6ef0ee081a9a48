package services

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/tillapos/internal/client/models"
	"github.com/dmitrijs2005/tillapos/internal/client/repositories/metadata"
)

// KeyDeviceID is the metadata key of the per-installation device id.
const KeyDeviceID = "deviceId"

// DeviceDescriber produces the device descriptor sent with sign-in and OTP
// verification.
type DeviceDescriber interface {
	Describe(ctx context.Context) (models.DeviceInfo, error)
}

type hostDevice struct {
	repo       metadata.Repository
	appVersion string
}

// NewHostDevice describes the machine the CLI runs on. The device id is
// generated once and kept in repo.
func NewHostDevice(repo metadata.Repository, appVersion string) DeviceDescriber {
	return &hostDevice{repo: repo, appVersion: appVersion}
}

func (h *hostDevice) Describe(ctx context.Context) (models.DeviceInfo, error) {
	id, err := h.deviceID(ctx)
	if err != nil {
		return models.DeviceInfo{}, err
	}

	name, err := os.Hostname()
	if err != nil {
		name = "unknown"
	}

	return models.DeviceInfo{
		DeviceID:      id,
		DeviceName:    name,
		DeviceType:    "desktop",
		Brand:         runtime.GOOS,
		Model:         runtime.GOARCH,
		SystemName:    runtime.GOOS,
		SystemVersion: runtime.Version(),
		AppVersion:    h.appVersion,
		UserAgent:     fmt.Sprintf("tillapos-cli/%s (%s; %s)", h.appVersion, runtime.GOOS, runtime.GOARCH),
	}, nil
}

func (h *hostDevice) deviceID(ctx context.Context) (string, error) {
	raw, err := h.repo.Get(ctx, KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}
	if len(raw) > 0 {
		return string(raw), nil
	}

	id := uuid.NewString()
	if err := h.repo.Set(ctx, KeyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to save device id: %w", err)
	}
	return id, nil
}
