package models

import "time"

// DeviceInfo describes the device a sign-in originates from.
type DeviceInfo struct {
	DeviceID      string `json:"deviceId"`
	DeviceName    string `json:"deviceName"`
	DeviceType    string `json:"deviceType"`
	Brand         string `json:"brand"`
	Model         string `json:"model"`
	SystemName    string `json:"systemName"`
	SystemVersion string `json:"systemVersion"`
	AppVersion    string `json:"appVersion"`
	IsEmulator    bool   `json:"isEmulator"`
	IsTablet      bool   `json:"isTablet"`
	UserAgent     string `json:"userAgent"`
}

// Location is an optional sign-in location. Nil is sent as JSON null.
type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Country          string  `json:"country,omitempty"`
	CountryCode      string  `json:"countryCode,omitempty"`
	Region           string  `json:"region,omitempty"`
	City             string  `json:"city,omitempty"`
	PostalCode       string  `json:"postalCode,omitempty"`
	FormattedAddress string  `json:"formattedAddress,omitempty"`
}

type DeviceLocation struct {
	ID               string    `json:"id"`
	Country          string    `json:"country"`
	Region           string    `json:"region"`
	City             string    `json:"city"`
	PostalCode       string    `json:"postalCode"`
	CountryCode      string    `json:"countryCode"`
	FormattedAddress string    `json:"formattedAddress"`
	Latitude         string    `json:"latitude"`
	Longitude        string    `json:"longitude"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Device is a session device as reported by /session/devices.
type Device struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Type            string           `json:"type"`
	Brand           string           `json:"brand"`
	Model           string           `json:"model"`
	DeviceID        string           `json:"deviceId"`
	AppVersion      string           `json:"appVersion"`
	IsEmulator      bool             `json:"isEmulator"`
	IsTablet        bool             `json:"isTablet"`
	SystemName      string           `json:"systemName"`
	SystemVersion   string           `json:"systemVersion"`
	UserAgent       string           `json:"userAgent"`
	Trusted         bool             `json:"trusted"`
	IsCurrentDevice bool             `json:"isCurrentDevice"`
	LastActivityAt  *time.Time       `json:"lastActivityAt"`
	Locations       []DeviceLocation `json:"locations"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type Devices struct {
	CurrentDevice   *Device  `json:"currentDevice"`
	ActiveDevices   []Device `json:"activeDevices"`
	InactiveDevices []Device `json:"inactiveDevices"`
}
