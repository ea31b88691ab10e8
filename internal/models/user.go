package models

import (
	"time"
)

// DeviceInfo holds the device properties a fingerprint is derived from.
type DeviceInfo struct {
	DeviceID    string `bson:"deviceId,omitempty" json:"-"`
	DeviceModel string `bson:"deviceModel" json:"device_model"`
	OSVersion   string `bson:"osVersion" json:"os_version"`
	AppVersion  string `bson:"appVersion" json:"app_version"`
	BuildNumber string `bson:"buildNumber" json:"build_number"`
}

// DeviceMapping is stored in device_mappings/{fingerprint} and points a
// device fingerprint at the anonymous identity minted for it.
type DeviceMapping struct {
	Fingerprint string    `bson:"_id" json:"-"`
	UserID      string    `bson:"userId" json:"user_id"`
	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updated_at"`
}

// UserProfile is the users/{identity} document (anonymous identity, no
// personal data beyond what the app shell reports about the install).
type UserProfile struct {
	UserID      string     `bson:"userId" json:"user_id"`
	DeviceInfo  DeviceInfo `bson:"deviceInfo" json:"device_info"`
	AppVersion  string     `bson:"appVersion" json:"app_version"`
	Platform    string     `bson:"platform" json:"platform"`
	CreatedAt   time.Time  `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updated_at"`
	LastLoginAt time.Time  `bson:"lastLoginAt" json:"last_login_at"`
}
