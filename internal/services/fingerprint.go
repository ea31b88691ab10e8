package services

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"github.com/AnshRaj112/wayfarer-backend/pkg/utils"
	"golang.org/x/crypto/blake2b"
)

// ErrFingerprintUnavailable is returned when any device property could not
// be read. No fallback fingerprint is ever produced.
var ErrFingerprintUnavailable = errors.New("device fingerprint unavailable")

// FingerprintMode selects which device properties feed the fingerprint.
type FingerprintMode string

const (
	// FingerprintDeviceID hashes only the hardware id, so OS and app updates
	// keep the fingerprint stable.
	FingerprintDeviceID FingerprintMode = "device_id"
	// FingerprintComposite hashes every device property.
	FingerprintComposite FingerprintMode = "composite"
)

// DeviceInfoSource reads the properties of the current device.
type DeviceInfoSource interface {
	DeviceInfo() (models.DeviceInfo, error)
}

// StaticDeviceInfo is device information handed over by the app shell.
type StaticDeviceInfo models.DeviceInfo

func (s StaticDeviceInfo) DeviceInfo() (models.DeviceInfo, error) {
	info := models.DeviceInfo(s)
	if strings.TrimSpace(info.DeviceID) == "" {
		return models.DeviceInfo{}, errors.New("device id not provided")
	}
	return info, nil
}

// HostDeviceInfo reads the hardware UUID, model and OS version of the host.
type HostDeviceInfo struct {
	AppVersion  string
	BuildNumber string
}

func (h HostDeviceInfo) DeviceInfo() (models.DeviceInfo, error) {
	id, err := utils.HardwareID()
	if err != nil {
		return models.DeviceInfo{}, fmt.Errorf("hardware id: %w", err)
	}
	model, err := utils.HostModel()
	if err != nil {
		return models.DeviceInfo{}, fmt.Errorf("device model: %w", err)
	}
	osVersion, err := utils.HostOSVersion()
	if err != nil {
		return models.DeviceInfo{}, fmt.Errorf("os version: %w", err)
	}
	return models.DeviceInfo{
		DeviceID:    id,
		DeviceModel: model,
		OSVersion:   osVersion,
		AppVersion:  h.AppVersion,
		BuildNumber: h.BuildNumber,
	}, nil
}

// FingerprintGenerator derives the device fingerprint used as the key of
// the device_mappings collection.
type FingerprintGenerator struct {
	source DeviceInfoSource
	mode   FingerprintMode
}

func NewFingerprintGenerator(source DeviceInfoSource, mode FingerprintMode) *FingerprintGenerator {
	if mode != FingerprintComposite {
		mode = FingerprintDeviceID
	}
	return &FingerprintGenerator{source: source, mode: mode}
}

// Generate returns the hex BLAKE2b-256 fingerprint of the device and the
// device info it was computed from.
func (g *FingerprintGenerator) Generate() (string, models.DeviceInfo, error) {
	info, err := g.source.DeviceInfo()
	if err != nil {
		return "", models.DeviceInfo{}, fmt.Errorf("%w: %v", ErrFingerprintUnavailable, err)
	}
	if strings.TrimSpace(info.DeviceID) == "" {
		return "", models.DeviceInfo{}, fmt.Errorf("%w: empty device id", ErrFingerprintUnavailable)
	}

	var input string
	switch g.mode {
	case FingerprintComposite:
		input = strings.Join([]string{
			info.DeviceID, info.DeviceModel, info.OSVersion, info.AppVersion, info.BuildNumber,
		}, "\x00")
	default:
		input = info.DeviceID
	}

	sum := blake2b.Sum256([]byte(input))
	return hex.EncodeToString(sum[:]), info, nil
}

// Mode returns the configured fingerprint mode.
func (g *FingerprintGenerator) Mode() FingerprintMode {
	return g.mode
}
