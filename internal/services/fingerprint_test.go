package services

import (
	"errors"
	"testing"
)

func TestFingerprint_Deterministic(t *testing.T) {
	g := NewFingerprintGenerator(testDevice("hw-123"), FingerprintDeviceID)
	a, info, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, _, _ := g.Generate()
	if a != b {
		t.Fatalf("fingerprint not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a == "hw-123" {
		t.Error("fingerprint must not be the raw hardware id")
	}
	if info.DeviceModel != "Pixel 8" {
		t.Errorf("device info not returned: %+v", info)
	}
}

func TestFingerprint_DeviceIDModeIgnoresUpdates(t *testing.T) {
	before := testDevice("hw-123")
	after := before
	after.OSVersion = "15"
	after.AppVersion = "2.0.0"

	a, _, _ := NewFingerprintGenerator(before, FingerprintDeviceID).Generate()
	b, _, _ := NewFingerprintGenerator(after, FingerprintDeviceID).Generate()
	if a != b {
		t.Error("device_id mode should survive OS and app updates")
	}

	c, _, _ := NewFingerprintGenerator(before, FingerprintComposite).Generate()
	d, _, _ := NewFingerprintGenerator(after, FingerprintComposite).Generate()
	if c == d {
		t.Error("composite mode should change when device properties change")
	}
	if a == c {
		t.Error("modes should produce different fingerprints")
	}
}

func TestFingerprint_DifferentDevices(t *testing.T) {
	a, _, _ := NewFingerprintGenerator(testDevice("hw-1"), FingerprintDeviceID).Generate()
	b, _, _ := NewFingerprintGenerator(testDevice("hw-2"), FingerprintDeviceID).Generate()
	if a == b {
		t.Error("different devices produced the same fingerprint")
	}
}

func TestFingerprint_Unavailable(t *testing.T) {
	_, _, err := NewFingerprintGenerator(failingDevice{}, FingerprintDeviceID).Generate()
	if !errors.Is(err, ErrFingerprintUnavailable) {
		t.Fatalf("expected ErrFingerprintUnavailable, got %v", err)
	}

	_, _, err = NewFingerprintGenerator(testDevice(""), FingerprintDeviceID).Generate()
	if !errors.Is(err, ErrFingerprintUnavailable) {
		t.Fatalf("expected ErrFingerprintUnavailable for empty device id, got %v", err)
	}
}

func TestFingerprint_UnknownModeFallsBack(t *testing.T) {
	g := NewFingerprintGenerator(testDevice("hw-1"), FingerprintMode("bogus"))
	if g.Mode() != FingerprintDeviceID {
		t.Errorf("expected device_id mode, got %s", g.Mode())
	}
}
