package utils

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// HardwareID returns the hardware UUID of the host. Mobile platforms cannot
// read it from Go; the app shell must hand its vendor id over instead.
func HardwareID() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return macOSUUID()
	case "linux":
		return linuxUUID()
	case "windows":
		return windowsUUID()
	case "android":
		return "", errors.New("android: ANDROID_ID must be provided by the app")
	case "ios":
		return "", errors.New("ios: identifierForVendor must be provided by the app")
	default:
		return "", errors.New("unsupported platform: " + runtime.GOOS)
	}
}

// HostModel returns a best-effort hardware model name.
func HostModel() (string, error) {
	if runtime.GOOS == "linux" {
		if b, err := os.ReadFile("/sys/class/dmi/id/product_name"); err == nil {
			if s := strings.TrimSpace(string(b)); s != "" {
				return s, nil
			}
		}
	}
	return runtime.GOOS + "/" + runtime.GOARCH, nil
}

// HostOSVersion returns the kernel/OS release of the host.
func HostOSVersion() (string, error) {
	switch runtime.GOOS {
	case "linux":
		b, err := os.ReadFile("/proc/sys/kernel/osrelease")
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	case "darwin":
		out, err := exec.Command("sw_vers", "-productVersion").Output()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	default:
		return runtime.GOOS, nil
	}
}

func macOSUUID() (string, error) {
	out, err := exec.Command("ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "IOPlatformUUID") {
			parts := strings.Split(line, "\"")
			if len(parts) >= 4 {
				return parts[3], nil
			}
		}
	}
	return "", errors.New("no IOPlatformUUID found")
}

func linuxUUID() (string, error) {
	for _, path := range []string{"/sys/class/dmi/id/product_uuid", "/etc/machine-id"} {
		if b, err := os.ReadFile(path); err == nil {
			if id := strings.TrimSpace(string(b)); id != "" {
				return id, nil
			}
		}
	}
	// Single-board machines expose a serial in cpuinfo
	if cpuinfo, err := os.ReadFile("/proc/cpuinfo"); err == nil {
		for _, line := range strings.Split(string(cpuinfo), "\n") {
			if strings.HasPrefix(line, "Serial") {
				parts := strings.Split(line, ":")
				if len(parts) == 2 {
					if id := strings.TrimSpace(parts[1]); id != "" {
						return id, nil
					}
				}
			}
		}
	}
	return "", errors.New("no hardware UUID found on Linux")
}

func windowsUUID() (string, error) {
	for _, args := range [][]string{{"csproduct", "get", "UUID"}, {"cpu", "get", "ProcessorId"}} {
		out, err := exec.Command("wmic", args...).Output()
		if err != nil {
			continue
		}
		header := args[len(args)-1]
		for _, line := range bytes.Split(out, []byte("\n")) {
			str := strings.TrimSpace(string(line))
			if str != "" && !strings.EqualFold(str, header) {
				return str, nil
			}
		}
	}
	return "", errors.New("no hardware UUID found on Windows")
}
