package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/devices"
	"github.com/go-rod/rod/lib/proto"
)

// Named device profiles usable in scenario declarations. Desktop is the
// default and means "no emulation, fixed viewport".
const (
	DeviceDesktop = "desktop"
	DeviceTablet  = "tablet"
	DeviceMobile  = "mobile"
)

const (
	desktopWidth  = 1366
	desktopHeight = 900
)

// applyDevice configures viewport/device emulation on a fresh page before
// navigation. Responsive variants are separate scenario runs, so a page is
// only ever configured once.
func applyDevice(page *rod.Page, name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DeviceDesktop:
		return proto.EmulationSetDeviceMetricsOverride{
			Width:             desktopWidth,
			Height:            desktopHeight,
			DeviceScaleFactor: 1,
			Mobile:            false,
		}.Call(page)
	case DeviceTablet:
		return page.Emulate(devices.IPad)
	case DeviceMobile:
		return page.Emulate(devices.IPhoneX)
	}
	return fmt.Errorf("browser: unknown device profile %q", name)
}

// KnownDevice reports whether name is a recognized device profile.
func KnownDevice(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DeviceDesktop, DeviceTablet, DeviceMobile:
		return true
	}
	return false
}
