package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// ErrSettingsCheckFailed is returned by Device.CheckLocationSettings when the
// device is configured to fail its checks.
var ErrSettingsCheckFailed = errors.New("simulated settings check failure")

// DeviceState is what the simulated device reports.
type DeviceState struct {
	PermissionGranted bool
	Settings          domain.SettingsCode
	StatusCode        int
	Resolution        string
	CheckDelay        time.Duration
	FailChecks        bool
}

// DefaultDeviceState is a device with permission granted and settings satisfied.
func DefaultDeviceState() DeviceState {
	return DeviceState{PermissionGranted: true, Settings: domain.SettingsSatisfied}
}

// Device implements ports.PermissionChecker and ports.SettingsChecker.
type Device struct {
	mu     sync.RWMutex
	state  DeviceState
	logger ports.Logger
}

// NewDevice creates a simulated device.
func NewDevice(state DeviceState, logger ports.Logger) *Device {
	return &Device{state: state, logger: logger}
}

// Update replaces the device state.
func (d *Device) Update(state DeviceState) {
	d.mu.Lock()
	prev := d.state
	d.state = state
	d.mu.Unlock()

	if prev != state {
		d.logger.Info("sim: device updated",
			ports.Bool("permission_granted", state.PermissionGranted),
			ports.String("settings", state.Settings.String()),
			ports.Bool("fail_checks", state.FailChecks))
	}
}

// State returns the current device state.
func (d *Device) State() DeviceState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// LocationPermissionGranted reports the configured permission.
func (d *Device) LocationPermissionGranted(domain.RequestProfile) bool {
	return d.State().PermissionGranted
}

// CheckLocationSettings answers after CheckDelay with the configured status.
func (d *Device) CheckLocationSettings(ctx context.Context, profile domain.RequestProfile) (domain.SettingsStatus, error) {
	st := d.State()
	if st.CheckDelay > 0 {
		t := time.NewTimer(st.CheckDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return domain.SettingsStatus{}, ctx.Err()
		}
	}
	if st.FailChecks {
		return domain.SettingsStatus{}, ErrSettingsCheckFailed
	}

	d.logger.Debug("sim: settings checked",
		ports.String("accuracy", profile.Accuracy),
		ports.String("settings", st.Settings.String()))
	return domain.SettingsStatus{
		Code:       st.Settings,
		StatusCode: st.StatusCode,
		Resolution: st.Resolution,
	}, nil
}
