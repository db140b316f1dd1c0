package system

import (
	"context"
	"fmt"
	"strings"
)

// ServiceManager controls a supervised service.
type ServiceManager interface {
	IsRunning(ctx context.Context) (bool, error)
	Restart(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// SystemdServiceManager manages a systemd unit through systemctl.
type SystemdServiceManager struct {
	unitName string
	runner   Runner
}

// NewSystemdServiceManager accepts either a service name or a full unit name.
func NewSystemdServiceManager(unit string, runner Runner) *SystemdServiceManager {
	if unit == "" {
		unit = "nginx"
	}
	if !strings.HasSuffix(unit, ".service") {
		unit = unit + ".service"
	}
	return &SystemdServiceManager{unitName: unit, runner: runner}
}

func (m *SystemdServiceManager) IsRunning(ctx context.Context) (bool, error) {
	if _, err := m.runner.Run(ctx, "systemctl", "is-active", "--quiet", m.unitName); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// non-zero exit means not active
		return false, nil
	}
	return true, nil
}

func (m *SystemdServiceManager) Restart(ctx context.Context) error {
	return m.systemctl(ctx, "restart")
}

func (m *SystemdServiceManager) Start(ctx context.Context) error {
	return m.systemctl(ctx, "start")
}

func (m *SystemdServiceManager) Stop(ctx context.Context) error {
	return m.systemctl(ctx, "stop")
}

func (m *SystemdServiceManager) systemctl(ctx context.Context, action string) error {
	if _, err := m.runner.Run(ctx, "systemctl", action, m.unitName); err != nil {
		if ExitCode(err) == 5 { // systemd: unit not found
			return fmt.Errorf("failed to %s %s: unit not found", action, m.unitName)
		}
		return fmt.Errorf("failed to %s %s: %w", action, m.unitName, err)
	}
	return nil
}

func (m *SystemdServiceManager) String() string {
	return fmt.Sprintf("systemd unit %s", m.unitName)
}
