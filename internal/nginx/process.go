package nginx

import (
	"context"
	"fmt"

	"github.com/gondar-software/domain-manager/internal/system"
)

// ProcessController makes the running proxy pick up configuration changes.
type ProcessController interface {
	Reload(ctx context.Context) error
	Restart(ctx context.Context) error
	Test(ctx context.Context, configPath string) error
}

// Process controls nginx through its binary and its systemd unit.
type Process struct {
	binary  string
	runner  system.Runner
	service system.ServiceManager
}

func NewProcess(binary string, runner system.Runner, service system.ServiceManager) *Process {
	if binary == "" {
		binary = "nginx"
	}
	return &Process{binary: binary, runner: runner, service: service}
}

func (p *Process) Reload(ctx context.Context) error {
	if _, err := p.runner.Run(ctx, p.binary, "-s", "reload"); err != nil {
		return fmt.Errorf("nginx reload failed: %w", err)
	}
	return nil
}

func (p *Process) Restart(ctx context.Context) error {
	return p.service.Restart(ctx)
}

func (p *Process) Test(ctx context.Context, configPath string) error {
	if _, err := p.runner.Run(ctx, p.binary, "-t", "-q", "-c", configPath); err != nil {
		return fmt.Errorf("nginx rejected %s: %w", configPath, err)
	}
	return nil
}
