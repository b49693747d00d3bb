package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/BenchForge/internal/adapter/dockerbox"
	"github.com/Strob0t/BenchForge/internal/adapter/procbox"
	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/domain"
	"github.com/Strob0t/BenchForge/internal/port/sandbox"
)

// SelectProvisioner binds the session to one isolation strategy. The
// capability check runs once here, never per classification: "docker"
// demands a reachable daemon, "process" always works, and "auto" prefers
// docker with a process fallback.
func SelectProvisioner(ctx context.Context, cfg config.Sandbox, log *slog.Logger) (sandbox.Provisioner, error) {
	switch cfg.Strategy {
	case "docker":
		if !dockerbox.Available(ctx) {
			return nil, fmt.Errorf("%w: docker strategy requested but daemon unreachable", domain.ErrProvision)
		}
		return dockerbox.New(cfg, log), nil
	case "process":
		return procbox.New(cfg, log), nil
	case "auto":
		if dockerbox.Available(ctx) {
			log.Info("sandbox strategy selected", "strategy", "docker")
			return dockerbox.New(cfg, log), nil
		}
		log.Warn("docker unavailable, falling back to process isolation")
		return procbox.New(cfg, log), nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrProvision, cfg.Strategy)
	}
}
