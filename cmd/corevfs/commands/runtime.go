package commands

import (
	"context"
	"fmt"

	"github.com/corevfs/corevfs/internal/logger"
	"github.com/corevfs/corevfs/internal/telemetry"
	"github.com/corevfs/corevfs/pkg/config"
	"github.com/corevfs/corevfs/pkg/fs/badgerfs"
	"github.com/corevfs/corevfs/pkg/fs/memfs"
	"github.com/corevfs/corevfs/pkg/metrics"
	"github.com/corevfs/corevfs/pkg/vfs"
)

// runtimeEnv bundles the constructed filesystem layer with the resources
// it owns, so commands can tear everything down in one place.
type runtimeEnv struct {
	vfs    *vfs.VFS
	badger *badgerfs.Driver // nil unless a badgerfs volume is configured

	// mounted lists the device ids of mounted volumes, in mount order.
	mounted []vfs.DeviceID
}

// buildVFS creates the VFS, registers the configured filesystem types and
// mounts every volume from the configuration in order.
func buildVFS(ctx context.Context, cfg *config.Config) (*runtimeEnv, error) {
	env := &runtimeEnv{
		vfs: vfs.New(vfs.Options{
			MaxDentries: cfg.VFS.MaxDentries,
			MaxVnodes:   cfg.VFS.MaxVnodes,
			Metrics:     metrics.NewVFSMetrics(),
		}),
	}

	if err := env.registerTypes(cfg); err != nil {
		env.Close()
		return nil, err
	}

	for _, vol := range cfg.Volumes {
		ctx, span := telemetry.StartMountSpan(ctx, telemetry.SpanMount, vol.Type, vol.Device,
			telemetry.MountPoint(vol.MountPoint))

		err := env.vfs.Mount(vfs.DeviceID(vol.Device), vol.MountPoint, vol.Type)
		if err != nil {
			telemetry.RecordError(ctx, err)
			span.End()
			env.Close()
			return nil, fmt.Errorf("failed to mount %s volume at %s: %w", vol.Type, vol.MountPoint, err)
		}
		span.End()

		env.mounted = append(env.mounted, vfs.DeviceID(vol.Device))
	}

	return env, nil
}

// registerTypes registers every filesystem type the volume list needs.
func (env *runtimeEnv) registerTypes(cfg *config.Config) error {
	needs := make(map[string]bool)
	for _, vol := range cfg.Volumes {
		needs[vol.Type] = true
	}

	if needs["memfs"] {
		if err := env.vfs.RegisterFilesystemType("memfs", memfs.New().Configure); err != nil {
			return fmt.Errorf("failed to register memfs: %w", err)
		}
	}

	if needs["badgerfs"] {
		drv, err := badgerfs.Open(cfg.Data.Path)
		if err != nil {
			return fmt.Errorf("failed to open badgerfs storage: %w", err)
		}
		env.badger = drv

		if err := env.vfs.RegisterFilesystemType("badgerfs", drv.Configure); err != nil {
			return fmt.Errorf("failed to register badgerfs: %w", err)
		}
	}

	return nil
}

// Close unmounts every volume in reverse mount order and releases the
// storage drivers. Errors are logged rather than returned; teardown
// continues past individual failures.
func (env *runtimeEnv) Close() {
	for i := len(env.mounted) - 1; i >= 0; i-- {
		devID := env.mounted[i]

		sb, err := env.vfs.SuperblockFor(devID)
		if err != nil {
			logger.Warn("superblock lookup failed during shutdown", "device", uint64(devID), "error", err)
			continue
		}
		if err := env.vfs.Unmount(sb); err != nil {
			logger.Warn("unmount failed during shutdown", "device", uint64(devID), "error", err)
		}
	}
	env.mounted = nil

	if env.badger != nil {
		if err := env.badger.Close(); err != nil {
			logger.Warn("badgerfs close failed", "error", err)
		}
		env.badger = nil
	}
}
