package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for structural and semantic errors.
//
// Structural rules come from the `validate` struct tags; semantic rules
// that span fields (volume uniqueness, mount ordering) are checked here
// because struct tags cannot express them.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateVolumes(cfg.Volumes)
}

// validateVolumes checks cross-volume constraints.
func validateVolumes(volumes []VolumeConfig) error {
	seenDevices := make(map[uint64]int)
	seenMounts := make(map[string]int)

	for i, vol := range volumes {
		if !strings.HasPrefix(vol.MountPoint, "/") {
			return fmt.Errorf("volume %d: mount point %q must be absolute", i, vol.MountPoint)
		}
		if prev, dup := seenDevices[vol.Device]; dup {
			return fmt.Errorf("volume %d: device %d already used by volume %d", i, vol.Device, prev)
		}
		if prev, dup := seenMounts[vol.MountPoint]; dup {
			return fmt.Errorf("volume %d: mount point %q already used by volume %d", i, vol.MountPoint, prev)
		}
		seenDevices[vol.Device] = i
		seenMounts[vol.MountPoint] = i
	}

	// The root filesystem must come first so later mounts can resolve
	// their mount points.
	if len(volumes) > 0 && volumes[0].MountPoint != "/" {
		return fmt.Errorf("first volume must be mounted at \"/\", got %q", volumes[0].MountPoint)
	}
	for i, vol := range volumes[min(1, len(volumes)):] {
		if vol.MountPoint == "/" {
			return fmt.Errorf("volume %d: only the first volume may be mounted at \"/\"", i+1)
		}
	}

	return nil
}

// formatValidationError converts validator errors into readable messages.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("field %q failed %q validation",
			fieldErr.Namespace(), fieldErr.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
