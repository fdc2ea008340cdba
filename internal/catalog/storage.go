package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/samber/lo"
)

var ErrStorageNotFound = errors.New("no active storage accepts the content class")

// Block-volume backends take a bare integer size token at the control
// plane boundary; file backends take a suffixed one.
var blockBackends = map[string]struct{}{
	"lvm":     {},
	"lvmthin": {},
	"zfspool": {},
	"rbd":     {},
}

type StorageProvider interface {
	ListStorages(ctx context.Context, class models.ContentClass) ([]models.Storage, error)
}

// SelectStorage picks the active storage with the most free capacity for
// the given content class.
func SelectStorage(ctx context.Context, provider StorageProvider, class models.ContentClass) (models.Storage, error) {
	storages, err := provider.ListStorages(ctx, class)
	if err != nil {
		return models.Storage{}, fmt.Errorf("failed to list storages: %w", err)
	}

	active := lo.Filter(storages, func(storage models.Storage, _ int) bool {
		return storage.Active
	})
	if len(active) == 0 {
		return models.Storage{}, fmt.Errorf("%w: %s", ErrStorageNotFound, class)
	}

	return lo.MaxBy(active, func(a, b models.Storage) bool {
		return a.FreeBytes > b.FreeBytes
	}), nil
}

// ParseCapacity normalizes a human-readable capacity ("50G", "512M",
// "1.5GiB") to bytes. Bare integers are taken as bytes.
func ParseCapacity(s string) (uint64, error) {
	bytes, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("failed to parse capacity %q: %w", s, err)
	}

	return bytes, nil
}

// DiskSpecifier formats a disk size for the control plane according to
// the storage backend class.
func DiskSpecifier(storageType string, sizeGB int) string {
	if _, ok := blockBackends[storageType]; ok {
		return fmt.Sprintf("%d", sizeGB)
	}

	return fmt.Sprintf("%dG", sizeGB)
}
