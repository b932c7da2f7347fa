// Package storagemgr validates the configured storage root and reports
// free disk space for it, per SPEC_FULL.md's storage-path/disk-space
// supplement.
package storagemgr

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/snapindex/snapindex/pkg/apperror"
)

// DiskSpace is a point-in-time free/total report for one filesystem
// (spec.md §6 check_disk_space).
type DiskSpace struct {
	AvailableBytes uint64
	TotalBytes     uint64
	MountPoint     string
}

// Manager validates and reports on one storage root.
type Manager struct {
	root string
}

// New constructs a Manager bound to root.
func New(root string) *Manager {
	return &Manager{root: root}
}

// EnsureRoot creates the storage root if absent and confirms it is a
// writable directory.
func (m *Manager) EnsureRoot() error {
	info, err := os.Stat(m.root)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(m.root, 0o755); err != nil {
			return apperror.IO("create storage root", err)
		}
		return nil
	}
	if err != nil {
		return apperror.IO("stat storage root", err)
	}
	if !info.IsDir() {
		return apperror.Validation("storage root " + m.root + " is not a directory")
	}
	probe, err := os.CreateTemp(m.root, ".snapindex-write-test-*")
	if err != nil {
		return apperror.IO("storage root is not writable", err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// CheckDiskSpace reports available and total bytes for the filesystem
// backing path, via unix.Statfs. An empty path checks the storage root.
func (m *Manager) CheckDiskSpace(path string) (DiskSpace, error) {
	if path == "" {
		path = m.root
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return DiskSpace{}, apperror.IO("statfs "+path, err)
	}
	blockSize := uint64(stat.Bsize)
	return DiskSpace{
		AvailableBytes: stat.Bavail * blockSize,
		TotalBytes:     stat.Blocks * blockSize,
		MountPoint:     path,
	}, nil
}

// Root returns the configured storage root path.
func (m *Manager) Root() string { return m.root }
