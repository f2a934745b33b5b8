package nsenter

import (
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

// SystemOps implements Ops with real system calls.
//
// The caller has to hold runtime.LockOSThread for the rest of its life once
// SetMountNs succeeded, only the calling thread changes namespace.
type SystemOps struct{}

func (SystemOps) OpenDir(path string) (int, error) {
	return unix.Open(path, unix.O_DIRECTORY|unix.O_RDONLY|unix.O_CLOEXEC, 0)
}

func (SystemOps) Lstatat(dirfd int, name string) error {
	var st unix.Stat_t
	return unix.Fstatat(dirfd, name, &st, unix.AT_SYMLINK_NOFOLLOW)
}

func (SystemOps) OpenAt(dirfd int, name string) (int, error) {
	return unix.Openat(dirfd, name, unix.O_RDONLY|unix.O_CLOEXEC, 0)
}

func (SystemOps) SetMountNs(fd int) error {
	// setns(CLONE_NEWNS) refuses a thread that shares its fs attributes,
	// and every thread of a Go process does.
	if err := unix.Unshare(unix.CLONE_FS); err != nil {
		return err
	}
	return netns.Setns(netns.NsHandle(fd), unix.CLONE_NEWNS)
}

func (SystemOps) Close(fd int) error {
	return unix.Close(fd)
}
