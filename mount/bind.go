// Package mount binds files from the user's home into a sandbox root
// filesystem. It is meant to run inside the sandbox's mount namespace.
package mount

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type mountFunc func(source, target, fstype string, flags uintptr, data string) error

type unmountFunc func(target string, flags int) error

// Binder mounts host paths at the same location below Root.
type Binder struct {
	Root string

	log     log.FieldLogger
	mount   mountFunc
	unmount unmountFunc
}

func NewBinder(root string, logger log.FieldLogger) *Binder {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Binder{
		Root:    root,
		log:     logger,
		mount:   unix.Mount,
		unmount: unix.Unmount,
	}
}

// Bind makes from visible at the same path inside the sandbox.
// An already existing target is left alone.
func (b *Binder) Bind(from string, readOnly bool) error {
	src, err := filepath.EvalSymlinks(from)
	if err != nil {
		return fmt.Errorf("error resolving symlinks for path (%s): %v", from, err)
	}
	sinfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to bind path (%s): %v", src, err)
	}

	to := path.Join(b.Root, from)
	if _, err := os.Lstat(to); err == nil || !os.IsNotExist(err) {
		b.log.Warnf("Target (%s > %s) already exists, ignoring", src, to)
		return nil
	}

	if err := copyPathPermissions(b.Root, path.Dir(from)); err != nil {
		return fmt.Errorf("failed to copy path permissions for (%s): %v", from, err)
	}
	if sinfo.IsDir() {
		if err := os.Mkdir(to, sinfo.Mode().Perm()); err != nil {
			return err
		}
	} else if err := createEmptyFile(to, 0750); err != nil {
		return err
	}

	var flags uintptr = unix.MS_NODEV | unix.MS_NOSUID
	rolog := ""
	if readOnly {
		flags |= unix.MS_RDONLY
		rolog = "(as readonly) "
	} else {
		flags |= unix.MS_NOEXEC
	}
	b.log.Infof("bind mounting %s%s -> %s", rolog, src, to)
	if err := b.bindMount(src, to, flags); err != nil {
		// a leftover mount point would make the next Bind of this path a no-op
		if rerr := os.Remove(to); rerr != nil {
			b.log.Warnf("Remove mount point %s error %v", to, rerr)
		}
		return err
	}
	return nil
}

// Unbind detaches the mount at p inside the sandbox and removes the mount point.
func (b *Binder) Unbind(p string) error {
	to := path.Join(b.Root, p)
	if _, err := os.Lstat(to); err != nil {
		b.log.Warnf("Target (%s) does not exist, ignoring: %v", to, err)
		return nil
	}

	b.log.Infof("unbinding %s", to)
	if err := b.unmount(to, unix.MNT_DETACH); err != nil {
		return fmt.Errorf("unmount %s error: %v", to, err)
	}
	return os.Remove(to)
}

func (b *Binder) bindMount(source, target string, flags uintptr) error {
	if err := b.mount(source, target, "", unix.MS_BIND, ""); err != nil {
		return fmt.Errorf("bind mount of %s -> %s failed: %v", source, target, err)
	}
	// the flags of a bind mount only apply on remount
	if err := b.mount("", target, "", flags|unix.MS_BIND|unix.MS_REMOUNT, ""); err != nil {
		// never leave the bind behind without its restrictions
		if uerr := b.unmount(target, unix.MNT_DETACH); uerr != nil {
			b.log.Warnf("Unmount %s after failed remount error %v", target, uerr)
		}
		return fmt.Errorf("failed to remount %s with flags %x: %v", target, flags, err)
	}
	return nil
}

// copyPathPermissions creates the missing parents of dir below root with the
// mode and owner of their host counterparts.
func copyPathPermissions(root, dir string) error {
	current := "/"
	for _, part := range strings.Split(dir, "/") {
		if part == "" {
			continue
		}
		current = path.Join(current, part)
		target := path.Join(root, current)
		if _, err := os.Lstat(target); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return err
		}

		fi, err := os.Stat(current)
		if err != nil {
			return err
		}
		if err := os.Mkdir(target, fi.Mode().Perm()); err != nil {
			return err
		}
		if err := copyFileInfo(fi, target); err != nil {
			return err
		}
	}
	return nil
}

func copyFileInfo(info os.FileInfo, target string) error {
	// only root can hand files to other users
	if st, ok := info.Sys().(*syscall.Stat_t); ok && os.Geteuid() == 0 {
		if err := os.Chown(target, int(st.Uid), int(st.Gid)); err != nil {
			return err
		}
	}
	return os.Chmod(target, info.Mode().Perm())
}

func createEmptyFile(name string, mode os.FileMode) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	return f.Close()
}
