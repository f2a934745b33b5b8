package nsenter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

const statusTail = "Umask:\t0022\nState:\tS (sleeping)\nTgid:\t%d\nNgid:\t0\nPid:\t%d\nPPid:\t1\n"

// writeStatus fakes <root>/<pid>/status with the given first line.
func writeStatus(t *testing.T, root string, pid int, nameLine string) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(dir, 0755))
	content := nameLine + fmt.Sprintf(statusTail, pid, pid)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte(content), 0644))
}

func writeProcess(t *testing.T, root string, pid int, name string) {
	writeStatus(t, root, pid, "Name:\t"+name+"\n")
}

// fakeOps records every call and fails the operations named in fail.
type fakeOps struct {
	fail     map[string]error
	calls    []string
	open     map[int]string
	closed   []int
	nextFd   int
	joinedFd int
}

func newFakeOps() *fakeOps {
	return &fakeOps{fail: map[string]error{}, open: map[int]string{}, nextFd: 10, joinedFd: -1}
}

func (f *fakeOps) newFd(name string) int {
	fd := f.nextFd
	f.nextFd++
	f.open[fd] = name
	return fd
}

func (f *fakeOps) OpenDir(path string) (int, error) {
	f.calls = append(f.calls, "OpenDir "+path)
	if err := f.fail["OpenDir"]; err != nil {
		return -1, err
	}
	return f.newFd(path), nil
}

func (f *fakeOps) Lstatat(dirfd int, name string) error {
	f.calls = append(f.calls, "Lstatat "+name)
	if _, ok := f.open[dirfd]; !ok {
		return syscall.EBADF
	}
	return f.fail["Lstatat"]
}

func (f *fakeOps) OpenAt(dirfd int, name string) (int, error) {
	f.calls = append(f.calls, "OpenAt "+name)
	if _, ok := f.open[dirfd]; !ok {
		return -1, syscall.EBADF
	}
	if err := f.fail["OpenAt"]; err != nil {
		return -1, err
	}
	return f.newFd(f.open[dirfd] + "/" + name), nil
}

func (f *fakeOps) SetMountNs(fd int) error {
	f.calls = append(f.calls, "SetMountNs")
	if _, ok := f.open[fd]; !ok {
		return syscall.EBADF
	}
	if err := f.fail["SetMountNs"]; err != nil {
		return err
	}
	f.joinedFd = fd
	return nil
}

func (f *fakeOps) Close(fd int) error {
	if _, ok := f.open[fd]; !ok {
		return errors.New("close of unknown fd")
	}
	delete(f.open, fd)
	f.closed = append(f.closed, fd)
	return nil
}
