package nsenter

import (
	"errors"
	"fmt"
	"io/fs"

	log "github.com/sirupsen/logrus"
)

// Ops are the primitive operations the Joiner is built from.
// Descriptors returned on error are ignored.
type Ops interface {
	// OpenDir opens a directory read-only.
	OpenDir(path string) (int, error)
	// Lstatat stats name relative to dirfd without following a final symlink.
	Lstatat(dirfd int, name string) error
	// OpenAt opens name relative to dirfd read-only.
	OpenAt(dirfd int, name string) (int, error)
	// SetMountNs moves the calling thread into the mount namespace behind fd.
	SetMountNs(fd int) error
	Close(fd int) error
}

type joinState int

const (
	stateOpenNsDir joinState = iota
	stateProbeDeadLink
	stateOpenNsFile
	stateJoin
	stateDone
)

func (s joinState) String() string {
	switch s {
	case stateOpenNsDir:
		return "OpenNsDir"
	case stateProbeDeadLink:
		return "ProbeDeadLink"
	case stateOpenNsFile:
		return "OpenNsFile"
	case stateJoin:
		return "Join"
	default:
		return "Done"
	}
}

// Joiner moves the calling thread into the mount namespace of a target process.
// It must not be used from more than one goroutine at a time.
type Joiner struct {
	Ops      Ops
	ProcRoot string
	Log      log.FieldLogger
}

// Join runs OpenNsDir, ProbeDeadLink, OpenNsFile and Join in that order.
// Every descriptor opened on the way is closed before Join returns.
func (j *Joiner) Join(target NamespaceTarget) error {
	logger := j.Log
	if logger == nil {
		logger = log.StandardLogger()
	}
	nsDir := target.NsDir(j.ProcRoot)
	logger.Debugf("Opening: %s", nsDir)

	dirfd, nsfd := -1, -1
	defer func() {
		for _, fd := range []int{nsfd, dirfd} {
			if fd < 0 {
				continue
			}
			if err := j.Ops.Close(fd); err != nil {
				logger.Warnf("Close fd %d of %s error %v", fd, nsDir, err)
			}
		}
	}()

	for state := stateOpenNsDir; state != stateDone; {
		switch state {
		case stateOpenNsDir:
			fd, err := j.Ops.OpenDir(nsDir)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrNamespaceOpen, nsDir, err)
			}
			dirfd = fd
			state = stateProbeDeadLink

		case stateProbeDeadLink:
			// the links of an exited process are still listed but cannot be opened
			if err := j.Ops.Lstatat(dirfd, target.Kind); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("%w: %s: %v", ErrNamespaceOpen, nsDir, err)
				}
				logger.Debugf("Probe %s/%s error %v, continuing", nsDir, target.Kind, err)
			}
			state = stateOpenNsFile

		case stateOpenNsFile:
			fd, err := j.Ops.OpenAt(dirfd, target.Kind)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrNamespaceMntOpen, nsDir, err)
			}
			nsfd = fd
			state = stateJoin

		case stateJoin:
			if err := j.Ops.SetMountNs(nsfd); err != nil {
				return fmt.Errorf("%w for: %s: %v", ErrNamespaceJoin, nsDir, err)
			}
			state = stateDone
		}
	}
	return nil
}
