package nsenter

import (
	"fmt"
	"path"
	"strconv"
)

// EnvNamespacePid is set by oz-daemon to the pid of the sandbox's oz-init.
const EnvNamespacePid = "_OZ_NSPID"

const mountNamespace = "mnt"

// NamespaceTarget is the process whose mount namespace gets joined.
type NamespaceTarget struct {
	Pid  int
	Kind string
}

// NsDir returns the per-process namespace directory of the target.
func (t NamespaceTarget) NsDir(procRoot string) string {
	return path.Join(procRoot, strconv.Itoa(t.Pid), "ns")
}

// ParseNamespacePid validates the raw value of EnvNamespacePid.
// ok reports whether the variable was present at all.
func ParseNamespacePid(value string, ok bool) (NamespaceTarget, error) {
	if !ok {
		return NamespaceTarget{}, ErrConfigMissing
	}
	pid, err := strconv.ParseInt(value, 10, strconv.IntSize)
	if err != nil {
		return NamespaceTarget{}, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}
	if pid < 0 {
		return NamespaceTarget{}, fmt.Errorf("%w: negative pid %d", ErrConfigMalformed, pid)
	}
	return NamespaceTarget{Pid: int(pid), Kind: mountNamespace}, nil
}
