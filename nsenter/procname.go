package nsenter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

// Verdict is the outcome of comparing a process name against an expected one.
type Verdict int

const (
	// LookupFailed means the status record could not be read, so nothing was compared.
	LookupFailed Verdict = iota
	Match
	Mismatch
)

func (v Verdict) String() string {
	switch v {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	default:
		return "lookup failed"
	}
}

const nameField = "Name:"

// ProcessIdentity names the process expected to run under Pid.
type ProcessIdentity struct {
	Pid  int
	Name string
}

// CheckProcessName compares the Name field of <procRoot>/<pid>/status with name.
// The whole line, tab and newline included, has to match byte for byte.
// The returned error is non-nil only together with LookupFailed and wraps ErrLookup.
func CheckProcessName(procRoot string, pid int, name string) (Verdict, error) {
	statusPath := path.Join(procRoot, strconv.Itoa(pid), "status")
	f, err := os.Open(statusPath)
	if err != nil {
		return LookupFailed, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	defer f.Close()

	want := nameField + "\t" + name + "\n"
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if strings.HasPrefix(line, nameField) {
			if line == want {
				return Match, nil
			}
			return Mismatch, nil
		}
		if err == io.EOF {
			return LookupFailed, fmt.Errorf("%w: no %s field in %s", ErrLookup, nameField, statusPath)
		}
		if err != nil {
			// the process may exit while its status is being read
			return LookupFailed, fmt.Errorf("%w: %w", ErrLookup, err)
		}
	}
}

// Verify checks id against the process table under procRoot.
func (id ProcessIdentity) Verify(procRoot string) (Verdict, error) {
	return CheckProcessName(procRoot, id.Pid, id.Name)
}
