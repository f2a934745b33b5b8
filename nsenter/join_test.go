package nsenter

import (
	"syscall"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func newTestJoiner(ops Ops) (*Joiner, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return &Joiner{Ops: ops, ProcRoot: "/proc", Log: logger}, hook
}

func TestJoin(t *testing.T) {
	assert := assert.New(t)
	ops := newFakeOps()
	j, hook := newTestJoiner(ops)

	err := j.Join(NamespaceTarget{Pid: 4821, Kind: "mnt"})
	assert.NoError(err)
	assert.Equal([]string{"OpenDir /proc/4821/ns", "Lstatat mnt", "OpenAt mnt", "SetMountNs"}, ops.calls)
	assert.Equal(11, ops.joinedFd)
	assert.Empty(ops.open)
	assert.Equal([]int{11, 10}, ops.closed)

	if assert.NotEmpty(hook.AllEntries()) {
		first := hook.AllEntries()[0]
		assert.Equal(logrus.DebugLevel, first.Level)
		assert.Equal("Opening: /proc/4821/ns", first.Message)
	}
}

func TestJoinTwice(t *testing.T) {
	ops := newFakeOps()
	j, _ := newTestJoiner(ops)
	target := NamespaceTarget{Pid: 4821, Kind: "mnt"}

	assert.NoError(t, j.Join(target))
	assert.NoError(t, j.Join(target))
	assert.Empty(t, ops.open)
}

func TestJoinFailures(t *testing.T) {
	for _, tc := range []struct {
		op     string
		err    error
		want   error
		calls  int
		closed int
	}{
		{op: "OpenDir", err: syscall.ENOENT, want: ErrNamespaceOpen, calls: 1, closed: 0},
		{op: "OpenDir", err: syscall.EACCES, want: ErrNamespaceOpen, calls: 1, closed: 0},
		{op: "Lstatat", err: syscall.ENOENT, want: ErrNamespaceOpen, calls: 2, closed: 1},
		{op: "OpenAt", err: syscall.ENOENT, want: ErrNamespaceMntOpen, calls: 3, closed: 1},
		{op: "OpenAt", err: syscall.EACCES, want: ErrNamespaceMntOpen, calls: 3, closed: 1},
		{op: "SetMountNs", err: syscall.EINVAL, want: ErrNamespaceJoin, calls: 4, closed: 2},
		{op: "SetMountNs", err: syscall.EPERM, want: ErrNamespaceJoin, calls: 4, closed: 2},
	} {
		ops := newFakeOps()
		ops.fail[tc.op] = tc.err
		j, _ := newTestJoiner(ops)

		err := j.Join(NamespaceTarget{Pid: 4821, Kind: "mnt"})
		assert.ErrorIs(t, err, tc.want, "%s: %v", tc.op, tc.err)
		assert.Len(t, ops.calls, tc.calls, "%s: %v", tc.op, tc.err)
		assert.Len(t, ops.closed, tc.closed, "%s: %v", tc.op, tc.err)
		assert.Empty(t, ops.open, "%s: %v leaked a descriptor", tc.op, tc.err)
		assert.Equal(t, -1, ops.joinedFd)
	}
}

func TestJoinProbeToleratesOtherErrors(t *testing.T) {
	assert := assert.New(t)
	ops := newFakeOps()
	ops.fail["Lstatat"] = syscall.EACCES
	j, hook := newTestJoiner(ops)

	assert.NoError(j.Join(NamespaceTarget{Pid: 4821, Kind: "mnt"}))
	assert.Equal(11, ops.joinedFd)
	assert.Empty(ops.open)
	assert.Contains(hook.LastEntry().Message, "continuing")
}

func TestJoinErrorMessages(t *testing.T) {
	ops := newFakeOps()
	ops.fail["SetMountNs"] = syscall.EINVAL
	j, _ := newTestJoiner(ops)

	err := j.Join(NamespaceTarget{Pid: 4821, Kind: "mnt"})
	assert.EqualError(t, err, "failed to setns for: /proc/4821/ns: invalid argument")

	ops = newFakeOps()
	ops.fail["OpenAt"] = syscall.EACCES
	j, _ = newTestJoiner(ops)
	err = j.Join(NamespaceTarget{Pid: 4821, Kind: "mnt"})
	assert.EqualError(t, err, "failed to open child mount namespace: /proc/4821/ns: permission denied")
}

func TestJoinStateString(t *testing.T) {
	assert.Equal(t, "OpenNsDir", stateOpenNsDir.String())
	assert.Equal(t, "ProbeDeadLink", stateProbeDeadLink.String())
	assert.Equal(t, "OpenNsFile", stateOpenNsFile.String())
	assert.Equal(t, "Join", stateJoin.String())
	assert.Equal(t, "Done", stateDone.String())
}
