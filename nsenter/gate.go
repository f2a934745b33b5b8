// Package nsenter authenticates oz-daemon and the target oz-init before
// joining the mount namespace of the sandbox.
//
// The process checks are pid based and advisory: a process can exit and its
// pid be reused between a check and the join. They keep the helper from
// being pointed at an arbitrary namespace, they do not make it safe to hand
// to untrusted callers.
package nsenter

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultProcRoot = "/proc"

	DaemonName = "oz-daemon"
	InitName   = "oz-init"
)

// Env is the ambient process state the gate decides on.
type Env struct {
	Euid      int
	Ppid      int
	LookupEnv func(key string) (string, bool)
	ProcRoot  string
}

// CurrentEnv describes the running process.
func CurrentEnv() Env {
	return Env{
		Euid:      os.Geteuid(),
		Ppid:      os.Getppid(),
		LookupEnv: os.LookupEnv,
		ProcRoot:  DefaultProcRoot,
	}
}

// Gate verifies the caller and the target, then joins the target's mount namespace.
type Gate struct {
	ops Ops
	log log.FieldLogger
}

func NewGate(ops Ops, logger log.FieldLogger) *Gate {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Gate{ops: ops, log: logger}
}

// Enter runs the checks strictly in order and only then touches the namespace.
// On error the namespace membership of the caller is unchanged.
func (g *Gate) Enter(env Env) (NamespaceTarget, error) {
	procRoot := env.ProcRoot
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}

	if env.Euid != 0 {
		return NamespaceTarget{}, ErrPrivilege
	}

	parent := ProcessIdentity{Pid: env.Ppid, Name: DaemonName}
	if err := verify(parent, procRoot, ErrLineageMismatch); err != nil {
		return NamespaceTarget{}, err
	}

	value, ok := env.LookupEnv(EnvNamespacePid)
	target, err := ParseNamespacePid(value, ok)
	if err != nil {
		return NamespaceTarget{}, err
	}

	if err := verify(ProcessIdentity{Pid: target.Pid, Name: InitName}, procRoot, ErrIdentityMismatch); err != nil {
		return NamespaceTarget{}, err
	}
	j := &Joiner{Ops: g.ops, ProcRoot: procRoot, Log: g.log}
	if err := j.Join(target); err != nil {
		return NamespaceTarget{}, err
	}
	return target, nil
}

func verify(id ProcessIdentity, procRoot string, failure error) error {
	verdict, err := id.Verify(procRoot)
	switch verdict {
	case Match:
		return nil
	case Mismatch:
		return fmt.Errorf("%w: pid %d is not %s", failure, id.Pid, id.Name)
	default:
		return fmt.Errorf("%w: %w", failure, err)
	}
}
