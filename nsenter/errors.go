package nsenter

import "errors"

// The messages are scraped from the helper's output by oz-daemon, keep them stable.
var (
	ErrPrivilege        = errors.New("must run as privileged user")
	ErrLineageMismatch  = errors.New("unable to verify expected parent")
	ErrConfigMissing    = errors.New("namespace pid not provided.")
	ErrConfigMalformed  = errors.New("malformed namespace pid.")
	ErrIdentityMismatch = errors.New("unable to verify expected target")
	ErrLookup           = errors.New("unable to read process status")
	ErrNamespaceOpen    = errors.New("failed to open child namespace")
	ErrNamespaceMntOpen = errors.New("failed to open child mount namespace")
	ErrNamespaceJoin    = errors.New("failed to setns")
)
