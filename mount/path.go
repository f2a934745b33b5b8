package mount

import (
	"fmt"
	"path"
	"strings"
)

// EnvHomeDir is set by oz-daemon to the home directory of the sandbox user.
const EnvHomeDir = "_OZ_HOMEDIR"

// CleanPath resolves spath against homedir and refuses anything outside of it.
func CleanPath(spath, homedir string) (string, error) {
	if homedir == "" || !path.IsAbs(homedir) {
		return "", fmt.Errorf("home directory must be set to an absolute path")
	}
	homedir = path.Clean(homedir)
	spath = path.Clean(spath)
	if !path.IsAbs(spath) {
		spath = path.Join(homedir, spath)
	}
	if spath != homedir && !strings.HasPrefix(spath, homedir+"/") {
		return "", fmt.Errorf("only files inside of the user home are permitted: %s", spath)
	}
	return spath, nil
}
