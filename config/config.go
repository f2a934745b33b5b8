package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"regexp"
	"syscall"

	"github.com/tidwall/jsonc"
)

const DefaultConfigPath = "/etc/oz/oz.conf"

// Config is the part of oz.conf the mount helpers need.
type Config struct {
	SandboxPath string `json:"sandbox_path"`
}

func Default() *Config {
	return &Config{
		SandboxPath: "/srv/oz",
	}
}

// RootfsPath is where the sandbox root filesystem is assembled.
func (c *Config) RootfsPath() string {
	return path.Join(c.SandboxPath, "rootfs")
}

var commentRegexp = regexp.MustCompile("^[ \t]*#")

// Load reads cpath on top of the defaults. A missing file is reported with an
// error satisfying os.IsNotExist so callers can fall back to Default.
func Load(cpath string) (*Config, error) {
	if _, err := os.Stat(cpath); err != nil {
		return nil, err
	}
	if err := checkPermissions(cpath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(cpath)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := json.Unmarshal(jsonc.ToJSON(stripHashComments(content)), c); err != nil {
		return nil, fmt.Errorf("parse config %s error: %v", cpath, err)
	}
	if c.SandboxPath == "" || !path.IsAbs(c.SandboxPath) {
		return nil, fmt.Errorf("config %s: sandbox_path must be an absolute path, got %q", cpath, c.SandboxPath)
	}
	return c, nil
}

// stripHashComments drops lines starting with #, jsonc only knows // and /* */.
func stripHashComments(content []byte) []byte {
	var buf bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Bytes()
		if !commentRegexp.Match(line) {
			buf.Write(line)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// checkPermissions requires fpath and its directory to be writable by root only.
func checkPermissions(fpath string) error {
	for _, fp := range []string{path.Dir(fpath), fpath} {
		if err := checkPathRootPermissions(fp); err != nil {
			return fmt.Errorf("file `%s` is %v", fp, err)
		}
	}
	return nil
}

func checkPathRootPermissions(fpath string) error {
	fstat, err := os.Stat(fpath)
	if err != nil {
		return err
	}
	if fstat.Mode().Perm()&syscall.S_IWOTH != 0 {
		return fmt.Errorf("writable by everyone")
	}
	if st, ok := fstat.Sys().(*syscall.Stat_t); ok && fstat.Mode().Perm()&syscall.S_IWGRP != 0 && st.Gid != 0 {
		return fmt.Errorf("writable by someone else than root")
	}
	return nil
}
