package utils

import (
	"fmt"
	"path/filepath"
)

// InTrustedRoot reports an error when path does not live under trustedRoot.
// Both absolute and relative paths work, relative ones bottom out at ".".
func InTrustedRoot(path string, trustedRoot string) error {
	for p := path; p != "/" && p != "."; {
		p = filepath.Dir(p)
		if p == trustedRoot {
			return nil
		}
	}
	return fmt.Errorf("path %q is outside of trusted root %q", path, trustedRoot)
}

// VerifyPath verifies that path is based in basePath.
func VerifyPath(path, basePath string) error {
	c := filepath.Clean(filepath.Join(basePath, path))
	return InTrustedRoot(c, filepath.Clean(basePath))
}
