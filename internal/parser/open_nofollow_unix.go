//go:build !windows

package parser

import (
	"os"
	"syscall"
)

// openNoFollow fails with ELOOP when the last path component is
// a symlink, so session files swapped for links are never read.
func openNoFollow(path string) (*os.File, error) {
	return os.OpenFile(
		path, os.O_RDONLY|syscall.O_NOFOLLOW, 0,
	)
}
