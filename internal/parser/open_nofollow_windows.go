//go:build windows

package parser

import "os"

// openNoFollow is a plain open on Windows, which has no
// O_NOFOLLOW; openRegular still rejects non-regular targets.
func openNoFollow(path string) (*os.File, error) {
	return os.Open(path)
}
