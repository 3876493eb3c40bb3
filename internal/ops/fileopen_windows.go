//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/drill/internal/errors"
)

// Windows has no O_NOFOLLOW. ValidatePath has already refused symlinks.

func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound("file", path)
	}
	return f, err
}
