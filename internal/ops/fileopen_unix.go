//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/drill/internal/errors"
)

// openFileNoFollow opens an export file for writing. O_NOFOLLOW refuses a symlink
// in the last path component; ValidatePath has checked the parents.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return openNoFollow(path, flag, perm, "write export to")
}

// openFileNoFollowRead opens an import file for reading under the same rule.
func openFileNoFollowRead(path string) (*os.File, error) {
	return openNoFollow(path, syscall.O_RDONLY, 0, "import from")
}

func openNoFollow(path string, flag int, perm os.FileMode, verb string) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	switch {
	case err == nil:
		return os.NewFile(uintptr(fd), path), nil
	case stderrors.Is(err, syscall.ELOOP):
		return nil, errors.NewInvalidRequest("cannot " + verb + " a symlink")
	case stderrors.Is(err, syscall.ENOENT) && flag&os.O_CREATE == 0:
		return nil, errors.NewNotFound("file", path)
	}
	return nil, err
}
