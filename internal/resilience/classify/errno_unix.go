//go:build !windows

package classify

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

var errnoCodes = map[syscall.Errno]string{
	unix.ENOENT:       CodeNotFound,
	unix.EACCES:       CodePermission,
	unix.EPERM:        CodePermission,
	unix.ECONNREFUSED: CodeRefused,
	unix.ETIMEDOUT:    CodeTimeout,
	unix.EPIPE:        CodeBrokenPipe,
	unix.ECONNRESET:   CodeReset,
	unix.ECONNABORTED: CodeReset,
}

func errnoCode(err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errnoCodes[errno]
	}
	return ""
}
