//go:build windows

package classify

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

var errnoCodes = map[syscall.Errno]string{
	windows.ERROR_FILE_NOT_FOUND:     CodeNotFound,
	windows.ERROR_PATH_NOT_FOUND:     CodeNotFound,
	windows.ERROR_ACCESS_DENIED:      CodePermission,
	windows.ERROR_PIPE_BUSY:          CodePipeBusy,
	windows.WSAECONNREFUSED:          CodeRefused,
	windows.ERROR_SEM_TIMEOUT:        CodeTimeout,
	windows.ERROR_BROKEN_PIPE:        CodeBrokenPipe,
	windows.ERROR_NO_DATA:            CodeBrokenPipe,
	windows.ERROR_PIPE_NOT_CONNECTED: CodeReset,
	windows.WSAECONNRESET:            CodeReset,
	windows.WSAECONNABORTED:          CodeReset,
}

func errnoCode(err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errnoCodes[errno]
	}
	return ""
}
