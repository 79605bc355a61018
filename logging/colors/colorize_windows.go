//go:build windows

package colors

import (
	"os"

	"golang.org/x/sys/windows"
)

// platformSupportsColor asks the console whether virtual terminal processing (ANSI escape codes) is enabled on
// stdout.
func platformSupportsColor() bool {
	var mode uint32
	if err := windows.GetConsoleMode(windows.Handle(os.Stdout.Fd()), &mode); err != nil {
		return false
	}
	return mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0
}
