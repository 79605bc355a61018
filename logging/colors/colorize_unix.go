//go:build !windows

package colors

// platformSupportsColor always reports true: unix terminals understand ANSI escape codes.
func platformSupportsColor() bool {
	return true
}
