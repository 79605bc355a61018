package colors

// Color is an ANSI SGR code.
type Color int

// Codes mirror zerolog's console writer palette.
// Source: https://github.com/rs/zerolog/blob/4fff5db29c3403bc26dee9895e12a108aacc0203/console.go
const (
	RED Color = iota + 31
	GREEN
	YELLOW
	BLUE
	MAGENTA
	CYAN

	// BOLD is the ANSI code for bold text
	BOLD Color = 1
)

// Glyphs used for console output.
const (
	// LEFT_ARROW is the unicode string for a left arrow glyph
	LEFT_ARROW = "⇾"
	// CROSS is the unicode string for a heavy ballot X, used for failed outcomes
	CROSS = "✘"
	// CHECK is the unicode string for a heavy check mark, used for successful outcomes
	CHECK = "✔"
)
