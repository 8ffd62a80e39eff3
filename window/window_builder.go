package window

// WindowBuilderOption is a function that modifies the window configuration
// during construction.
type WindowBuilderOption func(*mirrorWindow)

// WithTitle sets the window title.
//
// Parameters:
//   - title: the title bar text
//
// Returns:
//   - WindowBuilderOption: a function that applies the title
func WithTitle(title string) WindowBuilderOption {
	return func(w *mirrorWindow) {
		if title != "" {
			w.title = title
		}
	}
}

// WithSize sets the initial client area size.
//
// Parameters:
//   - width: width in pixels, must be positive
//   - height: height in pixels, must be positive
//
// Returns:
//   - WindowBuilderOption: a function that applies the size
func WithSize(width, height int) WindowBuilderOption {
	return func(w *mirrorWindow) {
		if width > 0 && height > 0 {
			w.width = width
			w.height = height
		}
	}
}
