//go:build windows

// Package stderr is a no-op on Windows; its audio backends do not write
// to fd 2 the way ALSA does.
package stderr

import "os"

// Messages receives captured stderr lines; never written on Windows.
var Messages = make(chan string, 100)

// Start is a no-op on Windows.
func Start() error {
	return nil
}

// WriteOriginal writes to stderr.
func WriteOriginal(msg string) {
	_, _ = os.Stderr.WriteString(msg)
}

// Stop is a no-op on Windows.
func Stop() {}
