// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpPlaybackSeek  Op = "seek"
	OpPlaybackNext  Op = "skip to next track"
	OpPlaybackPrev  Op = "skip to previous track"

	// Track resolution
	OpResolveTrack  Op = "resolve track"
	OpResolveStream Op = "resolve stream source"

	// Queue operations
	OpQueueLoad    Op = "load queue"
	OpQueueSave    Op = "save queue"
	OpQueueReplace Op = "replace queue"

	// Radio operations
	OpRadioFetch Op = "fetch radio track"
	OpRadioTrash Op = "move track to radio trash"

	// Lyrics operations
	OpLyricsFetch Op = "fetch lyrics"
	OpLyricsCache Op = "cache lyrics"

	// Catalog operations
	OpCatalogTrack  Op = "look up track"
	OpCatalogPlay   Op = "fetch audio source"
	OpCatalogLyrics Op = "fetch catalog lyrics"

	// Initialization
	OpInitialize Op = "initialize application"
	OpConfigLoad Op = "load configuration"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
