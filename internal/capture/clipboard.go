// Package capture feeds external content into the classification
// pipeline: a background clipboard monitor and its durable history.
package capture

import "github.com/atotto/clipboard"

// Clipboard reads the current clipboard text. Implementations are
// selected once at startup; the monitor never branches on platform.
type Clipboard interface {
	Read() (string, error)
}

// SystemClipboard reads the OS clipboard (pbcopy/xclip/winapi behind
// the clipboard package).
type SystemClipboard struct{}

// NewSystemClipboard returns the platform clipboard reader.
func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{}
}

// Read returns the current clipboard text, empty when the clipboard
// holds no text content.
func (*SystemClipboard) Read() (string, error) {
	return clipboard.ReadAll()
}
