package internal

import (
	"github.com/starling/clipnote/internal/capture"
	"github.com/starling/clipnote/internal/llm"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	clipboard capture.Clipboard
	llmClient llm.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithClipboard overrides the clipboard implementation. The default is
// the OS clipboard; headless deployments can supply their own source.
func WithClipboard(clip capture.Clipboard) Option {
	return func(a *application) {
		a.clipboard = clip
	}
}

// WithLLMClient overrides the chat backend (used by tests).
func WithLLMClient(c llm.Client) Option {
	return func(a *application) {
		a.llmClient = c
	}
}
