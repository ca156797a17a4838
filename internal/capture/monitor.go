package capture

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/starling/clipnote/internal/models"
	"github.com/starling/clipnote/internal/pipeline"
)

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

// Classifier is the single pipeline operation the monitor depends on.
type Classifier interface {
	Classify(ctx context.Context, content string) (*pipeline.Classification, error)
}

// Notify is called after each stored capture (SSE hook).
type Notify func(item models.CaptureItem)

// Monitor polls the clipboard at a fixed interval and forwards new text
// through classification into the capture history. Stopping is explicit
// and awaitable: Stop cancels the loop's context and blocks until the
// loop has exited.
type Monitor struct {
	clip     Clipboard
	classify Classifier
	history  *History
	interval time.Duration
	logger   *slog.Logger
	notify   Notify

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   string
}

// NewMonitor creates a monitor. notify may be nil.
func NewMonitor(clip Clipboard, classify Classifier, history *History, interval time.Duration, logger *slog.Logger, notify Notify) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{
		clip:     clip,
		classify: classify,
		history:  history,
		interval: interval,
		logger:   logger,
		notify:   notify,
	}
}

// Start launches the polling loop. Calling Start while the monitor is
// already running logs a warning and does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.logger.Warn("clipboard monitor already running")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(loopCtx)
	m.logger.Info("clipboard monitor started", slog.Duration("interval", m.interval))
}

// Stop cancels the loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Info("clipboard monitor stopped")
}

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.tick(ctx); err != nil {
				// A failed iteration never stops the loop.
				m.logger.Warn("clipboard tick failed", slog.String("error", err.Error()))
			}
		}
	}
}

// tick reads the clipboard once and processes new textual content.
func (m *Monitor) tick(ctx context.Context) error {
	text, err := m.clip.Read()
	if err != nil {
		return err
	}
	if text == "" || text == m.last {
		return nil
	}
	// Mark the content observed before classifying: a failing backend
	// should not make the loop resend the same clipboard every tick.
	m.last = text

	urls := urlRe.FindAllString(text, -1)
	if urls == nil {
		urls = []string{}
	}

	item := models.CaptureItem{
		Content:    text,
		URLs:       urls,
		Source:     "clipboard_monitor",
		CapturedAt: time.Now().Format(time.RFC3339),
	}

	result, err := m.classify.Classify(ctx, text)
	if err != nil {
		return err
	}
	if encoded, jsonErr := json.Marshal(result); jsonErr == nil {
		item.Classification = string(encoded)
	}

	if err := m.history.Append(item); err != nil {
		return err
	}

	m.logger.Info("clipboard content captured",
		slog.Int("length", len(text)),
		slog.Int("urls", len(urls)),
		slog.String("note_type", result.NoteType))

	if m.notify != nil {
		m.notify(item)
	}
	return nil
}
