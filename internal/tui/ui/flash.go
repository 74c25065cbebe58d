package ui

import (
	"sync"
	"time"
)

// FlashLevel represents the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

// FlashMessage is a flash notification with a level and expiry.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
}

// FlashModel holds the one transient notification shown in the status bar.
type FlashModel struct {
	mu      sync.RWMutex
	current FlashMessage
	watchCh chan FlashMessage
}

// NewFlashModel creates a new flash model.
func NewFlashModel() *FlashModel {
	return &FlashModel{
		watchCh: make(chan FlashMessage, 8),
	}
}

// Info sets an info-level flash message.
func (f *FlashModel) Info(msg string) {
	f.set(msg, FlashInfo, 5*time.Second)
}

// Warn sets a warn-level flash message.
func (f *FlashModel) Warn(msg string) {
	f.set(msg, FlashWarn, 8*time.Second)
}

// Err sets an error-level flash message.
func (f *FlashModel) Err(err error) {
	f.set(err.Error(), FlashErr, 10*time.Second)
}

// Set sets a flash message with a specific duration (info level).
func (f *FlashModel) Set(msg string, d time.Duration) {
	f.set(msg, FlashInfo, d)
}

// set replaces the current message. Repeating the message that is still
// showing only pushes its expiry out, so a failure reported on every poll
// does not flood watchers.
func (f *FlashModel) set(msg string, level FlashLevel, d time.Duration) {
	now := time.Now()
	fm := FlashMessage{
		Text:    msg,
		Level:   level,
		Expires: now.Add(d),
	}
	f.mu.Lock()
	repeat := f.current.Text == msg && f.current.Level == level && now.Before(f.current.Expires)
	f.current = fm
	f.mu.Unlock()
	if repeat {
		return
	}
	select {
	case f.watchCh <- fm:
	default:
	}
}

// Clear drops the current message.
func (f *FlashModel) Clear() {
	f.mu.Lock()
	f.current = FlashMessage{}
	f.mu.Unlock()
	select {
	case f.watchCh <- FlashMessage{}:
	default:
	}
}

// Get returns the current flash message text, or empty if expired.
func (f *FlashModel) Get() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if time.Now().After(f.current.Expires) {
		return ""
	}
	return f.current.Text
}

// GetMessage returns the current flash message, or nil if expired.
func (f *FlashModel) GetMessage() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if time.Now().After(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// Watch returns a channel that receives flash messages.
func (f *FlashModel) Watch() <-chan FlashMessage {
	return f.watchCh
}
