// Package nonce issues the action tokens guarding form posts, exports and
// imports.
package nonce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// DefaultLifetime bounds how long a token stays valid. Ticks last half of it
// and a token is accepted in the tick it was issued in and the next one.
const DefaultLifetime = 12 * time.Hour

// Action names.
const (
	ActionSave   = "save"
	ActionExport = "export"
	ActionImport = "import"
	ActionValues = "values"
)

// Manager signs and checks tokens with a shared secret.
type Manager struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lifetime = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New returns a Manager signing with secret.
func New(secret string, opts ...Option) *Manager {
	m := &Manager{secret: []byte(secret), lifetime: DefaultLifetime, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Create returns the token for action on group in the current tick.
func (m *Manager) Create(action, group string) string {
	return m.sign(action, group, m.tick())
}

// Verify reports whether token was issued for action on group during the
// current or previous tick.
func (m *Manager) Verify(token, action, group string) bool {
	if token == "" {
		return false
	}
	tick := m.tick()
	for _, t := range []int64{tick, tick - 1} {
		if hmac.Equal([]byte(token), []byte(m.sign(action, group, t))) {
			return true
		}
	}
	return false
}

func (m *Manager) tick() int64 {
	half := int64(m.lifetime / 2)
	if half <= 0 {
		half = 1
	}
	return m.now().UnixNano() / half
}

func (m *Manager) sign(action, group string, tick int64) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(action))
	mac.Write([]byte{'|'})
	mac.Write([]byte(group))
	return hex.EncodeToString(mac.Sum(nil))[:20]
}
