// Package ui provides short-lived status notifications for bubbletea views.
package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/melodeck/melodeck/style"
)

// NotificationLifetime is how long a notification stays on screen.
const NotificationLifetime = 2 * time.Second

// Model keeps the current notification.
type Model struct {
	notification string
	notifiedAt   time.Time
	now          func() time.Time
}

// NotificationMsg replaces the current notification.
type NotificationMsg string

// clearMsg carries the time of the notification it is meant to clear.
type clearMsg struct {
	notifiedAt time.Time
}

// Notify returns a command that shows text until it expires or is replaced.
func Notify(text string) tea.Cmd {
	return func() tea.Msg {
		return NotificationMsg(text)
	}
}

// Current returns the notification on screen, if any.
func (m *Model) Current() string {
	return m.notification
}

// Update handles notification messages. Other messages are ignored.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case NotificationMsg:
		m.notification = string(msg)
		m.notifiedAt = m.clock()
		notifiedAt := m.notifiedAt
		return tea.Tick(NotificationLifetime, func(time.Time) tea.Msg {
			return clearMsg{notifiedAt: notifiedAt}
		})
	case clearMsg:
		// a newer notification keeps its own timer
		if msg.notifiedAt.Equal(m.notifiedAt) {
			m.notification = ""
		}
	}
	return nil
}

// View appends the notification to the last line of content.
func (m *Model) View(content string) string {
	if m.notification == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	lines[len(lines)-1] += "  " + style.Faint(m.notification)
	return strings.Join(lines, "\n")
}

func (m *Model) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}
