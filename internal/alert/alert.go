// Package alert delivers notifications for severe news items.
package alert

import (
	"fmt"
	"log"
	"strings"

	"github.com/dfgiraldo/movalert/internal/news"
)

// Dispatcher sends an alert for a news item and reports whether any
// channel delivered it.
type Dispatcher interface {
	SendAlert(item news.Item) bool
}

// Channel is a single delivery mechanism (console, file, email, telegram).
type Channel interface {
	Name() string
	Send(item news.Item) error
}

// Manager fans an alert out to every configured channel. Delivery counts
// as successful when at least one channel accepted it.
type Manager struct {
	channels []Channel
}

// NewManager creates a dispatcher over the given channels.
func NewManager(channels ...Channel) *Manager {
	return &Manager{channels: channels}
}

// SendAlert sends the item to every channel. Channel failures are logged
// and do not stop delivery to the remaining channels.
func (m *Manager) SendAlert(item news.Item) bool {
	delivered := false
	for _, ch := range m.channels {
		if err := ch.Send(item); err != nil {
			log.Printf("Alert via %s failed for item %d: %v", ch.Name(), item.ID, err)
			continue
		}
		delivered = true
	}
	return delivered
}

// FormatMessage renders the plain-text alert body shared by all channels.
func FormatMessage(item news.Item) string {
	var b strings.Builder

	severity := "unknown"
	if item.Enrichment != nil {
		severity = string(item.Enrichment.Severity)
	}
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(severity), item.Title)
	fmt.Fprintf(&b, "Source: %s\n", item.Source)

	if item.Enrichment != nil {
		if item.Enrichment.Area != "" {
			fmt.Fprintf(&b, "Area: %s\n", item.Enrichment.Area)
		}
		if item.Enrichment.Summary != "" {
			fmt.Fprintf(&b, "\n%s\n", item.Enrichment.Summary)
		}
		if len(item.Enrichment.Tags) > 0 {
			fmt.Fprintf(&b, "Tags: %s\n", strings.Join(item.Enrichment.Tags, ", "))
		}
	}

	fmt.Fprintf(&b, "\n%s", item.URL)
	return b.String()
}
