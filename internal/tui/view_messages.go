package tui

import (
	"fmt"
	"sort"

	"inboxsweep/internal/model"

	"github.com/charmbracelet/bubbles/list"
)

// messageItem wraps one candidate for the list display.
type messageItem struct {
	model.UnsubscribeEmail
}

func (m messageItem) FilterValue() string { return m.Subject }
func (m messageItem) Title() string       { return m.Subject }
func (m messageItem) Description() string {
	if m.Date != "" {
		return fmt.Sprintf("Date: %s  %s", trimDate(m.Date), m.Snippet)
	}
	return m.Snippet
}

func messagesFooter(archive bool) string {
	return footerStyle.Render(fmt.Sprintf("enter: view  u: unsubscribe  a: archive (%s)  esc: back  q: quit", archiveLabel(archive)))
}

// sortedMessageItems returns candidates newest first as list items.
func sortedMessageItems(emails []model.UnsubscribeEmail) []list.Item {
	sorted := make([]model.UnsubscribeEmail, len(emails))
	copy(sorted, emails)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})
	items := make([]list.Item, len(sorted))
	for i, e := range sorted {
		items[i] = messageItem{e}
	}
	return items
}
