package tui

import (
	"fmt"

	"inboxsweep/internal/model"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// groupItem wraps SenderGroup to customize list display.
type groupItem struct {
	model.SenderGroup
}

func (g groupItem) Title() string {
	return fmt.Sprintf("%s (%d)", g.DisplayName, g.Count)
}

func (g groupItem) Description() string {
	links := len(g.UnsubscribeLinks)
	suffix := "s"
	if links == 1 {
		suffix = ""
	}
	return fmt.Sprintf("%s  latest %s  %d link%s", g.Email, trimDate(g.LatestDate), links, suffix)
}

var (
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingTop(1)
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

func archiveLabel(archive bool) string {
	if archive {
		return "on"
	}
	return "off"
}

func groupsFooter(archive bool) string {
	return footerStyle.Render(fmt.Sprintf("enter: open  u: unsubscribe sender  a: archive (%s)  s: rescan  q: quit", archiveLabel(archive)))
}

func groupsToItems(groups []model.SenderGroup) []list.Item {
	items := make([]list.Item, len(groups))
	for i, g := range groups {
		items[i] = groupItem{g}
	}
	return items
}
