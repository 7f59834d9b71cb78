package gmail

import (
	"sort"

	"inboxsweep/internal/model"
	"inboxsweep/internal/util"
)

// GroupBySender aggregates candidates by normalized sender email. Links are
// merged per group without duplicate URLs. Senders that cannot be parsed are
// grouped under their raw From value.
func GroupBySender(emails []model.UnsubscribeEmail) []model.SenderGroup {
	groups := make(map[string]*model.SenderGroup)
	for _, e := range emails {
		key := util.SenderKey(e.Sender)
		if key == "" {
			key = e.Sender
		}
		g, ok := groups[key]
		if !ok {
			g = &model.SenderGroup{
				Email:       key,
				DisplayName: util.SenderDisplayName(e.Sender, key),
			}
			groups[key] = g
		}
		g.Count++
		g.Emails = append(g.Emails, e)
		// Dates share one fixed layout, so string order is time order.
		if e.Date > g.LatestDate {
			g.LatestDate = e.Date
		}
		for _, l := range e.UnsubscribeLinks {
			if !hasLink(g.UnsubscribeLinks, l.URL) {
				g.UnsubscribeLinks = append(g.UnsubscribeLinks, l)
			}
		}
	}
	return sortGroups(groups)
}

func hasLink(links []model.UnsubscribeLink, url string) bool {
	for _, l := range links {
		if l.URL == url {
			return true
		}
	}
	return false
}

// sortGroups returns a stable slice sorted by Count desc, then Email asc.
func sortGroups(m map[string]*model.SenderGroup) []model.SenderGroup {
	out := make([]model.SenderGroup, 0, len(m))
	for _, g := range m {
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Email < out[j].Email
		}
		return out[i].Count > out[j].Count
	})
	return out
}
