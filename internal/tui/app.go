package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inboxsweep/internal/gmail"
	"inboxsweep/internal/model"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	gmailv1 "google.golang.org/api/gmail/v1"
)

// The terminal client acts for the account that authorized it.
const localUser = "me"

const (
	scanPageSize = 100
	maxScanPages = 5
)

type viewState int

const (
	viewLoading  viewState = iota
	viewAuth               // waiting for auth code input
	viewGroups             // senders with unsubscribe links
	viewMessages           // candidates from one sender
	viewBody               // single message text
)

type AppModel struct {
	sweeper   *gmail.Sweeper
	log       *zap.Logger
	configDir string
	Err       error
	status    string

	// Auth flow
	uiEvents      chan interface{}
	userResponses chan string
	textInput     textinput.Model
	authURL       string

	view          viewState
	archive       bool
	groups        []model.SenderGroup
	selectedGroup *model.SenderGroup
	selectedEmail *model.UnsubscribeEmail

	groupsList   list.Model
	messagesList list.Model
	bodyViewport viewport.Model

	width, height int

	// Program reference for sending messages from goroutines
	program *tea.Program
}

// SetProgram stores a reference to the tea.Program so goroutines can send
// progress messages back to the Update loop.
func (m *AppModel) SetProgram(p *tea.Program) {
	m.program = p
}

func NewAppModel(configDir string, log *zap.Logger) AppModel {
	if log == nil {
		log = zap.NewNop()
	}
	ti := textinput.New()
	ti.Placeholder = "Paste auth code here"
	ti.Focus()

	gl := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	// Remove esc from the list's built-in Quit binding so it doesn't exit on home
	gl.KeyMap.Quit.SetKeys("q")

	return AppModel{
		log:           log,
		configDir:     configDir,
		status:        "Authenticating...",
		view:          viewLoading,
		archive:       true,
		uiEvents:      make(chan interface{}),
		userResponses: make(chan string),
		textInput:     ti,
		groupsList:    gl,
		messagesList:  list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0),
		bodyViewport:  viewport.New(0, 0),
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.authenticateCmd(), textinput.Blink)
}

func (m *AppModel) authenticateCmd() tea.Cmd {
	return func() tea.Msg {
		go func() {
			svc, err := gmail.NewServiceInteractive(context.Background(), m.configDir, m.uiEvents, m.userResponses)
			m.uiEvents <- authResultMsg{service: svc, err: err}
		}()

		// The auth flow sends the auth URL as a plain string first, then the
		// goroutine above sends authResultMsg when done.
		event := <-m.uiEvents
		switch v := event.(type) {
		case string:
			return authURLMsg(v)
		default:
			return event
		}
	}
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listH := msg.Height - 4 // room for footer
		m.groupsList.SetSize(msg.Width, listH)
		m.messagesList.SetSize(msg.Width, listH)
		m.bodyViewport.Width = msg.Width
		m.bodyViewport.Height = msg.Height - 6 // room for header + footer
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case authResultMsg:
		if msg.err != nil {
			m.Err = msg.err
			m.status = "Authentication failed!"
			return m, tea.Quit
		}
		mailbox := gmail.NewSingleMailbox(gmail.NewAPIMailbox(msg.service))
		m.sweeper = gmail.NewSweeper(mailbox, gmail.DefaultWorkers, m.log)
		m.status = "Scanning inbox..."
		return m, m.scanCmd()

	case authURLMsg:
		m.authURL = string(msg)
		m.view = viewAuth
		return m, nil

	case scanProgressMsg:
		m.status = fmt.Sprintf("Scanning inbox... page %d, %d candidates", msg.page, msg.found)
		return m, nil

	case scanCompleteMsg:
		if msg.err != nil {
			m.Err = msg.err
			m.status = "Scan failed!"
			return m, tea.Quit
		}
		m.setGroups(msg.groups)
		m.view = viewGroups
		m.status = ""
		return m, nil

	case actionResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Unsubscribe failed: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Unsubscribed from %s (%d recorded, %d archived)", msg.sender, msg.recorded, msg.archived)
		}
		return m, clearStatusAfter(3 * time.Second)

	case detailFetchedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Failed to load message: %v", msg.err)
			return m, nil
		}
		d := msg.detail
		m.bodyViewport.SetContent(bodyHeader(d.Sender, d.Subject, d.Date) + "\n\n" + d.Text)
		m.bodyViewport.GotoTop()
		m.view = viewBody
		m.status = ""
		return m, nil

	case statusMsg:
		if string(msg) == "" {
			m.status = ""
		}
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewAuth:
		m.textInput, cmd = m.textInput.Update(msg)
	case viewGroups:
		m.groupsList, cmd = m.groupsList.Update(msg)
	case viewMessages:
		m.messagesList, cmd = m.messagesList.Update(msg)
	case viewBody:
		m.bodyViewport, cmd = m.bodyViewport.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.view {
	case viewAuth:
		switch key {
		case "enter":
			val := m.textInput.Value()
			m.textInput.Reset()
			return m, func() tea.Msg {
				m.userResponses <- val
				return <-m.uiEvents
			}
		case "q":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd

	case viewGroups:
		// When the list is filtering, let it handle all keys except ctrl+c
		if m.groupsList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.groupsList, cmd = m.groupsList.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m, tea.Quit
		case "enter":
			return m.enterGroup()
		case "u":
			return m.unsubscribeSelectedGroup()
		case "a":
			return m.toggleArchive()
		case "s":
			m.status = "Scanning inbox..."
			return m, m.scanCmd()
		}
		var cmd tea.Cmd
		m.groupsList, cmd = m.groupsList.Update(msg)
		return m, cmd

	case viewMessages:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = viewGroups
			m.selectedGroup = nil
			return m, nil
		case "enter":
			return m.enterMessage()
		case "u":
			if item, ok := m.messagesList.SelectedItem().(messageItem); ok {
				return m.unsubscribeEmails(item.Sender, []model.UnsubscribeEmail{item.UnsubscribeEmail})
			}
			return m, nil
		case "a":
			return m.toggleArchive()
		}
		var cmd tea.Cmd
		m.messagesList, cmd = m.messagesList.Update(msg)
		return m, cmd

	case viewBody:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = viewMessages
			m.selectedEmail = nil
			return m, nil
		case "o":
			if m.selectedEmail != nil {
				gmail.OpenBrowser(fmt.Sprintf("https://mail.google.com/mail/u/0/#inbox/%s", m.selectedEmail.ID))
			}
			return m, nil
		case "u":
			if m.selectedEmail != nil {
				return m.unsubscribeEmails(m.selectedEmail.Sender, []model.UnsubscribeEmail{*m.selectedEmail})
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.bodyViewport, cmd = m.bodyViewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *AppModel) setGroups(groups []model.SenderGroup) {
	m.groups = groups
	m.groupsList.SetItems(groupsToItems(groups))
	m.groupsList.Title = fmt.Sprintf("Unsubscribe candidates (%d senders)", len(groups))
}

func (m *AppModel) toggleArchive() (tea.Model, tea.Cmd) {
	m.archive = !m.archive
	if m.archive {
		m.status = "Archive after unsubscribe: on"
	} else {
		m.status = "Archive after unsubscribe: off"
	}
	return m, clearStatusAfter(2 * time.Second)
}

func (m *AppModel) enterGroup() (tea.Model, tea.Cmd) {
	gi, ok := m.groupsList.SelectedItem().(groupItem)
	if !ok {
		return m, nil
	}
	g := gi.SenderGroup
	m.selectedGroup = &g
	m.messagesList.SetItems(sortedMessageItems(g.Emails))
	m.messagesList.Title = fmt.Sprintf("%s (%d messages)", g.DisplayName, g.Count)
	m.view = viewMessages
	return m, nil
}

func (m *AppModel) enterMessage() (tea.Model, tea.Cmd) {
	mi, ok := m.messagesList.SelectedItem().(messageItem)
	if !ok {
		return m, nil
	}
	email := mi.UnsubscribeEmail
	m.selectedEmail = &email
	m.status = "Loading message..."
	return m, m.fetchDetailCmd(email.ID)
}

func (m *AppModel) unsubscribeSelectedGroup() (tea.Model, tea.Cmd) {
	gi, ok := m.groupsList.SelectedItem().(groupItem)
	if !ok {
		return m, nil
	}
	next, cmd := m.unsubscribeEmails(gi.DisplayName, gi.Emails)
	if firstLink(gi.Emails) != "" {
		// Optimistically remove from list
		m.groupsList.RemoveItem(m.groupsList.Index())
	}
	return next, cmd
}

// unsubscribeEmails opens the first link in the browser, then records the
// action for every email so each thread is archived when archiving is on.
func (m *AppModel) unsubscribeEmails(sender string, emails []model.UnsubscribeEmail) (tea.Model, tea.Cmd) {
	link := firstLink(emails)
	if link == "" {
		m.status = "No unsubscribe link available"
		return m, clearStatusAfter(2 * time.Second)
	}
	m.status = "Unsubscribing..."
	archive := m.archive
	return m, func() tea.Msg {
		if err := gmail.OpenBrowser(link); err != nil {
			return actionResultMsg{sender: sender, err: err}
		}
		res := actionResultMsg{sender: sender}
		for _, e := range emails {
			url := link
			if len(e.UnsubscribeLinks) > 0 {
				url = e.UnsubscribeLinks[0].URL
			}
			out, err := m.sweeper.RecordAction(context.Background(), localUser, model.ActionRequest{
				EmailID:        e.ID,
				UnsubscribeURL: url,
				ShouldArchive:  archive,
			})
			if err != nil {
				res.err = err
				return res
			}
			res.recorded++
			if out.Archived {
				res.archived++
			}
		}
		return res
	}
}

// firstLink prefers an http(s) link, since mailto links need a mail client.
func firstLink(emails []model.UnsubscribeEmail) string {
	fallback := ""
	for _, e := range emails {
		for _, l := range e.UnsubscribeLinks {
			if strings.HasPrefix(l.URL, "http") {
				return l.URL
			}
			if fallback == "" {
				fallback = l.URL
			}
		}
	}
	return fallback
}

// Commands

func (m *AppModel) scanCmd() tea.Cmd {
	return func() tea.Msg {
		emails, err := m.scan(context.Background())
		if err != nil {
			return scanCompleteMsg{err: err}
		}
		return scanCompleteMsg{groups: gmail.GroupBySender(emails)}
	}
}

// scan walks result pages until the search is exhausted or maxScanPages is reached.
func (m *AppModel) scan(ctx context.Context) ([]model.UnsubscribeEmail, error) {
	var all []model.UnsubscribeEmail
	token := ""
	for page := 1; page <= maxScanPages; page++ {
		res, err := m.sweeper.FetchCandidates(ctx, localUser, model.CandidateQuery{
			Page:      page,
			Limit:     scanPageSize,
			PageToken: token,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Emails...)
		if m.program != nil {
			m.program.Send(scanProgressMsg{page: page, found: len(all)})
		}
		if res.NextPageToken == nil {
			break
		}
		token = *res.NextPageToken
	}
	return all, nil
}

func (m *AppModel) fetchDetailCmd(messageID string) tea.Cmd {
	return func() tea.Msg {
		detail, err := m.sweeper.FetchEmailDetail(context.Background(), localUser, messageID)
		return detailFetchedMsg{detail: detail, err: err}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	if m.view == viewAuth {
		return "Please open this URL in your browser to authenticate:\n\n" +
			m.authURL + "\n\n" +
			m.textInput.View()
	}

	if m.Err != nil {
		return "Error: " + m.Err.Error() + "\n"
	}

	if m.view == viewLoading {
		if m.status != "" {
			return m.status + "\n"
		}
		return "Loading...\n"
	}

	var b strings.Builder

	switch m.view {
	case viewGroups:
		b.WriteString(m.groupsList.View())
		b.WriteString("\n")
		b.WriteString(groupsFooter(m.archive))
	case viewMessages:
		b.WriteString(m.messagesList.View())
		b.WriteString("\n")
		b.WriteString(messagesFooter(m.archive))
	case viewBody:
		b.WriteString(m.bodyViewport.View())
		b.WriteString("\n")
		b.WriteString(bodyFooter())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}

	return b.String()
}

// trimDate shortens an ISO timestamp for list rows.
func trimDate(iso string) string {
	if iso == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t.Format("Jan 2, 2006")
	}
	return iso
}

type authResultMsg struct {
	service *gmailv1.Service
	err     error
}

type authURLMsg string
