package tui

import "inboxsweep/internal/model"

// Async message types for Bubble Tea commands.

type scanProgressMsg struct {
	page  int
	found int
}

type scanCompleteMsg struct {
	groups []model.SenderGroup
	err    error
}

type actionResultMsg struct {
	sender   string
	recorded int
	archived int
	err      error
}

type detailFetchedMsg struct {
	detail model.EmailDetail
	err    error
}

type statusMsg string
