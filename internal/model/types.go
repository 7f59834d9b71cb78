package model

import (
	"time"

	"golang.org/x/oauth2"
)

// Link sources.
const (
	SourceHeader = "header" // List-Unsubscribe header
	SourceBody   = "body"   // href scanned from the HTML body
)

// ISOMillis is the timestamp layout used on the wire (JavaScript toISOString).
const ISOMillis = "2006-01-02T15:04:05.000Z07:00"

// UnsubscribeLink is one unsubscribe action found in a message.
type UnsubscribeLink struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

// UnsubscribeEmail is a candidate message carrying at least one unsubscribe link.
type UnsubscribeEmail struct {
	ID               string            `json:"id"`
	ThreadID         string            `json:"threadId"`
	Sender           string            `json:"sender"`
	Subject          string            `json:"subject"`
	Date             string            `json:"date"`
	UnsubscribeLinks []UnsubscribeLink `json:"unsubscribeLinks"`
	Snippet          string            `json:"snippet"`
}

// PageResult is one page of candidates. TotalCount is the provider's estimate
// and does not have to match len(Emails).
type PageResult struct {
	Emails        []UnsubscribeEmail `json:"emails"`
	TotalCount    int64              `json:"totalCount"`
	NextPageToken *string            `json:"nextPageToken"`
}

// CandidateQuery holds the caller's paging and filter parameters.
type CandidateQuery struct {
	Page            int
	Limit           int
	Sender          string
	PageToken       string
	IncludeArchived bool
}

// ActionRequest is an accepted unsubscribe decision.
type ActionRequest struct {
	EmailID        string `json:"emailId"`
	UnsubscribeURL string `json:"unsubscribeUrl"`
	ShouldArchive  bool   `json:"shouldArchive"`
}

// ActionResult reports a recorded unsubscribe. Success is always true once the
// request passed validation; Archived tells whether the thread left the inbox.
type ActionResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ActionID       string `json:"actionId"`
	EmailID        string `json:"emailId"`
	UnsubscribeURL string `json:"unsubscribeUrl"`
	Archived       bool   `json:"archived"`
	Timestamp      string `json:"timestamp"`
}

// EmailDetail is a single message prepared for preview.
type EmailDetail struct {
	ID       string            `json:"id"`
	ThreadID string            `json:"threadId"`
	Subject  string            `json:"subject"`
	Sender   string            `json:"sender"`
	Date     string            `json:"date"`
	Body     string            `json:"body"`
	Text     string            `json:"text"`
	Headers  map[string]string `json:"headers"`
}

// Stats are aggregate mailbox numbers.
type Stats struct {
	TotalInboxEmails       int64  `json:"totalInboxEmails"`
	UnsubscribeEmailsCount int64  `json:"unsubscribeEmailsCount"`
	LastUpdated            string `json:"lastUpdated"`
}

// SenderGroup aggregates candidates by normalized sender email.
type SenderGroup struct {
	Email            string
	DisplayName      string
	Count            int
	LatestDate       string
	Emails           []UnsubscribeEmail
	UnsubscribeLinks []UnsubscribeLink // deduplicated by URL across the group
}

func (g SenderGroup) FilterValue() string { return g.DisplayName + " " + g.Email }

// User is the signed-in identity returned to clients.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Session is a signed-in user's delegated mailbox credential and profile.
type Session struct {
	UserID    string        `json:"userId"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Picture   string        `json:"picture"`
	Token     *oauth2.Token `json:"token"`
	LoginTime time.Time     `json:"loginTime"`
}

// User returns the public profile of the session.
func (s Session) User() User {
	return User{ID: s.UserID, Email: s.Email, Name: s.Name, Picture: s.Picture}
}
