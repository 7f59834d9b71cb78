package gmail

import (
	"context"

	gmailv1 "google.golang.org/api/gmail/v1"
)

const user = "me"

// SearchResult is one page of a message search.
type SearchResult struct {
	MessageIDs         []string
	ResultSizeEstimate int64
	NextPageToken      string
}

// Mailbox declares the remote mailbox operations the candidate pipeline and
// the action recorder depend on.
type Mailbox interface {
	SearchMessages(ctx context.Context, query string, maxResults int64, pageToken string) (SearchResult, error)
	GetMessageFull(ctx context.Context, id string) (*gmailv1.Message, error)
	GetMessageMetadata(ctx context.Context, id string) (*gmailv1.Message, error)
	ModifyThreadLabels(ctx context.Context, threadID string, remove, add []string) error
	LabelMessagesTotal(ctx context.Context, labelID string) (int64, error)
}

// APIMailbox implements Mailbox against the Gmail REST API.
type APIMailbox struct {
	svc *gmailv1.Service
}

func NewAPIMailbox(svc *gmailv1.Service) *APIMailbox {
	return &APIMailbox{svc: svc}
}

func (m *APIMailbox) SearchMessages(ctx context.Context, query string, maxResults int64, pageToken string) (SearchResult, error) {
	call := m.svc.Users.Messages.List(user).Q(query).MaxResults(maxResults)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return SearchResult{}, classify("list messages", err)
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return SearchResult{
		MessageIDs:         ids,
		ResultSizeEstimate: resp.ResultSizeEstimate,
		NextPageToken:      resp.NextPageToken,
	}, nil
}

func (m *APIMailbox) GetMessageFull(ctx context.Context, id string) (*gmailv1.Message, error) {
	msg, err := m.svc.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, classify("get message "+id, err)
	}
	return msg, nil
}

func (m *APIMailbox) GetMessageMetadata(ctx context.Context, id string) (*gmailv1.Message, error) {
	msg, err := m.svc.Users.Messages.Get(user, id).Format("metadata").Context(ctx).Do()
	if err != nil {
		return nil, classify("get message metadata "+id, err)
	}
	return msg, nil
}

func (m *APIMailbox) ModifyThreadLabels(ctx context.Context, threadID string, remove, add []string) error {
	req := &gmailv1.ModifyThreadRequest{
		RemoveLabelIds: remove,
		AddLabelIds:    add,
	}
	if _, err := m.svc.Users.Threads.Modify(user, threadID, req).Context(ctx).Do(); err != nil {
		return classify("modify thread "+threadID, err)
	}
	return nil
}

func (m *APIMailbox) LabelMessagesTotal(ctx context.Context, labelID string) (int64, error) {
	label, err := m.svc.Users.Labels.Get(user, labelID).Context(ctx).Do()
	if err != nil {
		return 0, classify("get label "+labelID, err)
	}
	return label.MessagesTotal, nil
}
