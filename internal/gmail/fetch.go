package gmail

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"inboxsweep/internal/model"

	"go.uber.org/zap"
	gmailv1 "google.golang.org/api/gmail/v1"
)

const (
	unsubscribeTerms = `has:unsubscribe OR "unsubscribe" OR "opt out" OR "remove me"`
	statsQuery       = `in:inbox has:unsubscribe OR "unsubscribe" OR "opt out"`

	// DefaultWorkers bounds concurrent message fetches per request.
	DefaultWorkers = 16
)

// MailboxSource resolves the mailbox a user has delegated to us.
type MailboxSource interface {
	Mailbox(ctx context.Context, userID string) (Mailbox, error)
}

// Sweeper runs the unsubscribe operations for a user's mailbox.
type Sweeper struct {
	source  MailboxSource
	workers int
	log     *zap.Logger
	now     func() time.Time
}

func NewSweeper(source MailboxSource, workers int, log *zap.Logger) *Sweeper {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{source: source, workers: workers, log: log, now: time.Now}
}

// BuildSearchQuery composes the Gmail search for unsubscribe candidates.
func BuildSearchQuery(q model.CandidateQuery) string {
	query := unsubscribeTerms
	if !q.IncludeArchived {
		query = "in:inbox " + query
	}
	if sender := strings.TrimSpace(q.Sender); sender != "" {
		if strings.ContainsAny(sender, " \t") {
			sender = `"` + strings.ReplaceAll(sender, `"`, "") + `"`
		}
		query += " from:" + sender
	}
	return query
}

// FetchCandidates searches the user's mailbox and returns the messages that
// carry at least one unsubscribe link, in search order. Messages that fail to
// load are dropped from the page; a failed search fails the call.
func (s *Sweeper) FetchCandidates(ctx context.Context, userID string, q model.CandidateQuery) (model.PageResult, error) {
	if q.Page < 1 || q.Limit <= 0 {
		return model.PageResult{}, fmt.Errorf("page %d limit %d: %w", q.Page, q.Limit, ErrInvalidInput)
	}
	mb, err := s.source.Mailbox(ctx, userID)
	if err != nil {
		return model.PageResult{}, err
	}

	pageToken := ""
	if q.Page > 1 {
		pageToken = q.PageToken
	}
	res, err := mb.SearchMessages(ctx, BuildSearchQuery(q), int64(q.Limit), pageToken)
	if err != nil {
		return model.PageResult{}, classify("search candidates", err)
	}
	if len(res.MessageIDs) == 0 {
		return model.PageResult{Emails: []model.UnsubscribeEmail{}}, nil
	}

	ids := res.MessageIDs
	if len(ids) > q.Limit {
		ids = ids[:q.Limit]
	}
	msgs := s.fetchFull(ctx, mb, ids)

	emails := make([]model.UnsubscribeEmail, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		email, err := candidateFromMessage(msg)
		if err != nil {
			s.log.Warn("skip unreadable message", zap.String("message_id", msg.Id), zap.Error(err))
			continue
		}
		if len(email.UnsubscribeLinks) == 0 {
			continue
		}
		emails = append(emails, email)
	}

	out := model.PageResult{Emails: emails, TotalCount: res.ResultSizeEstimate}
	if res.NextPageToken != "" {
		token := res.NextPageToken
		out.NextPageToken = &token
	}
	return out, nil
}

// fetchFull loads full messages with a bounded worker pool. The result keeps
// the order of ids; a message that failed to load is nil.
func (s *Sweeper) fetchFull(ctx context.Context, mb Mailbox, ids []string) []*gmailv1.Message {
	out := make([]*gmailv1.Message, len(ids))
	jobs := make(chan int, len(ids))
	for i := range ids {
		jobs <- i
	}
	close(jobs)

	workerCount := s.workers
	if workerCount > len(ids) {
		workerCount = len(ids)
	}
	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				msg, err := mb.GetMessageFull(ctx, ids[i])
				if err != nil {
					s.log.Warn("fetch message failed", zap.String("message_id", ids[i]), zap.Error(err))
					continue
				}
				out[i] = msg
			}
		}()
	}
	wg.Wait()
	return out
}

func candidateFromMessage(msg *gmailv1.Message) (model.UnsubscribeEmail, error) {
	var headers map[string]string
	body := ""
	if msg.Payload != nil {
		headers = NormalizeHeaders(msg.Payload.Headers)
		b, err := ResolveBody(msg.Payload)
		if err != nil {
			return model.UnsubscribeEmail{}, err
		}
		body = b
	}
	return model.UnsubscribeEmail{
		ID:               msg.Id,
		ThreadID:         msg.ThreadId,
		Sender:           headerOr(headers, "from", "Unknown"),
		Subject:          headerOr(headers, "subject", "No Subject"),
		Date:             formatInternalDate(msg.InternalDate),
		UnsubscribeLinks: ExtractUnsubscribeLinks(headers, body),
		Snippet:          msg.Snippet,
	}, nil
}

// FetchEmailDetail loads one message for preview.
func (s *Sweeper) FetchEmailDetail(ctx context.Context, userID, emailID string) (model.EmailDetail, error) {
	if strings.TrimSpace(emailID) == "" {
		return model.EmailDetail{}, fmt.Errorf("email id required: %w", ErrInvalidInput)
	}
	mb, err := s.source.Mailbox(ctx, userID)
	if err != nil {
		return model.EmailDetail{}, err
	}
	msg, err := mb.GetMessageFull(ctx, emailID)
	if err != nil {
		return model.EmailDetail{}, classify("fetch email detail", err)
	}

	headers := map[string]string{}
	body := ""
	if msg.Payload != nil {
		headers = NormalizeHeaders(msg.Payload.Headers)
		if body, err = ResolveBody(msg.Payload); err != nil {
			return model.EmailDetail{}, fmt.Errorf("resolve body of %s: %w", emailID, err)
		}
	}
	text := HTMLToText(body)
	if text == "" {
		text = msg.Snippet
	}
	return model.EmailDetail{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Subject:  headerOr(headers, "subject", "No Subject"),
		Sender:   headerOr(headers, "from", "Unknown"),
		Date:     formatInternalDate(msg.InternalDate),
		Body:     body,
		Text:     text,
		Headers:  headers,
	}, nil
}

// FetchStats reports inbox size and the estimated number of unsubscribe candidates.
func (s *Sweeper) FetchStats(ctx context.Context, userID string) (model.Stats, error) {
	mb, err := s.source.Mailbox(ctx, userID)
	if err != nil {
		return model.Stats{}, err
	}
	total, err := mb.LabelMessagesTotal(ctx, "INBOX")
	if err != nil {
		return model.Stats{}, classify("inbox stats", err)
	}
	res, err := mb.SearchMessages(ctx, statsQuery, 1, "")
	if err != nil {
		return model.Stats{}, classify("unsubscribe stats", err)
	}
	return model.Stats{
		TotalInboxEmails:       total,
		UnsubscribeEmailsCount: res.ResultSizeEstimate,
		LastUpdated:            s.now().UTC().Format(model.ISOMillis),
	}, nil
}

func headerOr(headers map[string]string, name, fallback string) string {
	if v := headers[name]; v != "" {
		return v
	}
	return fallback
}

func formatInternalDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(model.ISOMillis)
}
