package gmail

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"inboxsweep/internal/model"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// RecordAction records an accepted unsubscribe. With ShouldArchive set the
// message's thread is taken out of the inbox and left unread; a failure there
// is logged and reported through Archived, never returned.
func (s *Sweeper) RecordAction(ctx context.Context, userID string, req model.ActionRequest) (model.ActionResult, error) {
	if strings.TrimSpace(req.EmailID) == "" || strings.TrimSpace(req.UnsubscribeURL) == "" {
		return model.ActionResult{}, fmt.Errorf("email id and unsubscribe url required: %w", ErrInvalidInput)
	}

	archived := false
	if req.ShouldArchive {
		if err := s.archiveThread(ctx, userID, req.EmailID); err != nil {
			s.log.Warn("archive after unsubscribe failed",
				zap.String("user_id", userID),
				zap.String("message_id", req.EmailID),
				zap.Error(err))
		} else {
			archived = true
		}
	}

	now := s.now()
	result := model.ActionResult{
		Success:        true,
		Message:        "Unsubscribe action recorded",
		ActionID:       ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		EmailID:        req.EmailID,
		UnsubscribeURL: req.UnsubscribeURL,
		Archived:       archived,
		Timestamp:      now.UTC().Format(model.ISOMillis),
	}
	s.log.Info("unsubscribe recorded",
		zap.String("action_id", result.ActionID),
		zap.String("user_id", userID),
		zap.String("message_id", req.EmailID),
		zap.Bool("archived", archived))
	return result, nil
}

func (s *Sweeper) archiveThread(ctx context.Context, userID, messageID string) error {
	mb, err := s.source.Mailbox(ctx, userID)
	if err != nil {
		return err
	}
	msg, err := mb.GetMessageMetadata(ctx, messageID)
	if err != nil {
		return fmt.Errorf("lookup thread: %w", err)
	}
	if msg == nil || msg.ThreadId == "" {
		return fmt.Errorf("message %s has no thread id", messageID)
	}
	return mb.ModifyThreadLabels(ctx, msg.ThreadId, []string{"INBOX"}, []string{"UNREAD"})
}
