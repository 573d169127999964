package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/beijibiao/signstudio/internal/notify"
)

// FeedbackService forwards contact-form messages to the operator's
// notification channel.
type FeedbackService struct {
	notifier notify.Notifier
}

func NewFeedbackService(notifier notify.Notifier) *FeedbackService {
	return &FeedbackService{notifier: notifier}
}

func (s *FeedbackService) Submit(ctx context.Context, contact, message string) error {
	contact = strings.TrimSpace(contact)
	message = strings.TrimSpace(message)
	if contact == "" || message == "" {
		return fmt.Errorf("%w: contact and message are required", ErrInvalidInput)
	}
	if err := s.notifier.Push(ctx, contact, message); err != nil {
		return fmt.Errorf("push feedback: %w", err)
	}
	return nil
}
