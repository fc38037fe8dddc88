package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"student-registry/internal/apperr"
	"student-registry/internal/metrics"
	"student-registry/internal/models"
	"student-registry/internal/repository"
)

const (
	// ChatLogCap is the number of messages retained; older ones are evicted first.
	ChatLogCap = 200
	// ChatReadWindow is the number of messages returned by Recent.
	ChatReadWindow = 100

	MaxChatMessageLength = 1000
)

type ChatService struct {
	chatRepo *repository.ChatRepository
	metrics  *metrics.Metrics
}

func NewChatService(chatRepo *repository.ChatRepository, m *metrics.Metrics) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		metrics:  m,
	}
}

// Post appends a message authored by actor
func (s *ChatService) Post(ctx context.Context, actor *models.User, text string) (*models.ChatMessage, error) {
	if err := Authorize(actor, OpChatPost); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > MaxChatMessageLength {
		return nil, fmt.Errorf("%w: message must be 1-%d characters", apperr.ErrInvalid, MaxChatMessageLength)
	}

	msg := &models.ChatMessage{
		Author: actor.Username,
		Text:   text,
	}
	if err := s.chatRepo.Append(ctx, msg, ChatLogCap); err != nil {
		return nil, err
	}

	s.metrics.ChatMessage()
	return msg, nil
}

// Recent returns the newest messages in arrival order
func (s *ChatService) Recent(ctx context.Context, actor *models.User) ([]models.ChatMessage, error) {
	if err := RequireActive(actor); err != nil {
		return nil, err
	}
	return s.chatRepo.Recent(ctx, ChatReadWindow)
}
