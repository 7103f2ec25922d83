package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// ProcessMessage runs one turn: resolve the conversation, classify, reply,
// and persist the user message together with the reply.
func (s *Service) ProcessMessage(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error) {
	start := time.Now()

	if err := s.policyEngine.Validate(ctx, req); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		s.logger.Error("turn validation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to validate request: %w", err)
	}

	// Requests without a session id always get a fresh conversation, so
	// only supplied ids need serializing.
	if req.SessionID != "" {
		unlock := s.locks.Lock(req.SessionID)
		defer unlock()
	}

	conv, err := s.resolveConversation(ctx, req)
	if err != nil {
		s.logger.Error("failed to resolve conversation",
			zap.String("session_id", req.SessionID), zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	userMsg := &domain.Message{
		Role:      domain.RoleUser,
		Content:   req.Message,
		CreatedAt: s.now(),
	}

	in := s.classifier.Classify(req.Message)
	r := s.generator.Generate(ctx, in, req.Message)

	assistantMsg := &domain.Message{
		Role:                domain.RoleAssistant,
		Content:             r.Text,
		Intent:              in,
		ExternalServiceUsed: r.ExternalService,
		CreatedAt:           s.now(),
	}

	// The reply is already computed; a caller that went away must not leave
	// the turn half written.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.StoreTimeout)
	defer cancel()
	if err := s.store.AppendTurn(writeCtx, conv.SessionID, userMsg, assistantMsg); err != nil {
		s.logger.Error("failed to persist turn", zap.String("session_id", conv.SessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to persist turn: %w", err)
	}

	s.metrics.MessageProcessed()
	s.metrics.IntentDetected(in)
	s.metrics.ObserveLatency(in, time.Since(start))

	s.logger.Debug("turn processed",
		zap.String("session_id", conv.SessionID),
		zap.String("intent", string(in)),
		zap.Int("seq", assistantMsg.Seq))

	return &domain.TurnResult{
		SessionID:           conv.SessionID,
		Message:             assistantMsg.Content,
		Intent:              in,
		ExternalServiceUsed: assistantMsg.ExternalServiceUsed,
		ConversationActive:  conv.Active(),
		Timestamp:           assistantMsg.CreatedAt,
	}, nil
}

// resolveConversation returns the conversation for req.SessionID, creating
// one when no id was supplied or the supplied id is unknown.
func (s *Service) resolveConversation(ctx context.Context, req domain.TurnRequest) (*domain.Conversation, error) {
	sessionID := req.SessionID
	if sessionID != "" {
		conv, err := s.store.GetConversation(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get conversation: %w", err)
		}
		if conv != nil {
			return conv, nil
		}
		if !s.config.AdoptClientSessionID {
			sessionID = ""
		}
	}
	if sessionID == "" {
		sessionID = s.newID()
	}

	conv := &domain.Conversation{
		SessionID: sessionID,
		UserID:    req.UserID,
		Status:    domain.ConversationStatusActive,
		StartedAt: s.now(),
	}
	created, err := s.store.CreateConversation(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	if !created {
		// another instance created it first
		existing, err := s.store.GetConversation(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get conversation: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("conversation %s vanished after create", sessionID)
		}
		return existing, nil
	}

	s.metrics.ConversationCreated()
	s.logger.Info("conversation created", zap.String("session_id", sessionID), zap.String("user_id", req.UserID))
	return conv, nil
}

// GetHistory returns the transcript of a conversation.
func (s *Service) GetHistory(ctx context.Context, sessionID string) (*domain.HistoryResponse, error) {
	conv, err := s.store.GetHistory(ctx, sessionID)
	if err != nil {
		s.logger.Error("failed to load history", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, sessionID)
	}
	return domain.NewHistoryResponse(conv), nil
}

// EndConversation completes an ACTIVE conversation. Unknown and already
// completed sessions are both reported as not found.
func (s *Service) EndConversation(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrNotFound)
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	ended, err := s.store.EndConversation(ctx, sessionID, s.now())
	if err != nil {
		s.logger.Error("failed to end conversation", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("failed to end conversation: %w", err)
	}
	if !ended {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, sessionID)
	}

	s.metrics.ConversationEnded()
	s.logger.Info("conversation ended", zap.String("session_id", sessionID))
	return nil
}

// MetricsSummary returns the current counter values.
func (s *Service) MetricsSummary() domain.MetricsSummary {
	return s.metrics.Summary()
}
