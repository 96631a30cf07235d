package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mentoji/platform/pkg/logging"
)

const matchingSystemPrompt = "You are MentoJi's expert-matching assistant. Clients describe what they need help with; you ask short clarifying questions, then suggest the kind of expert and consultation length that fits. Keep replies brief and concrete. Never invent expert names or promise availability; direct clients to the booking page to reserve a time."

var assistantTracer = otel.Tracer("mentoji.internal.assistant")

// ErrSessionNotFound is returned when a session id has no stored transcript.
var ErrSessionNotFound = errors.New("session not found")

// Service runs matching sessions. Each session's transcript lives under its
// own Redis key, so concurrent clients never see each other's context.
type Service struct {
	llm     LLMClient
	history *historyStore
	logger  *logging.Logger
}

// NewService returns a Redis-backed matching assistant.
func NewService(llm LLMClient, redisClient *redis.Client, historyTTL time.Duration, logger *logging.Logger) *Service {
	if llm == nil {
		panic("assistant: llm client cannot be nil")
	}
	if redisClient == nil {
		panic("assistant: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		llm:     llm,
		history: newHistoryStore(redisClient, historyTTL, assistantTracer),
		logger:  logger,
	}
}

// StartSession opens a new session, generates the opening reply, and persists
// the transcript.
func (s *Service) StartSession(ctx context.Context, req StartRequest) (*StartResponse, error) {
	ctx, span := assistantTracer.Start(ctx, "assistant.start_session")
	defer span.End()

	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		return nil, fmt.Errorf("assistant: goal is required")
	}

	sessionID := fmt.Sprintf("sess_%s", uuid.NewString())
	span.SetAttributes(attribute.String("mentoji.session_id", sessionID))

	history := []ChatMessage{
		{Role: ChatRoleUser, Content: goal},
	}
	reply, err := s.llm.Complete(ctx, matchingSystemPrompt, history)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	history = append(history, ChatMessage{Role: ChatRoleAssistant, Content: reply})

	if err := s.history.Save(ctx, sessionID, history); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("assistant session started", "session_id", sessionID, "client_id", req.ClientID)
	return &StartResponse{SessionID: sessionID, Message: reply}, nil
}

// SendMessage continues an existing session with its stored transcript.
func (s *Service) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	ctx, span := assistantTracer.Start(ctx, "assistant.send_message")
	defer span.End()
	span.SetAttributes(attribute.String("mentoji.session_id", req.SessionID))

	if strings.TrimSpace(req.SessionID) == "" {
		return nil, fmt.Errorf("assistant: session id is required")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("assistant: message is required")
	}

	history, err := s.history.Load(ctx, req.SessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	history = append(history, ChatMessage{Role: ChatRoleUser, Content: message})
	reply, err := s.llm.Complete(ctx, matchingSystemPrompt, history)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	history = append(history, ChatMessage{Role: ChatRoleAssistant, Content: reply})

	if err := s.history.Save(ctx, req.SessionID, history); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &MessageResponse{SessionID: req.SessionID, Message: reply}, nil
}
