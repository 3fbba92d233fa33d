package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/app/models"
	"github.com/grimstore/grimstore/internal/pkg/commerce"
	"github.com/grimstore/grimstore/internal/pkg/push"
)

// ErrSessionStale marks a stored session id that no longer resolves to an
// active session. Callers drop the stored id and start fresh.
var ErrSessionStale = errors.New("chat: session no longer active")

// typingTTL is how long a typing indicator stays on without renewal.
const typingTTL = 2 * time.Second

// API is the slice of the commerce client the chat service needs.
type API interface {
	StartUserChatSession(ctx context.Context, token string) (string, error)
	StartGuestChatSession(ctx context.Context, guestName, guestEmail string) (string, error)
	ChatSessionHistory(ctx context.Context, token, sessionID string) (*commerce.ChatSession, error)
	EndChatSession(ctx context.Context, token, sessionID string) error
}

// Channel is the slice of the push client the chat service needs.
type Channel interface {
	Emit(event string, data interface{}) error
	JoinRoom(room string) error
	LeaveRoom(room string)
}

// Identity is who is chatting. Token set means an authenticated user,
// otherwise the guest fields are used.
type Identity struct {
	Token      string
	GuestName  string
	GuestEmail string
}

// Service drives support chat sessions against the core. Messages and
// typing indicators travel over the push channel, session lifecycle over
// HTTP.
type Service struct {
	api     API
	channel Channel

	mu           sync.Mutex
	typingTimers map[string]*time.Timer
}

// NewService builds a chat service.
func NewService(api API, channel Channel) *Service {
	return &Service{
		api:          api,
		channel:      channel,
		typingTimers: make(map[string]*time.Timer),
	}
}

// Resume loads the history of a stored session id. A session the core no
// longer knows, refuses to serve or has closed comes back as
// ErrSessionStale.
func (s *Service) Resume(ctx context.Context, token, sessionID string) (*commerce.ChatSession, error) {
	session, err := s.api.ChatSessionHistory(ctx, token, sessionID)
	if err != nil {
		if errors.Is(err, commerce.ErrNotFound) {
			return nil, ErrSessionStale
		}
		var apiErr *commerce.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case 401, 403, 404:
				return nil, ErrSessionStale
			}
		}
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrSessionStale
	}
	if err := s.channel.JoinRoom(sessionID); err != nil {
		log.Warnf("[Chat] Join of session %s failed: %v", sessionID, err)
	}
	return session, nil
}

// Start opens a new session for the identity and joins its push room.
func (s *Service) Start(ctx context.Context, id Identity) (string, error) {
	var sessionID string
	var err error
	if id.Token != "" {
		sessionID, err = s.api.StartUserChatSession(ctx, id.Token)
	} else {
		sessionID, err = s.api.StartGuestChatSession(ctx, id.GuestName, id.GuestEmail)
	}
	if err != nil {
		return "", err
	}
	if err := s.channel.JoinRoom(sessionID); err != nil {
		log.Warnf("[Chat] Join of session %s failed: %v", sessionID, err)
	}
	return sessionID, nil
}

// Ensure resumes the stored session when it is still active, otherwise
// starts a new one. The returned session carries no messages when it is
// fresh.
func (s *Service) Ensure(ctx context.Context, id Identity, storedID string) (*commerce.ChatSession, error) {
	if storedID != "" {
		session, err := s.Resume(ctx, id.Token, storedID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrSessionStale) {
			return nil, err
		}
	}

	sessionID, err := s.Start(ctx, id)
	if err != nil {
		return nil, err
	}
	return &commerce.ChatSession{
		ID:         sessionID,
		GuestName:  id.GuestName,
		GuestEmail: id.GuestEmail,
		IsActive:   true,
	}, nil
}

// Send emits one message into the session.
func (s *Service) Send(sessionID, content string) error {
	return s.channel.Emit(push.EventSendMessage, map[string]string{
		"sessionId": sessionID,
		"content":   content,
		"sender":    models.CHAT_SENDER_USER,
	})
}

// Reply emits one admin message into the session. The token authenticates
// the sender at the core.
func (s *Service) Reply(token, sessionID, content string) error {
	if err := s.channel.JoinRoom(sessionID); err != nil {
		log.Warnf("[Chat] Join of session %s failed: %v", sessionID, err)
	}
	return s.channel.Emit(push.EventSendMessage, map[string]string{
		"sessionId": sessionID,
		"content":   content,
		"sender":    models.CHAT_SENDER_ADMIN,
		"token":     token,
	})
}

// Typing turns the typing indicator on or off. An indicator turned on
// clears itself after two seconds unless renewed.
func (s *Service) Typing(sessionID string, typing bool) error {
	s.mu.Lock()
	if timer, ok := s.typingTimers[sessionID]; ok {
		timer.Stop()
		delete(s.typingTimers, sessionID)
	}
	if typing {
		s.typingTimers[sessionID] = time.AfterFunc(typingTTL, func() {
			s.mu.Lock()
			delete(s.typingTimers, sessionID)
			s.mu.Unlock()
			if err := s.emitTyping(sessionID, false); err != nil {
				log.Debugf("[Chat] Typing auto-clear for %s not delivered: %v", sessionID, err)
			}
		})
	}
	s.mu.Unlock()

	return s.emitTyping(sessionID, typing)
}

// End closes the session at the core and leaves its push room.
func (s *Service) End(ctx context.Context, token, sessionID string) error {
	s.mu.Lock()
	if timer, ok := s.typingTimers[sessionID]; ok {
		timer.Stop()
		delete(s.typingTimers, sessionID)
	}
	s.mu.Unlock()

	s.channel.LeaveRoom(sessionID)
	return s.api.EndChatSession(ctx, token, sessionID)
}

func (s *Service) emitTyping(sessionID string, typing bool) error {
	return s.channel.Emit(push.EventTyping, map[string]interface{}{
		"sessionId": sessionID,
		"isTyping":  typing,
	})
}
