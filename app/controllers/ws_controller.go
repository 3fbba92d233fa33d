package controllers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/internal/pkg/lookup"
	"github.com/grimstore/grimstore/internal/pkg/metrics/counter"
	"github.com/grimstore/grimstore/internal/pkg/orderwatch"
	"github.com/grimstore/grimstore/internal/pkg/push"
	"github.com/grimstore/grimstore/internal/pkg/usercontext"
)

type statusFrame struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Terminal bool   `json:"terminal"`
}

// HandleOrderSocket streams status transitions of one transaction to the
// browser. The client may send {"action":"sync"} to force a re-check.
func HandleOrderSocket(c *websocket.Conn) {
	trxID := c.Params("id")
	m := orderwatch.GetManager()
	if m == nil {
		c.Close()
		return
	}

	w, err := m.Watch(context.Background(), trxID)
	if err != nil {
		c.WriteJSON(map[string]string{"error": "transaction not found"})
		c.Close()
		return
	}

	frames := make(chan statusFrame, 8)
	emit := func(status string) {
		frame := statusFrame{ID: trxID, Status: status, Terminal: orderwatch.IsTerminal(status)}
		select {
		case frames <- frame:
		default:
		}
	}
	unsubscribe := w.Subscribe(func(_, status string) { emit(status) })
	defer unsubscribe()
	emit(w.Status())

	// Reader: sync commands and disconnect detection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd struct {
				Action string `json:"action"`
			}
			if err := c.ReadJSON(&cmd); err != nil {
				return
			}
			if cmd.Action == "sync" {
				if _, err := w.Sync(context.Background()); err != nil && !errors.Is(err, orderwatch.ErrUnchanged) {
					log.Debugf("[Order] Socket sync for %s failed: %v", trxID, err)
				}
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case frame := <-frames:
			if err := c.WriteJSON(frame); err != nil {
				return
			}
			if frame.Terminal {
				c.Close()
				<-done
				return
			}
		}
	}
}

// HandleChatSocket relays one chat session between the browser and the core
// push channel.
func HandleChatSocket(c *websocket.Conn) {
	sessionID := c.Params("sessionID")
	if chatHub == nil || chatService == nil {
		c.Close()
		return
	}

	inbound, cancel := chatHub.Subscribe(sessionID)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var frame struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := c.ReadJSON(&frame); err != nil {
				return
			}
			switch frame.Event {
			case push.EventSendMessage:
				var msg struct {
					Content string `json:"content"`
				}
				if err := json.Unmarshal(frame.Data, &msg); err != nil || msg.Content == "" {
					continue
				}
				if err := chatService.Send(sessionID, msg.Content); err != nil {
					log.Debugf("[Chat] Relay send for %s failed: %v", sessionID, err)
					continue
				}
				counter.Incr(counter.KeyChatMessages)
			case push.EventTyping:
				var typing struct {
					IsTyping bool `json:"isTyping"`
				}
				if err := json.Unmarshal(frame.Data, &typing); err != nil {
					continue
				}
				if err := chatService.Typing(sessionID, typing.IsTyping); err != nil {
					log.Debugf("[Chat] Relay typing for %s failed: %v", sessionID, err)
				}
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case in, ok := <-inbound:
			if !ok {
				return
			}
			if err := c.WriteJSON(in); err != nil {
				return
			}
		}
	}
}

// HandleAdminChatSocket relays every chat session to the admin console and
// carries admin replies back. Only reachable with an admin session.
func HandleAdminChatSocket(c *websocket.Conn) {
	isAdmin, _ := c.Locals(usercontext.KeyIsAdmin).(bool)
	if !isAdmin || chatHub == nil || chatService == nil {
		c.Close()
		return
	}
	userCtx, _ := c.Locals(usercontext.ContextKey).(usercontext.UserContext)

	inbound, cancel := chatHub.SubscribeAdmin()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var frame struct {
				Event     string `json:"event"`
				SessionID string `json:"sessionId"`
				Content   string `json:"content"`
				IsTyping  bool   `json:"isTyping"`
			}
			if err := c.ReadJSON(&frame); err != nil {
				return
			}
			if frame.SessionID == "" {
				continue
			}
			switch frame.Event {
			case push.EventSendMessage:
				if frame.Content == "" {
					continue
				}
				if err := chatService.Reply(userCtx.Token, frame.SessionID, frame.Content); err != nil {
					log.Debugf("[Chat] Admin reply for %s failed: %v", frame.SessionID, err)
					continue
				}
				counter.Incr(counter.KeyChatMessages)
			case push.EventTyping:
				if err := chatService.Typing(frame.SessionID, frame.IsTyping); err != nil {
					log.Debugf("[Chat] Admin typing for %s failed: %v", frame.SessionID, err)
				}
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case in, ok := <-inbound:
			if !ok {
				return
			}
			if err := c.WriteJSON(in); err != nil {
				return
			}
		}
	}
}

// HandleLookupSocket verifies game accounts as the user types. Each edit is
// one frame; the per-connection debounce makes sure only the final state of
// a burst reaches the core.
func HandleLookupSocket(c *websocket.Conn) {
	verifier := lookup.NewVerifier(coreClient)
	defer verifier.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var q lookup.Query
			if err := c.ReadJSON(&q); err != nil {
				return
			}
			if err := verifier.Submit(q); err != nil && !errors.Is(err, lookup.ErrIncomplete) {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case res := <-verifier.Results():
			payload := map[string]interface{}{
				"userId":   res.Query.TargetID,
				"found":    res.Found,
				"username": res.Username,
			}
			if res.Err != nil {
				payload["error"] = "lookup failed"
			}
			if err := c.WriteJSON(payload); err != nil {
				return
			}
		}
	}
}
