package controllers

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grimstore/grimstore/internal/pkg/chat"
	"github.com/grimstore/grimstore/internal/pkg/usercontext"
)

type recordingChatChannel struct {
	mu     sync.Mutex
	joined []string
	left   []string
}

func (r *recordingChatChannel) Emit(event string, data interface{}) error { return nil }

func (r *recordingChatChannel) JoinRoom(room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joined = append(r.joined, room)
	return nil
}

func (r *recordingChatChannel) LeaveRoom(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.left = append(r.left, room)
}

// installChatService wires a chat service against the current core stub.
// Call after newCoreStub.
func installChatService(t *testing.T) *recordingChatChannel {
	t.Helper()

	channel := &recordingChatChannel{}
	prevSvc, prevHub := chatService, chatHub
	SetChatService(chat.NewService(GetCoreClient(), channel), nil)
	t.Cleanup(func() { SetChatService(prevSvc, prevHub) })
	return channel
}

func TestChatStartGuestValidation(t *testing.T) {
	installMemorySession(t)
	installFakeRepos(t)
	newCoreStub(t)
	installChatService(t)

	app := newTestApp(usercontext.UserContext{})
	app.Post("/chat/session", HandleAPIChatStart)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"guestEmail":"guest@example.com"}`},
		{"missing email", `{"guestName":"Guest"}`},
		{"invalid email", `{"guestName":"Guest","guestEmail":"not-an-email"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest("POST", "/chat/session", tc.body), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, 422, resp.StatusCode)
		})
	}
}

func TestChatStartGuestBindsAndResumes(t *testing.T) {
	installMemorySession(t)
	_, chatRepo := installFakeRepos(t)
	mux := newCoreStub(t)
	installChatService(t)

	starts := 0
	mux.HandleFunc("/chat/session/guest", func(w http.ResponseWriter, r *http.Request) {
		starts++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true, "sessionId": "CS-1",
		})
	})
	mux.HandleFunc("/chat/session/CS-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"session": map[string]interface{}{
				"id": "CS-1", "isActive": true,
				"messages": []map[string]interface{}{
					{"id": "m1", "sender": "ADMIN", "content": "Hello"},
				},
			},
		})
	})

	app := newTestApp(usercontext.UserContext{})
	app.Post("/chat/session", HandleAPIChatStart)

	body := `{"guestName":"Guest","guestEmail":"guest@example.com"}`
	resp, err := app.Test(jsonRequest("POST", "/chat/session", body), -1)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	out := decodeBody(t, resp)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "CS-1", data["id"])
	cookie := sessionCookie(t, resp)
	resp.Body.Close()

	require.Len(t, chatRepo.refs, 1)
	assert.Equal(t, "CS-1", chatRepo.refs[0].SessionID)
	assert.True(t, chatRepo.refs[0].Active)
	assert.Equal(t, "Guest", chatRepo.refs[0].GuestName)

	// Same browser again resumes the bound session instead of opening a
	// second one.
	req := jsonRequest("POST", "/chat/session", body)
	req.AddCookie(cookie)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	out = decodeBody(t, resp)
	data = out["data"].(map[string]interface{})
	messages := data["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, 1, starts)
	require.Len(t, chatRepo.refs, 1)
}

func TestChatStartUserUsesToken(t *testing.T) {
	installMemorySession(t)
	installFakeRepos(t)
	mux := newCoreStub(t)
	installChatService(t)

	mux.HandleFunc("/chat/session/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer core-token-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true, "sessionId": "CS-2",
		})
	})

	app := newTestApp(usercontext.UserContext{
		UserID: "u1", Token: "core-token-1", IsLoggedIn: true,
	})
	app.Post("/chat/session", HandleAPIChatStart)

	resp, err := app.Test(jsonRequest("POST", "/chat/session", "{}"), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	out := decodeBody(t, resp)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "CS-2", data["id"])
}

func TestChatEndWithoutBinding(t *testing.T) {
	installMemorySession(t)
	installFakeRepos(t)
	newCoreStub(t)
	installChatService(t)

	app := newTestApp(usercontext.UserContext{})
	app.Post("/chat/session/end", HandleAPIChatEnd)

	resp, err := app.Test(jsonRequest("POST", "/chat/session/end", ""), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestChatEndClosesSession(t *testing.T) {
	installMemorySession(t)
	_, chatRepo := installFakeRepos(t)
	mux := newCoreStub(t)
	channel := installChatService(t)

	mux.HandleFunc("/chat/session/guest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true, "sessionId": "CS-3",
		})
	})
	mux.HandleFunc("/chat/session/end", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	app := newTestApp(usercontext.UserContext{})
	app.Post("/chat/session", HandleAPIChatStart)
	app.Post("/chat/session/end", HandleAPIChatEnd)

	resp, err := app.Test(jsonRequest("POST", "/chat/session", `{"guestName":"Guest","guestEmail":"guest@example.com"}`), -1)
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)
	resp.Body.Close()

	endReq := jsonRequest("POST", "/chat/session/end", "")
	endReq.AddCookie(cookie)
	resp, err = app.Test(endReq, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	resp.Body.Close()

	ref, err := chatRepo.GetBySessionID("CS-3")
	require.NoError(t, err)
	assert.False(t, ref.Active)
	assert.Contains(t, channel.left, "CS-3")

	// Binding is gone, a second end finds nothing.
	endReq = jsonRequest("POST", "/chat/session/end", "")
	endReq.AddCookie(cookie)
	resp, err = app.Test(endReq, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}
