package session

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"
	"github.com/google/uuid"

	"github.com/grimstore/grimstore/internal/pkg/cache"
	"github.com/grimstore/grimstore/internal/pkg/commerce"
	"github.com/grimstore/grimstore/internal/pkg/env"
)

// Session keys. The core token and the user profile live only here, the
// browser never sees them.
const (
	KeyCoreToken     = "core_token"
	KeyUserProfile   = "user_profile"
	KeyChatSessionID = "chat_session_id"
	KeyWebKey        = "web_key"
)

var sessionStore *session.Store

// NewSessionStore builds the Redis-backed session store. Sessions live in
// database 1, the cache uses database 0.
func NewSessionStore() *session.Store {
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	sessionStore = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		Expiration:     time.Hour * 24,
		KeyLookup:      "cookie:session_id",
	})

	return sessionStore
}

// GetSessionStore returns the store, nil before NewSessionStore.
func GetSessionStore() *session.Store {
	return sessionStore
}

// SetSessionStore replaces the store for tests.
func SetSessionStore(store *session.Store) {
	sessionStore = store
}

// SetSessionValue stores a key-value pair in the caller's session.
func SetSessionValue(c *fiber.Ctx, key string, value string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}

	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue retrieves a value by key from the caller's session.
func GetSessionValue(c *fiber.Ctx, key string) string {
	if sessionStore == nil {
		return ""
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}

	value := sess.Get(key)
	if value == nil {
		return ""
	}

	if strValue, ok := value.(string); ok {
		return strValue
	}

	return ""
}

// DeleteSessionValue removes one key from the caller's session.
func DeleteSessionValue(c *fiber.Ctx, key string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}

	sess.Delete(key)
	return sess.Save()
}

// SaveLogin stores the core token and profile after a successful login.
func SaveLogin(c *fiber.Ctx, token string, user *commerce.User) error {
	if err := SetSessionValue(c, KeyCoreToken, token); err != nil {
		return err
	}
	profile, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return SetSessionValue(c, KeyUserProfile, string(profile))
}

// CoreToken returns the stored core token, empty for anonymous callers.
func CoreToken(c *fiber.Ctx) string {
	return GetSessionValue(c, KeyCoreToken)
}

// Profile returns the stored user profile, nil for anonymous callers.
func Profile(c *fiber.Ctx) *commerce.User {
	raw := GetSessionValue(c, KeyUserProfile)
	if raw == "" {
		return nil
	}
	var user commerce.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}

// RefreshProfile replaces the stored profile, keeping the token.
func RefreshProfile(c *fiber.Ctx, user *commerce.User) error {
	profile, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return SetSessionValue(c, KeyUserProfile, string(profile))
}

// WebKey returns an opaque key identifying the caller's web session,
// generating one on first use. Ledger rows reference this key so the session
// cookie itself never lands in the database.
func WebKey(c *fiber.Ctx) string {
	if key := GetSessionValue(c, KeyWebKey); key != "" {
		return key
	}
	key := uuid.NewString()
	if err := SetSessionValue(c, KeyWebKey, key); err != nil {
		return ""
	}
	return key
}

// ChatSessionID returns the stored chat session id, empty when none.
func ChatSessionID(c *fiber.Ctx) string {
	return GetSessionValue(c, KeyChatSessionID)
}

// SaveChatSessionID binds a chat session to the caller's web session.
func SaveChatSessionID(c *fiber.Ctx, sessionID string) error {
	return SetSessionValue(c, KeyChatSessionID, sessionID)
}

// ClearChatSessionID drops a stale chat session binding.
func ClearChatSessionID(c *fiber.Ctx) error {
	return DeleteSessionValue(c, KeyChatSessionID)
}

// Destroy ends the caller's session entirely.
func Destroy(c *fiber.Ctx) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
