package lookup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/grimstore/grimstore/internal/pkg/commerce"
)

type stubCheckAPI struct {
	mu       sync.Mutex
	calls    []string
	username string
	err      error
	delay    time.Duration
}

func (s *stubCheckAPI) CheckID(ctx context.Context, gameCode, userID, zoneID string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, userID)
	username, err, delay := s.username, s.err, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return username, nil
}

func (s *stubCheckAPI) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"id long enough", Query{TargetID: "1234"}, true},
		{"id too short", Query{TargetID: "123"}, false},
		{"zone required and present", Query{TargetID: "1234", ZoneID: "123", RequiresZone: true}, true},
		{"zone required but short", Query{TargetID: "1234", ZoneID: "12", RequiresZone: true}, false},
		{"zone not required", Query{TargetID: "1234", RequiresZone: false}, true},
		{"server required and present", Query{TargetID: "1234", ServerID: "asia", RequiresServer: true}, true},
		{"server required but short", Query{TargetID: "1234", ServerID: "as", RequiresServer: true}, false},
		{"server not required", Query{TargetID: "1234", RequiresServer: false}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.q))
		})
	}
}

func TestSubmitCoalescesBurst(t *testing.T) {
	api := &stubCheckAPI{username: "PlayerOne"}
	v := NewVerifierWithDebounce(api, 20*time.Millisecond)
	defer v.Close()

	// Five rapid edits, only the final state may reach the core.
	for _, id := range []string{"1234", "12345", "123456", "1234567", "12345678"} {
		assert.NoError(t, v.Submit(Query{GameCode: "ml", TargetID: id}))
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case res := <-v.Results():
		assert.True(t, res.Found)
		assert.Equal(t, "PlayerOne", res.Username)
		assert.Equal(t, "12345678", res.Query.TargetID)
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
	assert.Equal(t, 1, api.callCount())

	// Nothing else arrives afterwards.
	select {
	case res := <-v.Results():
		t.Fatalf("unexpected second result: %+v", res)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestSubmitRejectsIncompleteInput(t *testing.T) {
	api := &stubCheckAPI{username: "PlayerOne"}
	v := NewVerifierWithDebounce(api, 10*time.Millisecond)
	defer v.Close()

	assert.ErrorIs(t, v.Submit(Query{TargetID: "123"}), ErrIncomplete)
	assert.ErrorIs(t, v.Submit(Query{TargetID: "1234", ZoneID: "12", RequiresZone: true}), ErrIncomplete)

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, api.callCount())
}

func TestDeletionDisarmsPendingLookup(t *testing.T) {
	api := &stubCheckAPI{username: "PlayerOne"}
	v := NewVerifierWithDebounce(api, 20*time.Millisecond)
	defer v.Close()

	assert.NoError(t, v.Submit(Query{TargetID: "1234"}))
	// The user deletes a character before the window elapses.
	assert.ErrorIs(t, v.Submit(Query{TargetID: "123"}), ErrIncomplete)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, api.callCount())
}

func TestNewerSubmissionCancelsInFlightRequest(t *testing.T) {
	api := &stubCheckAPI{username: "PlayerOne", delay: 100 * time.Millisecond}
	v := NewVerifierWithDebounce(api, 5*time.Millisecond)
	defer v.Close()

	assert.NoError(t, v.Submit(Query{TargetID: "1111111"}))
	time.Sleep(20 * time.Millisecond) // first request is now in flight

	api.mu.Lock()
	api.delay = 0
	api.mu.Unlock()
	assert.NoError(t, v.Submit(Query{TargetID: "2222222"}))

	select {
	case res := <-v.Results():
		assert.Equal(t, "2222222", res.Query.TargetID)
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
}

func TestNotFoundIsResultNotError(t *testing.T) {
	api := &stubCheckAPI{err: commerce.ErrNotFound}
	v := NewVerifier(api)
	defer v.Close()

	res := v.Verify(context.Background(), Query{TargetID: "9999"})
	assert.NoError(t, res.Err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Username)
}

func TestVerifyBypassesDebounce(t *testing.T) {
	api := &stubCheckAPI{username: "PlayerTwo"}
	v := NewVerifier(api)
	defer v.Close()

	res := v.Verify(context.Background(), Query{TargetID: "4321"})
	assert.True(t, res.Found)
	assert.Equal(t, "PlayerTwo", res.Username)
	assert.Equal(t, 1, api.callCount())
}

func TestVerifyPropagatesTransportError(t *testing.T) {
	api := &stubCheckAPI{err: errors.New("core unreachable")}
	v := NewVerifier(api)
	defer v.Close()

	res := v.Verify(context.Background(), Query{TargetID: "4321"})
	assert.Error(t, res.Err)
	assert.False(t, res.Found)
}

type zoneRecordingAPI struct {
	mu    sync.Mutex
	zones []string
}

func (z *zoneRecordingAPI) CheckID(ctx context.Context, gameCode, userID, zoneID string) (string, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.zones = append(z.zones, zoneID)
	return "PlayerOne", nil
}

func TestVerifyFoldsServerIntoZoneSlot(t *testing.T) {
	api := &zoneRecordingAPI{}
	v := NewVerifier(api)
	defer v.Close()

	res := v.Verify(context.Background(), Query{GameCode: "pb", TargetID: "1234", ServerID: "asia", RequiresServer: true})
	assert.True(t, res.Found)
	res = v.Verify(context.Background(), Query{GameCode: "ml", TargetID: "1234", ZoneID: "5678", RequiresZone: true})
	assert.True(t, res.Found)

	assert.Equal(t, []string{"asia", "5678"}, api.zones)
}
