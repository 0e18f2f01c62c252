package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/narasimhaDln/chat-app/internal/models"
	"github.com/narasimhaDln/chat-app/internal/realtime"
)

// AuthStore tracks the chat session: the authenticated user, the push
// channel opened for that identity, and the presence set the channel
// reports. It exclusively owns the channel; other stores only borrow a
// reference through Channel.
type AuthStore struct {
	notifier

	api       *Client
	socketURL string
	log       *zap.Logger

	mu      sync.Mutex
	user    *models.ChatUser
	channel *realtime.Channel
	online  []string
}

func NewAuthStore(api *Client, socketURL string, log *zap.Logger) *AuthStore {
	return &AuthStore{api: api, socketURL: socketURL, log: log}
}

// CheckAuth validates a persisted session cookie and, on success, opens
// the channel for that identity.
func (a *AuthStore) CheckAuth(ctx context.Context) (models.ChatUser, error) {
	user, err := a.api.Check(ctx)
	if err != nil {
		a.mu.Lock()
		a.user = nil
		a.mu.Unlock()
		a.notify()
		return models.ChatUser{}, err
	}
	return user, a.establish(ctx, user)
}

// Signup registers a new account; the backend authenticates it in the
// same call.
func (a *AuthStore) Signup(ctx context.Context, in SignupInput) (models.ChatUser, error) {
	user, err := a.api.Signup(ctx, in)
	if err != nil {
		return models.ChatUser{}, err
	}
	return user, a.establish(ctx, user)
}

// Login authenticates and opens the channel. A returned error wrapping
// realtime.ErrConnectFailed means the session IS authenticated but push
// delivery is unavailable; the caller should surface it and continue.
func (a *AuthStore) Login(ctx context.Context, in LoginInput) (models.ChatUser, error) {
	user, err := a.api.Login(ctx, in)
	if err != nil {
		return models.ChatUser{}, err
	}
	return user, a.establish(ctx, user)
}

// Logout tears the session down: REST logout first, then the channel.
func (a *AuthStore) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	if a.channel != nil {
		a.channel.Close()
		a.channel = nil
	}
	a.user = nil
	a.online = nil
	a.mu.Unlock()

	a.notify()
	return nil
}

// UpdateProfile patches the profile and refreshes the session user.
func (a *AuthStore) UpdateProfile(ctx context.Context, patch ProfilePatch) (models.ChatUser, error) {
	a.mu.Lock()
	authed := a.user != nil
	a.mu.Unlock()
	if !authed {
		return models.ChatUser{}, ErrUnauthenticated
	}

	user, err := a.api.UpdateProfile(ctx, patch)
	if err != nil {
		return models.ChatUser{}, err
	}

	a.mu.Lock()
	a.user = &user
	a.mu.Unlock()
	a.notify()
	return user, nil
}

// User returns the authenticated chat user, if any.
func (a *AuthStore) User() (models.ChatUser, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return models.ChatUser{}, false
	}
	return *a.user, true
}

// OnlineUsers returns the last presence list the channel delivered.
func (a *AuthStore) OnlineUsers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.online...)
}

// Channel exposes the session's channel for borrowing. Nil when logged
// out or when the connection could not be established.
func (a *AuthStore) Channel() *realtime.Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channel
}

// establish records the identity and (re)opens the channel. Identity
// changes are serialized under the store mutex: the previous channel is
// fully closed before the next one dials, so a socket keyed by a stale
// user id cannot outlive its session. A channel that later exhausts its
// reconnect budget clears itself out through the close hook, so callers
// never get handed a dead channel.
func (a *AuthStore) establish(ctx context.Context, user models.ChatUser) error {
	a.mu.Lock()
	if a.channel != nil {
		a.channel.Close()
		a.channel = nil
		a.online = nil
	}
	a.user = &user

	// listeners go on before the dial; the backend broadcasts presence
	// the moment the socket registers
	ch := realtime.NewChannel(a.socketURL, user.ID, a.log)
	ch.OnPresence(func(ids []string) {
		a.mu.Lock()
		a.online = ids
		a.mu.Unlock()
		a.notify()
	})
	ch.OnClose(func(err error) {
		a.mu.Lock()
		if a.channel != ch {
			a.mu.Unlock()
			return
		}
		a.channel = nil
		a.online = nil
		a.mu.Unlock()
		a.log.Warn("chat connection lost", zap.Error(err))
		a.notify()
	})

	if err := ch.Connect(ctx); err != nil {
		a.mu.Unlock()
		a.notify()
		a.log.Warn("chat connection failed", zap.Error(err))
		return err
	}
	a.channel = ch
	a.mu.Unlock()

	a.notify()
	return nil
}
