package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/narasimhaDln/chat-app/internal/chattest"
	"github.com/narasimhaDln/chat-app/internal/models"
)

func newTestBackend(t *testing.T) *chattest.Server {
	t.Helper()
	srv := chattest.New(zap.NewNop())
	t.Cleanup(srv.Close)
	return srv
}

// newTestSession builds a client and auth store pair. Each pair holds
// its own cookie jar, so two sessions side by side act like two browsers.
func newTestSession(t *testing.T, srv *chattest.Server) (*Client, *AuthStore) {
	t.Helper()
	api := NewClient(srv.BaseURL(), 5*time.Second)
	store := NewAuthStore(api, srv.SocketURL(), zap.NewNop())
	t.Cleanup(func() {
		if ch := store.Channel(); ch != nil {
			ch.Close()
		}
	})
	return api, store
}

func signup(t *testing.T, store *AuthStore, name, email string) models.ChatUser {
	t.Helper()
	user, err := store.Signup(context.Background(), SignupInput{
		FullName: name,
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return user
}

func TestSignupAuthenticates(t *testing.T) {
	srv := newTestBackend(t)
	_, store := newTestSession(t, srv)

	user := signup(t, store, "Ada", "ada@example.com")
	assert.Equal(t, "Ada", user.FullName)
	assert.NotEmpty(t, user.ID)

	current, ok := store.User()
	require.True(t, ok)
	assert.Equal(t, user.ID, current.ID)
	require.NotNil(t, store.Channel())
	assert.Equal(t, user.ID, store.Channel().UserID())
}

func TestSignupConflict(t *testing.T) {
	srv := newTestBackend(t)
	_, first := newTestSession(t, srv)
	signup(t, first, "Ada", "ada@example.com")

	_, second := newTestSession(t, srv)
	_, err := second.Signup(context.Background(), SignupInput{
		FullName: "Other Ada",
		Email:    "ada@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv := newTestBackend(t)
	_, store := newTestSession(t, srv)
	signup(t, store, "Ada", "ada@example.com")
	require.NoError(t, store.Logout(context.Background()))

	_, err := store.Login(context.Background(), LoginInput{
		Email:    "ada@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, ok := store.User()
	assert.False(t, ok)
}

func TestLoginAfterLogout(t *testing.T) {
	srv := newTestBackend(t)
	_, store := newTestSession(t, srv)
	created := signup(t, store, "Ada", "ada@example.com")
	require.NoError(t, store.Logout(context.Background()))

	user, err := store.Login(context.Background(), LoginInput{
		Email:    "ada@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	require.NotNil(t, store.Channel())
}

func TestLogoutClosesChannel(t *testing.T) {
	srv := newTestBackend(t)
	_, store := newTestSession(t, srv)
	signup(t, store, "Ada", "ada@example.com")

	channel := store.Channel()
	require.NotNil(t, channel)

	require.NoError(t, store.Logout(context.Background()))
	assert.True(t, channel.Closed())
	assert.Nil(t, store.Channel())
	_, ok := store.User()
	assert.False(t, ok)
	assert.Empty(t, store.OnlineUsers())
}

func TestCheckAuthWithoutSession(t *testing.T) {
	srv := newTestBackend(t)
	_, store := newTestSession(t, srv)

	_, err := store.CheckAuth(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCheckAuthRestoresSession(t *testing.T) {
	srv := newTestBackend(t)
	api, store := newTestSession(t, srv)
	created := signup(t, store, "Ada", "ada@example.com")

	// a fresh store over the same client reuses the cookie jar, the way
	// a reloaded page reuses the browser's cookies
	restored := NewAuthStore(api, srv.SocketURL(), zap.NewNop())
	t.Cleanup(func() {
		if ch := restored.Channel(); ch != nil {
			ch.Close()
		}
	})

	user, err := restored.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	require.NotNil(t, restored.Channel())
}

func TestPresenceTracksLogins(t *testing.T) {
	srv := newTestBackend(t)
	_, ada := newTestSession(t, srv)
	adaUser := signup(t, ada, "Ada", "ada@example.com")

	_, bob := newTestSession(t, srv)
	bobUser := signup(t, bob, "Bob", "bob@example.com")

	require.Eventually(t, func() bool {
		online := ada.OnlineUsers()
		return len(online) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{adaUser.ID, bobUser.ID}, ada.OnlineUsers())

	require.NoError(t, bob.Logout(context.Background()))
	require.Eventually(t, func() bool {
		return len(ada.OnlineUsers()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{adaUser.ID}, ada.OnlineUsers())
}

func TestChannelSurvivesDrop(t *testing.T) {
	srv := newTestBackend(t)
	_, ada := newTestSession(t, srv)
	adaUser := signup(t, ada, "Ada", "ada@example.com")

	_, bob := newTestSession(t, srv)
	signup(t, bob, "Bob", "bob@example.com")

	require.Eventually(t, func() bool {
		return len(ada.OnlineUsers()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	channel := ada.Channel()
	require.NotNil(t, channel)

	// sever ada's socket; the channel redials on its own and keeps
	// receiving presence, here bob's logout
	srv.DropConnection(adaUser.ID)
	require.NoError(t, bob.Logout(context.Background()))

	require.Eventually(t, func() bool {
		online := ada.OnlineUsers()
		return len(online) == 1 && online[0] == adaUser.ID
	}, 2*time.Second, 10*time.Millisecond)
	assert.Same(t, channel, ada.Channel())
	assert.False(t, channel.Closed())
}

func TestUpdateProfile(t *testing.T) {
	srv := newTestBackend(t)
	_, store := newTestSession(t, srv)

	name := "New Name"
	_, err := store.UpdateProfile(context.Background(), ProfilePatch{FullName: &name})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	signup(t, store, "Ada", "ada@example.com")

	pic := "https://example.com/pic.png"
	user, err := store.UpdateProfile(context.Background(), ProfilePatch{
		FullName:   &name,
		ProfilePic: &pic,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.FullName)
	assert.Equal(t, pic, user.ProfilePic)

	current, ok := store.User()
	require.True(t, ok)
	assert.Equal(t, "New Name", current.FullName)
}

func TestSessionExpiresAt(t *testing.T) {
	srv := newTestBackend(t)
	api, store := newTestSession(t, srv)

	_, ok := api.SessionExpiresAt()
	assert.False(t, ok)

	signup(t, store, "Ada", "ada@example.com")

	expiry, ok := api.SessionExpiresAt()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 10*time.Second)
}
