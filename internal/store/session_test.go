package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/narasimhaDln/chat-app/internal/cache"
)

func newSessionStore(t *testing.T) (*SessionStore, cache.Store) {
	t.Helper()
	c := cache.NewMemory()
	s := NewSessionStore(c, zap.NewNop())
	s.Load()
	return s, c
}

func TestLoadSeedsOnFirstRun(t *testing.T) {
	s, c := newSessionStore(t)

	require.Len(t, s.Users(), 3)

	// seed is persisted so a second load hydrates instead of reseeding
	again := NewSessionStore(c, zap.NewNop())
	again.Load()
	require.Len(t, again.Users(), 3)
}

func TestRegisterThenLogin(t *testing.T) {
	s, _ := newSessionStore(t)

	created, err := s.Register(RegisterInput{
		Username: "alice",
		Email:    "a@x.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.DisplayName) // defaults to username
	assert.Equal(t, 0, created.Stats.TotalMemes)
	assert.Empty(t, created.PasswordHash)

	// registering transitions to Authenticated
	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, created.ID, current.ID)

	s.Logout()
	_, ok = s.Current()
	require.False(t, ok)

	logged, err := s.Login("alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, created.ID, logged.ID)
}

func TestRegisterConflict(t *testing.T) {
	s, _ := newSessionStore(t)

	_, err := s.Register(RegisterInput{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	_, err = s.Register(RegisterInput{Username: "alice", Email: "other@x.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.Register(RegisterInput{Username: "other", Email: "a@x.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLoginInvalidCredentials(t *testing.T) {
	s, _ := newSessionStore(t)

	_, err := s.Login("nobody", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login("memequeen", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login("memequeen", seedPassword)
	assert.NoError(t, err)
}

func TestSessionSurvivesRestart(t *testing.T) {
	s, c := newSessionStore(t)

	user, err := s.Register(RegisterInput{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	restarted := NewSessionStore(c, zap.NewNop())
	restarted.Load()

	current, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, user.ID, current.ID)
	assert.Empty(t, current.PasswordHash)
}

func TestLogoutClearsPersistedSession(t *testing.T) {
	s, c := newSessionStore(t)

	_, err := s.Register(RegisterInput{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	s.Logout()

	restarted := NewSessionStore(c, zap.NewNop())
	restarted.Load()
	_, ok := restarted.Current()
	assert.False(t, ok)
}

func TestUpdateStatsMirrorsIntoSession(t *testing.T) {
	s, _ := newSessionStore(t)

	user, err := s.Register(RegisterInput{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	s.UpdateStats(user.ID, StatsDelta{Upvotes: 2, Views: 5})

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, 2, current.Stats.TotalUpvotes)
	assert.Equal(t, 5, current.Stats.TotalViews)

	inCollection, ok := s.FindByID(user.ID)
	require.True(t, ok)
	assert.Equal(t, current.Stats, inCollection.Stats)
}

func TestUpdateStatsOtherUserLeavesSessionAlone(t *testing.T) {
	s, _ := newSessionStore(t)

	_, err := s.Register(RegisterInput{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	s.UpdateStats("user-1", StatsDelta{Upvotes: 1})

	current, _ := s.Current()
	assert.Equal(t, 0, current.Stats.TotalUpvotes)

	queen, ok := s.FindByID("user-1")
	require.True(t, ok)
	assert.Equal(t, 15231, queen.Stats.TotalUpvotes)
}

func TestUpdateProfile(t *testing.T) {
	s, _ := newSessionStore(t)

	_, err := s.UpdateProfile(ProfileUpdate{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	user, err := s.Register(RegisterInput{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	bio := "new bio"
	updated, err := s.UpdateProfile(ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "new bio", updated.Bio)
	assert.Equal(t, "alice", updated.DisplayName)

	inCollection, _ := s.FindByID(user.ID)
	assert.Equal(t, "new bio", inCollection.Bio)
}

func TestAwardBadge(t *testing.T) {
	s, _ := newSessionStore(t)

	user, err := s.Register(RegisterInput{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	s.AwardBadge(user.ID, "First Viral Post")
	s.AwardBadge(user.ID, "first viral post") // case-insensitive dedupe

	got, _ := s.FindByID(user.ID)
	assert.Equal(t, []string{"First Viral Post"}, got.Badges)

	current, _ := s.Current()
	assert.Equal(t, got.Badges, current.Badges)
}

func TestSubscribeNotifies(t *testing.T) {
	s, _ := newSessionStore(t)

	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })

	_, err := s.Register(RegisterInput{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	s.Logout()
	assert.Equal(t, 2, calls)

	unsubscribe()
	_, err = s.Login("alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
