package store

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/narasimhaDln/chat-app/internal/cache"
	"github.com/narasimhaDln/chat-app/internal/models"
)

// RegisterInput is the data a new account is created from.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	AvatarURL   string
	Bio         string
}

// ProfileUpdate lists the profile fields a user may change. Nil fields
// are left untouched.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
	Bio         *string
}

// StatsDelta is merged additively into a user's stats aggregate.
type StatsDelta struct {
	Memes   int
	Upvotes int
	Views   int
}

// SessionStore owns the user collection and the single current session.
// At most one user is authenticated per client instance; the session
// snapshot survives restarts through the cache.
type SessionStore struct {
	subscribers

	mu      sync.Mutex
	cache   cache.Store
	log     *zap.Logger
	users   []models.User
	current *models.User
}

func NewSessionStore(c cache.Store, log *zap.Logger) *SessionStore {
	return &SessionStore{cache: c, log: log}
}

// Load hydrates the user collection and the persisted session from the
// cache, seeding the collection on first run. Idempotent; hydration
// failures fall back to seed data and the store stays usable.
func (s *SessionStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []models.User
	ok, err := s.cache.Get(cache.KeyUsers, &users)
	if err != nil {
		s.log.Warn("user hydration failed, using seed data", zap.Error(err))
	}
	if !ok || err != nil {
		users = seedUsers()
		if err := s.cache.Set(cache.KeyUsers, users); err != nil {
			s.log.Warn("seed persist failed", zap.Error(err))
		}
	}
	s.users = users

	var current models.User
	if ok, err := s.cache.Get(cache.KeySession, &current); err == nil && ok {
		s.current = &current
	}
}

// Register creates the account and transitions to Authenticated.
// Username and email uniqueness is enforced here only; there is no live
// constraint afterwards.
func (s *SessionStore) Register(in RegisterInput) (models.User, error) {
	s.mu.Lock()

	for _, u := range s.users {
		if u.Username == in.Username || u.Email == in.Email {
			s.mu.Unlock()
			return models.User{}, ErrConflict
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.mu.Unlock()
		return models.User{}, err
	}

	user := models.User{
		ID:           newID("user"),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		AvatarURL:    in.AvatarURL,
		Bio:          in.Bio,
		CreatedAt:    time.Now().UTC(),
		Badges:       []string{},
		Stats:        models.Stats{},
	}
	if user.DisplayName == "" {
		user.DisplayName = in.Username
	}

	s.users = append(s.users, user)
	s.persistUsersLocked()
	s.setCurrentLocked(user)
	s.mu.Unlock()

	s.notify()
	return user.WithoutSecret(), nil
}

// Login authenticates by username and secret.
func (s *SessionStore) Login(username, password string) (models.User, error) {
	s.mu.Lock()

	var found *models.User
	for i := range s.users {
		if s.users[i].Username == username {
			found = &s.users[i]
			break
		}
	}
	if found == nil {
		s.mu.Unlock()
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password)); err != nil {
		s.mu.Unlock()
		return models.User{}, ErrInvalidCredentials
	}

	user := *found
	s.setCurrentLocked(user)
	s.mu.Unlock()

	s.notify()
	return user.WithoutSecret(), nil
}

// Logout clears the session and its cache entry.
func (s *SessionStore) Logout() {
	s.mu.Lock()
	s.current = nil
	if err := s.cache.Remove(cache.KeySession); err != nil {
		s.log.Warn("session remove failed", zap.Error(err))
	}
	s.mu.Unlock()

	s.notify()
}

// Current returns the authenticated user, if any.
func (s *SessionStore) Current() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.User{}, false
	}
	return *s.current, true
}

// UpdateProfile applies the patch to the session user and mirrors it
// into the user collection. Two cache writes, not atomic.
func (s *SessionStore) UpdateProfile(patch ProfileUpdate) (models.User, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return models.User{}, ErrUnauthenticated
	}

	apply := func(u *models.User) {
		if patch.DisplayName != nil {
			u.DisplayName = *patch.DisplayName
		}
		if patch.AvatarURL != nil {
			u.AvatarURL = *patch.AvatarURL
		}
		if patch.Bio != nil {
			u.Bio = *patch.Bio
		}
	}

	for i := range s.users {
		if s.users[i].ID == s.current.ID {
			apply(&s.users[i])
			break
		}
	}
	s.persistUsersLocked()

	updated := *s.current
	apply(&updated)
	s.setCurrentLocked(updated)
	s.mu.Unlock()

	s.notify()
	return updated.WithoutSecret(), nil
}

// UpdateStats merges the delta into the target user's stats and, when
// that user is the session user, mirrors the change into the session
// snapshot. The two writes are not atomic (see cache key docs).
func (s *SessionStore) UpdateStats(userID string, delta StatsDelta) {
	s.mu.Lock()
	changed := false
	for i := range s.users {
		if s.users[i].ID != userID {
			continue
		}
		s.users[i].Stats.TotalMemes += delta.Memes
		s.users[i].Stats.TotalUpvotes += delta.Upvotes
		s.users[i].Stats.TotalViews += delta.Views
		changed = true

		if s.current != nil && s.current.ID == userID {
			updated := *s.current
			updated.Stats = s.users[i].Stats
			s.setCurrentLocked(updated)
		}
		break
	}
	if changed {
		s.persistUsersLocked()
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// AwardBadge appends a badge label to the user unless already present.
func (s *SessionStore) AwardBadge(userID, badge string) {
	s.mu.Lock()
	changed := false
	for i := range s.users {
		if s.users[i].ID != userID {
			continue
		}
		if !contains(s.users[i].Badges, badge) {
			s.users[i].Badges = append(s.users[i].Badges, badge)
			changed = true
			if s.current != nil && s.current.ID == userID {
				updated := *s.current
				updated.Badges = append([]string{}, s.users[i].Badges...)
				s.setCurrentLocked(updated)
			}
		}
		break
	}
	if changed {
		s.persistUsersLocked()
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// FindByID looks a user up in the in-memory collection.
func (s *SessionStore) FindByID(userID string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			return u.WithoutSecret(), true
		}
	}
	return models.User{}, false
}

// Users returns a sanitized copy of the collection.
func (s *SessionStore) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, len(s.users))
	for i, u := range s.users {
		out[i] = u.WithoutSecret()
	}
	return out
}

func (s *SessionStore) persistUsersLocked() {
	if err := s.cache.Set(cache.KeyUsers, s.users); err != nil {
		s.log.Warn("user collection persist failed", zap.Error(err))
	}
}

// setCurrentLocked records the Authenticated transition and writes the
// session snapshot. The snapshot never carries the password hash.
func (s *SessionStore) setCurrentLocked(u models.User) {
	snapshot := u.WithoutSecret()
	s.current = &snapshot
	if err := s.cache.Set(cache.KeySession, snapshot); err != nil {
		s.log.Warn("session snapshot persist failed", zap.Error(err))
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
