package store

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/narasimhaDln/chat-app/internal/cache"
	"github.com/narasimhaDln/chat-app/internal/models"
)

const (
	maxTags          = 5
	maxCommentLength = 140
	trendingPageSize = 10
	recentPageSize   = 20
)

// MemeInput is the data a meme is created from. Identity, timestamps
// and counters are assigned by the store.
type MemeInput struct {
	Title      string
	ImageURL   string
	TopText    string
	BottomText string
	Tags       []string
	Categories []string
}

// MemeUpdate lists the mutable fields. Nil fields are left untouched.
type MemeUpdate struct {
	Title      *string
	ImageURL   *string
	TopText    *string
	BottomText *string
	Tags       *[]string
	Categories *[]string
}

// MemeStore owns the in-memory meme collection for the process
// lifetime. Every mutation re-serializes the whole collection back to
// the cache; concurrent writers from another process lose (last write
// wins on the serialized collection).
type MemeStore struct {
	subscribers

	mu       sync.Mutex
	cache    cache.Store
	sessions *SessionStore
	log      *zap.Logger
	memes    []models.Meme
}

func NewMemeStore(c cache.Store, sessions *SessionStore, log *zap.Logger) *MemeStore {
	return &MemeStore{cache: c, sessions: sessions, log: log}
}

// Load hydrates from the cache, seeding on first run. Idempotent.
func (m *MemeStore) Load() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var memes []models.Meme
	ok, err := m.cache.Get(cache.KeyMemes, &memes)
	if err != nil {
		m.log.Warn("meme hydration failed, using seed data", zap.Error(err))
	}
	if !ok || err != nil {
		memes = seedMemes()
		if err := m.cache.Set(cache.KeyMemes, memes); err != nil {
			m.log.Warn("seed persist failed", zap.Error(err))
		}
	}
	m.memes = memes
}

// Create prepends a new meme (the collection is most-recent-first) and
// bumps the creator's meme count.
func (m *MemeStore) Create(in MemeInput) (models.Meme, error) {
	actor, ok := m.sessions.Current()
	if !ok {
		return models.Meme{}, ErrUnauthenticated
	}
	if len(in.Tags) > maxTags {
		return models.Meme{}, ErrTooManyTags
	}

	meme := models.Meme{
		ID:         newID("meme"),
		Title:      in.Title,
		ImageURL:   in.ImageURL,
		TopText:    in.TopText,
		BottomText: in.BottomText,
		CreatorID:  actor.ID,
		CreatedAt:  time.Now().UTC(),
		Comments:   []models.Comment{},
		Tags:       in.Tags,
		Categories: in.Categories,
	}

	m.mu.Lock()
	m.memes = append([]models.Meme{meme}, m.memes...)
	m.persistLocked()
	m.mu.Unlock()

	m.sessions.UpdateStats(actor.ID, StatsDelta{Memes: 1})
	m.notify()
	return meme, nil
}

// Update shallow-merges the patch into the matching meme. A missing id
// is a no-op and reported through the bool result.
func (m *MemeStore) Update(id string, patch MemeUpdate) (models.Meme, bool) {
	if patch.Tags != nil && len(*patch.Tags) > maxTags {
		return models.Meme{}, false
	}

	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return models.Meme{}, false
	}

	meme := &m.memes[idx]
	if patch.Title != nil {
		meme.Title = *patch.Title
	}
	if patch.ImageURL != nil {
		meme.ImageURL = *patch.ImageURL
	}
	if patch.TopText != nil {
		meme.TopText = *patch.TopText
	}
	if patch.BottomText != nil {
		meme.BottomText = *patch.BottomText
	}
	if patch.Tags != nil {
		meme.Tags = *patch.Tags
	}
	if patch.Categories != nil {
		meme.Categories = *patch.Categories
	}
	updated := *meme
	m.persistLocked()
	m.mu.Unlock()

	m.notify()
	return updated, true
}

// Delete removes a meme. Only the creator may delete it.
func (m *MemeStore) Delete(id string) error {
	actor, ok := m.sessions.Current()
	if !ok {
		return ErrUnauthenticated
	}

	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	if m.memes[idx].CreatorID != actor.ID {
		m.mu.Unlock()
		return ErrForbidden
	}

	m.memes = append(m.memes[:idx], m.memes[idx+1:]...)
	m.persistLocked()
	m.mu.Unlock()

	m.sessions.UpdateStats(actor.ID, StatsDelta{Memes: -1})
	m.notify()
	return nil
}

// Upvote increments the counter and mirrors it into the creator's stats
// unless the voter is the creator. Increment-only; there is no undo.
func (m *MemeStore) Upvote(id string) error {
	actor, ok := m.sessions.Current()
	if !ok {
		return ErrUnauthenticated
	}

	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.memes[idx].Upvotes++
	creatorID := m.memes[idx].CreatorID
	m.persistLocked()
	m.mu.Unlock()

	if creatorID != actor.ID {
		m.sessions.UpdateStats(creatorID, StatsDelta{Upvotes: 1})
	}
	m.notify()
	return nil
}

// View increments the view counter. Viewing needs no session.
func (m *MemeStore) View(id string) error {
	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.memes[idx].Views++
	creatorID := m.memes[idx].CreatorID
	m.persistLocked()
	m.mu.Unlock()

	m.sessions.UpdateStats(creatorID, StatsDelta{Views: 1})
	m.notify()
	return nil
}

// AddComment appends an immutable comment carrying a snapshot of the
// author's username.
func (m *MemeStore) AddComment(memeID, text string) (models.Comment, error) {
	actor, ok := m.sessions.Current()
	if !ok {
		return models.Comment{}, ErrUnauthenticated
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		return models.Comment{}, ErrCommentTooLong
	}

	comment := models.Comment{
		ID:             newID("comment"),
		AuthorID:       actor.ID,
		AuthorUsername: actor.Username,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}

	m.mu.Lock()
	idx := m.indexLocked(memeID)
	if idx < 0 {
		m.mu.Unlock()
		return models.Comment{}, ErrNotFound
	}
	m.memes[idx].Comments = append(m.memes[idx].Comments, comment)
	m.persistLocked()
	m.mu.Unlock()

	m.notify()
	return comment, nil
}

// FindByID returns the meme with the given id from the in-memory
// snapshot.
func (m *MemeStore) FindByID(id string) (models.Meme, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(id)
	if idx < 0 {
		return models.Meme{}, false
	}
	return m.memes[idx], true
}

// FindByOwner returns the memes created by userID, collection order.
func (m *MemeStore) FindByOwner(userID string) []models.Meme {
	return m.filter(func(meme models.Meme) bool {
		return meme.CreatorID == userID
	})
}

// FindByTag matches tags case-insensitively.
func (m *MemeStore) FindByTag(tag string) []models.Meme {
	return m.filter(func(meme models.Meme) bool {
		for _, t := range meme.Tags {
			if strings.EqualFold(t, tag) {
				return true
			}
		}
		return false
	})
}

func (m *MemeStore) FindByCategory(categoryID string) []models.Meme {
	return m.filter(func(meme models.Meme) bool {
		for _, c := range meme.Categories {
			if c == categoryID {
				return true
			}
		}
		return false
	})
}

// TopByUpvotes returns the n most upvoted memes. n <= 0 uses the
// trending page size.
func (m *MemeStore) TopByUpvotes(n int) []models.Meme {
	if n <= 0 {
		n = trendingPageSize
	}
	all := m.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Upvotes > all[j].Upvotes
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// MostRecent returns the n newest memes. n <= 0 uses the recent page
// size.
func (m *MemeStore) MostRecent(n int) []models.Meme {
	if n <= 0 {
		n = recentPageSize
	}
	all := m.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// All returns a copy of the collection snapshot.
func (m *MemeStore) All() []models.Meme {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Meme, len(m.memes))
	copy(out, m.memes)
	return out
}

func (m *MemeStore) filter(keep func(models.Meme) bool) []models.Meme {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Meme
	for _, meme := range m.memes {
		if keep(meme) {
			out = append(out, meme)
		}
	}
	return out
}

func (m *MemeStore) indexLocked(id string) int {
	for i := range m.memes {
		if m.memes[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *MemeStore) persistLocked() {
	if err := m.cache.Set(cache.KeyMemes, m.memes); err != nil {
		m.log.Warn("meme collection persist failed", zap.Error(err))
	}
}
