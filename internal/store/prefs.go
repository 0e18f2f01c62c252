package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/narasimhaDln/chat-app/internal/cache"
)

// Prefs holds per-client UI preferences: the dark mode flag and the
// bookmarked meme ids. Both persist under their own cache keys.
type Prefs struct {
	subscribers

	mu        sync.Mutex
	cache     cache.Store
	log       *zap.Logger
	darkMode  bool
	bookmarks []string
}

func NewPrefs(c cache.Store, log *zap.Logger) *Prefs {
	return &Prefs{cache: c, log: log}
}

func (p *Prefs) Load() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.cache.Get(cache.KeyDarkMode, &p.darkMode); err != nil {
		p.log.Warn("dark mode hydration failed", zap.Error(err))
	}
	if _, err := p.cache.Get(cache.KeyBookmarks, &p.bookmarks); err != nil {
		p.log.Warn("bookmark hydration failed", zap.Error(err))
	}
}

func (p *Prefs) DarkMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.darkMode
}

// ToggleDarkMode flips the flag and returns the new state.
func (p *Prefs) ToggleDarkMode() bool {
	p.mu.Lock()
	p.darkMode = !p.darkMode
	mode := p.darkMode
	if err := p.cache.Set(cache.KeyDarkMode, mode); err != nil {
		p.log.Warn("dark mode persist failed", zap.Error(err))
	}
	p.mu.Unlock()

	p.notify()
	return mode
}

// ToggleBookmark adds or removes the meme id and reports whether it is
// bookmarked afterwards.
func (p *Prefs) ToggleBookmark(memeID string) bool {
	p.mu.Lock()
	bookmarked := false
	found := false
	for i, id := range p.bookmarks {
		if id == memeID {
			p.bookmarks = append(p.bookmarks[:i], p.bookmarks[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		p.bookmarks = append(p.bookmarks, memeID)
		bookmarked = true
	}
	if err := p.cache.Set(cache.KeyBookmarks, p.bookmarks); err != nil {
		p.log.Warn("bookmark persist failed", zap.Error(err))
	}
	p.mu.Unlock()

	p.notify()
	return bookmarked
}

func (p *Prefs) IsBookmarked(memeID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.bookmarks {
		if id == memeID {
			return true
		}
	}
	return false
}

func (p *Prefs) Bookmarks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.bookmarks...)
}
