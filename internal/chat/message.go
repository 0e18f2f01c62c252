package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/narasimhaDln/chat-app/internal/models"
	"github.com/narasimhaDln/chat-app/internal/realtime"
)

// MessageStore holds the history of the one active conversation and
// merges pushed messages into it. Selecting a new peer abandons the
// previous conversation entirely; there is no draft recovery.
type MessageStore struct {
	notifier

	api  *Client
	auth *AuthStore
	log  *zap.Logger

	mu         sync.Mutex
	peer       *models.ChatUser
	messages   []models.ChatMessage
	generation int
	detach     func()
}

func NewMessageStore(api *Client, auth *AuthStore, log *zap.Logger) *MessageStore {
	return &MessageStore{api: api, auth: auth, log: log}
}

// Users lists the peers available to chat with.
func (m *MessageStore) Users(ctx context.Context) ([]models.ChatUser, error) {
	return m.api.Users(ctx)
}

// SelectConversation makes peer the active conversation: the previous
// subscription is dropped, history is fetched, and a channel listener
// filtered to this peer is armed. The generation counter discards a
// history response that lands after the selection has moved on.
func (m *MessageStore) SelectConversation(ctx context.Context, peer models.ChatUser) error {
	m.mu.Lock()
	if m.detach != nil {
		m.detach()
		m.detach = nil
	}
	m.generation++
	gen := m.generation
	m.peer = &peer
	m.messages = nil
	m.mu.Unlock()
	m.notify()

	history, err := m.api.Messages(ctx, peer.ID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.generation != gen {
		// selection moved on while the fetch was in flight
		m.mu.Unlock()
		return nil
	}
	m.messages = history

	if ch := m.auth.Channel(); ch != nil {
		peerID := peer.ID
		m.detach = ch.OnMessage(func(msg models.ChatMessage) {
			m.appendPushed(gen, peerID, msg)
		})
	} else {
		m.log.Warn("channel unavailable, live updates disabled",
			zap.String("peer", peer.ID))
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

// ClearSelection abandons the active conversation.
func (m *MessageStore) ClearSelection() {
	m.mu.Lock()
	if m.detach != nil {
		m.detach()
		m.detach = nil
	}
	m.generation++
	m.peer = nil
	m.messages = nil
	m.mu.Unlock()

	m.notify()
}

// Send posts the message and appends it to history only once the server
// acknowledges it. On failure nothing is appended; the caller must
// resubmit explicitly.
func (m *MessageStore) Send(ctx context.Context, in SendInput) (models.ChatMessage, error) {
	m.mu.Lock()
	peer := m.peer
	gen := m.generation
	m.mu.Unlock()
	if peer == nil {
		return models.ChatMessage{}, ErrNoConversation
	}

	msg, err := m.api.Send(ctx, peer.ID, in)
	if err != nil {
		return models.ChatMessage{}, err
	}

	m.mu.Lock()
	if m.generation == gen {
		m.messages = append(m.messages, msg)
	}
	m.mu.Unlock()
	m.notify()

	// Mirror through the channel so the receiver sees it without
	// polling. Delivery failure here is non-fatal; the server already
	// stored the message.
	if ch := m.auth.Channel(); ch != nil {
		if err := ch.Emit(realtime.EventSendMessage, msg); err != nil {
			m.log.Warn("realtime mirror failed", zap.Error(err))
		}
	}
	return msg, nil
}

// Messages returns a copy of the active conversation's history.
func (m *MessageStore) Messages() []models.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ChatMessage{}, m.messages...)
}

// Selected returns the active conversation's peer, if any.
func (m *MessageStore) Selected() (models.ChatUser, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.peer == nil {
		return models.ChatUser{}, false
	}
	return *m.peer, true
}

// appendPushed admits a pushed message only when it belongs to the
// conversation that was active when the listener was armed. Messages
// for any other peer are dropped, not queued.
func (m *MessageStore) appendPushed(gen int, peerID string, msg models.ChatMessage) {
	if msg.SenderID != peerID {
		return
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	m.messages = append(m.messages, msg)
	m.mu.Unlock()

	m.notify()
}
