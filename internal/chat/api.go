package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/narasimhaDln/chat-app/internal/models"
	"github.com/narasimhaDln/chat-app/pkg/auth"
)

// Client issues the chat backend's REST calls. Requests share a cookie
// jar (the backend authenticates through an http-only cookie) and a
// fixed timeout; a timed-out or failed request is surfaced to the
// caller and never retried.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}
}

type SignupInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfilePatch lists the profile fields the backend lets a user change.
type ProfilePatch struct {
	FullName   *string `json:"fullName,omitempty"`
	ProfilePic *string `json:"profilePic,omitempty"`
}

type SendInput struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// Check validates the persisted session cookie.
func (c *Client) Check(ctx context.Context) (models.ChatUser, error) {
	var user models.ChatUser
	err := c.do(ctx, http.MethodGet, "/auth/check", nil, &user)
	return user, err
}

func (c *Client) Signup(ctx context.Context, in SignupInput) (models.ChatUser, error) {
	var user models.ChatUser
	err := c.do(ctx, http.MethodPost, "/auth/signup", in, &user)
	return user, err
}

func (c *Client) Login(ctx context.Context, in LoginInput) (models.ChatUser, error) {
	var user models.ChatUser
	err := c.do(ctx, http.MethodPost, "/auth/login", in, &user)
	if errors.Is(err, ErrUnauthenticated) {
		// a rejected login is bad credentials, not a missing session
		return models.ChatUser{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return user, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, patch ProfilePatch) (models.ChatUser, error) {
	var user models.ChatUser
	err := c.do(ctx, http.MethodPut, "/auth/update-profile", patch, &user)
	return user, err
}

// Users lists every peer the current user may message.
func (c *Client) Users(ctx context.Context) ([]models.ChatUser, error) {
	var users []models.ChatUser
	err := c.do(ctx, http.MethodGet, "/messages/users", nil, &users)
	return users, err
}

// Messages fetches the full history of the conversation with userID.
func (c *Client) Messages(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(userID), nil, &messages)
	return messages, err
}

// Send posts a message to userID and returns the acknowledged record.
func (c *Client) Send(ctx context.Context, userID string, in SendInput) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := c.do(ctx, http.MethodPost, "/messages/send/"+url.PathEscape(userID), in, &msg)
	return msg, err
}

// SessionExpiresAt reports when the session cookie's token lapses, when
// one is present in the jar.
func (c *Client) SessionExpiresAt() (time.Time, bool) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return time.Time{}, false
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name != auth.SessionCookie {
			continue
		}
		if exp, err := auth.TokenExpiry(ck.Value); err == nil {
			return exp, true
		}
	}
	return time.Time{}, false
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrServer, err)
		}
	}
	return nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	var base error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		base = ErrUnauthenticated
	case http.StatusForbidden:
		base = ErrForbidden
	case http.StatusNotFound:
		base = ErrNotFound
	case http.StatusConflict:
		base = ErrConflict
	default:
		base = ErrServer
	}

	if body.Message != "" {
		return fmt.Errorf("%w: %s", base, body.Message)
	}
	return fmt.Errorf("%w: status %d", base, resp.StatusCode)
}
