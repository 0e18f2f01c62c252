// Package chattest hosts an in-memory stand-in for the chat backend.
// It implements the REST surface and the websocket push endpoint the
// production client talks to, and exists purely for the test suites.
package chattest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/narasimhaDln/chat-app/internal/models"
	"github.com/narasimhaDln/chat-app/internal/realtime"
	"github.com/narasimhaDln/chat-app/pkg/auth"
)

const tokenTTL = time.Hour

type account struct {
	user models.ChatUser
	hash []byte
}

type Server struct {
	jwt *auth.JWTManager
	log *zap.Logger

	mu           sync.Mutex
	accounts     map[string]*account // by user id
	idByEmail    map[string]string
	messages     []models.ChatMessage
	conns        map[string]*websocket.Conn // one socket per user id
	failNextSend bool

	httpSrv  *httptest.Server
	upgrader websocket.Upgrader
}

func New(log *zap.Logger) *Server {
	s := &Server{
		jwt:       auth.NewJWTManager("chattest-secret", tokenTTL),
		log:       log,
		accounts:  make(map[string]*account),
		idByEmail: make(map[string]string),
		conns:     make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()

	api := r.Group("/api")
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", s.signup)
		authGroup.POST("/login", s.login)
		authGroup.POST("/logout", s.logout)
		authGroup.GET("/check", s.requireAuth, s.check)
		authGroup.PUT("/update-profile", s.requireAuth, s.updateProfile)
	}

	messages := api.Group("/messages", s.requireAuth)
	{
		messages.GET("/users", s.listUsers)
		messages.GET("/:id", s.history)
		messages.POST("/send/:id", s.send)
	}

	r.GET("/ws", s.handleWS)

	s.httpSrv = httptest.NewServer(r)
	return s
}

// BaseURL is the REST root the client should be pointed at.
func (s *Server) BaseURL() string { return s.httpSrv.URL + "/api" }

// SocketURL is the websocket endpoint.
func (s *Server) SocketURL() string {
	return "ws" + strings.TrimPrefix(s.httpSrv.URL, "http") + "/ws"
}

// FailNextSend makes the next POST /messages/send/:id answer 500.
func (s *Server) FailNextSend() {
	s.mu.Lock()
	s.failNextSend = true
	s.mu.Unlock()
}

// DropConnection severs userID's websocket the way a flaky network
// would. The endpoint stays up, so the client may redial.
func (s *Server) DropConnection(userID string) {
	s.mu.Lock()
	if conn, ok := s.conns[userID]; ok {
		conn.Close()
	}
	s.mu.Unlock()
}

func (s *Server) Close() {
	s.mu.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[string]*websocket.Conn)
	s.mu.Unlock()
	s.httpSrv.Close()
}

func (s *Server) signup(c *gin.Context) {
	var req struct {
		FullName string `json:"fullName" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	if _, exists := s.idByEmail[req.Email]; exists {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"message": "email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		s.mu.Unlock()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "cannot hash password"})
		return
	}

	acc := &account{
		user: models.ChatUser{
			ID:        uuid.NewString(),
			Email:     req.Email,
			FullName:  req.FullName,
			CreatedAt: time.Now().UTC(),
		},
		hash: hash,
	}
	s.accounts[acc.user.ID] = acc
	s.idByEmail[acc.user.Email] = acc.user.ID
	s.mu.Unlock()

	s.issueCookie(c, acc.user.ID)
	c.JSON(http.StatusCreated, acc.user)
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	id, ok := s.idByEmail[req.Email]
	var acc *account
	if ok {
		acc = s.accounts[id]
	}
	s.mu.Unlock()

	if acc == nil || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	s.issueCookie(c, acc.user.ID)
	c.JSON(http.StatusOK, acc.user)
}

func (s *Server) logout(c *gin.Context) {
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) check(c *gin.Context) {
	c.JSON(http.StatusOK, s.currentUser(c))
}

func (s *Server) updateProfile(c *gin.Context) {
	var req struct {
		FullName   *string `json:"fullName"`
		ProfilePic *string `json:"profilePic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	userID := c.MustGet("userID").(string)
	s.mu.Lock()
	acc := s.accounts[userID]
	if req.FullName != nil {
		acc.user.FullName = *req.FullName
	}
	if req.ProfilePic != nil {
		acc.user.ProfilePic = *req.ProfilePic
	}
	user := acc.user
	s.mu.Unlock()

	c.JSON(http.StatusOK, user)
}

func (s *Server) listUsers(c *gin.Context) {
	userID := c.MustGet("userID").(string)

	s.mu.Lock()
	users := make([]models.ChatUser, 0, len(s.accounts))
	for id, acc := range s.accounts {
		if id != userID {
			users = append(users, acc.user)
		}
	}
	s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })
	c.JSON(http.StatusOK, users)
}

func (s *Server) history(c *gin.Context) {
	userID := c.MustGet("userID").(string)
	peerID := c.Param("id")

	s.mu.Lock()
	if _, ok := s.accounts[peerID]; !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}
	var history []models.ChatMessage
	for _, msg := range s.messages {
		if (msg.SenderID == userID && msg.ReceiverID == peerID) ||
			(msg.SenderID == peerID && msg.ReceiverID == userID) {
			history = append(history, msg)
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, history)
}

func (s *Server) send(c *gin.Context) {
	userID := c.MustGet("userID").(string)
	peerID := c.Param("id")

	var req struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	if s.failNextSend {
		s.failNextSend = false
		s.mu.Unlock()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "simulated failure"})
		return
	}
	if _, ok := s.accounts[peerID]; !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}

	msg := models.ChatMessage{
		ID:         uuid.NewString(),
		SenderID:   userID,
		ReceiverID: peerID,
		Text:       req.Text,
		Image:      req.Image,
		CreatedAt:  time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	s.pushLocked(peerID, realtime.EventNewMessage, msg)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, msg)
}

func (s *Server) handleWS(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "userId is required"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	if prev, ok := s.conns[userID]; ok {
		prev.Close()
	}
	s.conns[userID] = conn
	s.broadcastPresenceLocked()
	s.mu.Unlock()

	// read loop: the client emits sendMessage mirrors we deliberately
	// drop (the REST path already delivered them); a read error means
	// the client went away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	if s.conns[userID] == conn {
		delete(s.conns, userID)
		s.broadcastPresenceLocked()
	}
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) requireAuth(c *gin.Context) {
	token, err := c.Cookie(auth.SessionCookie)
	if err != nil || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
		return
	}
	claims, err := s.jwt.Verify(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return
	}

	s.mu.Lock()
	_, ok := s.accounts[claims.Subject]
	s.mu.Unlock()
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unknown user"})
		return
	}

	c.Set("userID", claims.Subject)
	c.Next()
}

func (s *Server) currentUser(c *gin.Context) models.ChatUser {
	userID := c.MustGet("userID").(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[userID].user
}

func (s *Server) issueCookie(c *gin.Context, userID string) {
	token, err := s.jwt.Generate(userID)
	if err != nil {
		s.log.Error("token generation failed", zap.Error(err))
		return
	}
	c.SetCookie(auth.SessionCookie, token, int(tokenTTL.Seconds()), "/", "", false, true)
}

func (s *Server) pushLocked(userID, event string, data interface{}) {
	conn, ok := s.conns[userID]
	if !ok {
		return
	}
	if err := writeEnvelope(conn, event, data); err != nil {
		s.log.Warn("push failed", zap.String("user", userID), zap.Error(err))
	}
}

func (s *Server) broadcastPresenceLocked() {
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for id, conn := range s.conns {
		if err := writeEnvelope(conn, realtime.EventOnlineUsers, ids); err != nil {
			s.log.Warn("presence broadcast failed", zap.String("user", id), zap.Error(err))
		}
	}
}

func writeEnvelope(conn *websocket.Conn, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(realtime.Envelope{Event: event, Data: raw})
}
