package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matheus3301/rolechat/internal/chat"
	"github.com/matheus3301/rolechat/internal/message"
	"github.com/matheus3301/rolechat/internal/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// UserIDHeader names the calling user. Routes that act or read as a user
// require it.
const UserIDHeader = "X-User-ID"

// Handler serves the chat HTTP API.
type Handler struct {
	svc      *chat.Service
	machine  *status.Machine
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewHandler creates a handler. machine and gatherer may be nil, which
// disables /health and /metrics respectively.
func NewHandler(svc *chat.Service, machine *status.Machine, gatherer prometheus.Gatherer, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, machine: machine, gatherer: gatherer, logger: logger}
}

// Engine builds a gin engine with middleware and all routes registered.
func (h *Handler) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestID(), accessLog(h.logger), recovery(h.logger))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	if h.machine != nil {
		r.GET("/health", h.Health)
	}
	if h.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	r.POST("/messages", h.Send)
	r.POST("/messages/:id/read", h.MarkRead)
	r.DELETE("/messages/:id", h.Delete)
	r.POST("/broadcast", h.Broadcast)
	r.GET("/conversations/:a/:b", h.History)
	r.POST("/conversations/:a/:b/read", h.MarkConversationRead)
	r.POST("/translate", h.Translate)

	users := r.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", h.Register)
		users.GET("/:id/unread", h.Unread)
		users.GET("/:id/conversations", h.Conversations)
		users.PUT("/:id/presence", h.SetPresence)
	}
}

// Health reports the daemon state. Anything but READY is a 503.
func (h *Handler) Health(c *gin.Context) {
	state := h.machine.Current()
	code := http.StatusOK
	if state != status.Ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"state": state,
		"since": h.machine.Since().UTC().Format(time.RFC3339),
	})
}

// Send handles POST /messages.
func (h *Handler) Send(c *gin.Context) {
	var req chat.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	caller, ok := callerID(c)
	if !ok || !requireSelf(c, caller, req.SenderID, "send as") {
		return
	}
	m, err := h.svc.Send(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

type broadcastRequest struct {
	SenderID int64  `json:"senderId"`
	Text     string `json:"text"`
}

// Broadcast handles POST /broadcast.
func (h *Handler) Broadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	caller, ok := callerID(c)
	if !ok || !requireSelf(c, caller, req.SenderID, "broadcast as") {
		return
	}
	sent, err := h.svc.Broadcast(c.Request.Context(), req.SenderID, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	if sent == nil {
		sent = []message.Message{}
	}
	c.JSON(http.StatusCreated, sent)
}

// MarkRead handles POST /messages/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /messages/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// History handles GET /conversations/:a/:b as seen by the caller.
func (h *Handler) History(c *gin.Context) {
	a, ok := pathID(c, "a")
	if !ok {
		return
	}
	b, ok := pathID(c, "b")
	if !ok {
		return
	}
	viewer, ok := callerID(c)
	if !ok {
		return
	}
	msgs, err := h.svc.History(c.Request.Context(), viewer, a, b)
	if err != nil {
		fail(c, err)
		return
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

// MarkConversationRead handles POST /conversations/:a/:b/read, marking
// everything b sent to a as read.
func (h *Handler) MarkConversationRead(c *gin.Context) {
	reader, ok := pathID(c, "a")
	if !ok {
		return
	}
	peer, ok := pathID(c, "b")
	if !ok {
		return
	}
	actor, ok := callerID(c)
	if !ok {
		return
	}
	n, err := h.svc.MarkConversationRead(c.Request.Context(), actor, reader, peer)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// Unread handles GET /users/:id/unread, optionally narrowed with ?from=.
func (h *Handler) Unread(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	caller, ok := callerID(c)
	if !ok || !requireSelf(c, caller, id, "read unread counts of") {
		return
	}
	var (
		n   int
		err error
	)
	if from := c.Query("from"); from != "" {
		peer, perr := strconv.ParseInt(from, 10, 64)
		if perr != nil {
			badRequest(c, "from must be a user id")
			return
		}
		n, err = h.svc.UnreadFrom(c.Request.Context(), id, peer)
	} else {
		n, err = h.svc.Unread(c.Request.Context(), id)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// Conversations handles GET /users/:id/conversations.
func (h *Handler) Conversations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	caller, ok := callerID(c)
	if !ok || !requireSelf(c, caller, id, "list conversations of") {
		return
	}
	convs, err := h.svc.Conversations(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// ListUsers handles GET /users?q=&role=&exclude=.
func (h *Handler) ListUsers(c *gin.Context) {
	var viewer int64
	if ex := c.Query("exclude"); ex != "" {
		v, err := strconv.ParseInt(ex, 10, 64)
		if err != nil {
			badRequest(c, "exclude must be a user id")
			return
		}
		viewer = v
	}
	users, err := h.svc.Users(c.Request.Context(), viewer, c.Query("q"), c.Query("role"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Register handles POST /users.
func (h *Handler) Register(c *gin.Context) {
	var req chat.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type presenceRequest struct {
	Online *bool `json:"online"`
}

// SetPresence handles PUT /users/:id/presence.
func (h *Handler) SetPresence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	caller, ok := callerID(c)
	if !ok || !requireSelf(c, caller, id, "set presence of") {
		return
	}
	var req presenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Online == nil {
		badRequest(c, "online is required")
		return
	}
	h.svc.SetPresence(c.Request.Context(), id, *req.Online)
	c.Status(http.StatusNoContent)
}

type translateRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// Translate handles POST /translate.
func (h *Handler) Translate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	tr, err := h.svc.Translate(c.Request.Context(), req.Text, req.Lang)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tr)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// callerID reads X-User-ID. HTTP callers are always users; only in-process
// and socket clients act as chat.System.
func callerID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(UserIDHeader)
	if raw == "" {
		unauthenticated(c, UserIDHeader+" header is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, UserIDHeader+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// requireSelf rejects the request unless the caller is the user it names.
func requireSelf(c *gin.Context, caller, id int64, action string) bool {
	if caller != id {
		fail(c, fmt.Errorf("%w: user %d cannot %s user %d", chat.ErrPermissionDenied, caller, action, id))
		return false
	}
	return true
}
