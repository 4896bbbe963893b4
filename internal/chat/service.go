package chat

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/matheus3301/rolechat/internal/conversation"
	"github.com/matheus3301/rolechat/internal/directory"
	"github.com/matheus3301/rolechat/internal/message"
	"github.com/matheus3301/rolechat/internal/metrics"
	"github.com/matheus3301/rolechat/internal/role"
	"github.com/matheus3301/rolechat/internal/translate"
	"go.uber.org/zap"
)

// System is the actor id used by internal callers that bypass per-user
// visibility checks.
const System int64 = 0

// Options tunes the service's input checks.
type Options struct {
	MaxTextLen        int
	AllowSelfMessages bool
	// SendRate is the sustained messages per second allowed per sender.
	// Zero uses the default; a negative rate disables limiting.
	SendRate  float64
	SendBurst int
}

// Service is the authorization and validation boundary in front of the
// message log and user directory. Every check happens before any mutation.
type Service struct {
	log        *message.Log
	dir        *directory.Directory
	view       *conversation.View
	translator *translate.Fallback
	metrics    *metrics.Metrics
	limits     *limiterPool
	opts       Options
	logger     *zap.Logger
}

// NewService composes a service. translator and m may be nil.
func NewService(log *message.Log, dir *directory.Directory, translator *translate.Fallback, m *metrics.Metrics, opts Options, logger *zap.Logger) *Service {
	return &Service{
		log:        log,
		dir:        dir,
		view:       conversation.New(log),
		translator: translator,
		metrics:    m,
		limits:     &limiterPool{rps: opts.SendRate, burst: opts.SendBurst},
		opts:       opts,
		logger:     logger,
	}
}

// SendRequest is a message submission.
type SendRequest struct {
	SenderID   int64            `json:"senderId"`
	ReceiverID int64            `json:"receiverId"`
	Text       string           `json:"text"`
	Product    *message.Product `json:"product,omitempty"`
}

// Send validates req, checks the role policy and appends the message.
func (s *Service) Send(_ context.Context, req SendRequest) (message.Message, error) {
	if err := s.validateText(req.Text); err != nil {
		s.metrics.Rejected("validation")
		return message.Message{}, err
	}
	if err := validateProduct(req.Product); err != nil {
		s.metrics.Rejected("validation")
		return message.Message{}, err
	}
	if req.SenderID == req.ReceiverID && !s.opts.AllowSelfMessages {
		s.metrics.Rejected("validation")
		return message.Message{}, invalid("receiverId", "cannot message yourself")
	}

	sender, receiver, err := s.pair(req.SenderID, req.ReceiverID)
	if err != nil {
		s.metrics.Rejected("unknown_user")
		return message.Message{}, err
	}
	if !role.CanAddress(sender.Role, receiver.Role) {
		s.metrics.Rejected("permission_denied")
		s.logger.Info("send denied",
			zap.Int64("sender", sender.ID), zap.Stringer("sender_role", sender.Role),
			zap.Int64("receiver", receiver.ID), zap.Stringer("receiver_role", receiver.Role))
		return message.Message{}, denied("%s cannot message %s", sender.Role, receiver.Role)
	}
	if req.Product != nil && !role.Has(sender.Role, role.SellProducts) {
		s.metrics.Rejected("permission_denied")
		return message.Message{}, denied("%s cannot attach products", sender.Role)
	}
	if !s.limits.Allow(sender.ID) {
		s.metrics.Rejected("rate_limited")
		return message.Message{}, ErrRateLimited
	}

	m := s.append(sender, receiver.ID, req.Text, req.Product)
	s.logger.Debug("message sent", zap.Int64("id", m.ID), zap.Int64("sender", m.SenderID), zap.Int64("receiver", m.ReceiverID))
	return m, nil
}

// Broadcast sends text from senderID to every other user the sender may
// address. It requires the Broadcast permission and consumes one send token.
func (s *Service) Broadcast(_ context.Context, senderID int64, text string) ([]message.Message, error) {
	if err := s.validateText(text); err != nil {
		s.metrics.Rejected("validation")
		return nil, err
	}
	sender, ok := s.dir.Get(senderID)
	if !ok {
		s.metrics.Rejected("unknown_user")
		return nil, unknownUser(senderID)
	}
	if !role.Has(sender.Role, role.Broadcast) {
		s.metrics.Rejected("permission_denied")
		return nil, denied("%s cannot broadcast", sender.Role)
	}
	if !s.limits.Allow(sender.ID) {
		s.metrics.Rejected("rate_limited")
		return nil, ErrRateLimited
	}

	var sent []message.Message
	for _, u := range s.dir.List() {
		if u.ID == sender.ID || !role.CanAddress(sender.Role, u.Role) {
			continue
		}
		sent = append(sent, s.append(sender, u.ID, text, nil))
	}
	s.logger.Info("broadcast sent", zap.Int64("sender", sender.ID), zap.Int("recipients", len(sent)))
	return sent, nil
}

func (s *Service) append(sender directory.User, receiverID int64, text string, product *message.Product) message.Message {
	if product != nil {
		p := *product
		product = &p
	}
	m := s.log.Append(text, sender.ID, receiverID, message.Sender{Name: sender.Name, Role: sender.Role}, product)
	s.metrics.Sent(sender.Role.String())
	return m
}

// MarkRead marks messageID read on behalf of actorID, who must be its
// receiver. Absent messages are a no-op.
func (s *Service) MarkRead(_ context.Context, actorID, messageID int64) error {
	m, ok := s.log.Get(messageID)
	if !ok {
		return nil
	}
	if actorID != System && actorID != m.ReceiverID {
		s.metrics.Rejected("permission_denied")
		return denied("only the receiver can mark message %d read", messageID)
	}
	s.log.MarkRead(messageID)
	return nil
}

// MarkConversationRead marks everything peerID sent to readerID as read and
// returns how many messages changed. Only the reader (or System) may do so.
func (s *Service) MarkConversationRead(_ context.Context, actorID, readerID, peerID int64) (int, error) {
	if _, ok := s.dir.Get(readerID); !ok {
		return 0, unknownUser(readerID)
	}
	if actorID != System && actorID != readerID {
		return 0, denied("user %d cannot mark messages to user %d as read", actorID, readerID)
	}
	return s.log.MarkReadWhere(func(m *message.Message) bool {
		return m.ReceiverID == readerID && m.SenderID == peerID
	}), nil
}

// Delete removes messageID. The actor needs the DeleteMessages permission
// and must either take part in the message or outrank its sender.
// Absent messages are a no-op.
func (s *Service) Delete(_ context.Context, actorID, messageID int64) error {
	m, ok := s.log.Get(messageID)
	if !ok {
		return nil
	}
	if actorID != System {
		actor, ok := s.dir.Get(actorID)
		if !ok {
			return unknownUser(actorID)
		}
		if !role.Has(actor.Role, role.DeleteMessages) {
			s.metrics.Rejected("permission_denied")
			return denied("%s cannot delete messages", actor.Role)
		}
		if !m.Involves(actor.ID) && !role.CanManage(actor.Role, m.SenderRole) {
			s.metrics.Rejected("permission_denied")
			return denied("%s cannot delete a message sent by %s", actor.Role, m.SenderRole)
		}
	}
	if s.log.Delete(messageID) {
		s.logger.Info("message deleted", zap.Int64("id", messageID), zap.Int64("actor", actorID))
	}
	return nil
}

// History returns the ordered conversation between a and b as seen by
// viewerID, who must take part in it or hold ViewAllChats.
func (s *Service) History(_ context.Context, viewerID, a, b int64) ([]message.Message, error) {
	if viewerID != System && viewerID != a && viewerID != b {
		viewer, ok := s.dir.Get(viewerID)
		if !ok {
			return nil, unknownUser(viewerID)
		}
		if !role.Has(viewer.Role, role.ViewAllChats) {
			s.metrics.Rejected("permission_denied")
			return nil, denied("%s cannot view other users' conversations", viewer.Role)
		}
	}
	return s.view.History(a, b), nil
}

// Unread returns the number of unread messages addressed to userID.
func (s *Service) Unread(_ context.Context, userID int64) (int, error) {
	if _, ok := s.dir.Get(userID); !ok {
		return 0, unknownUser(userID)
	}
	return s.view.UnreadCount(userID), nil
}

// UnreadFrom returns the number of unread messages peerID sent to readerID.
func (s *Service) UnreadFrom(_ context.Context, readerID, peerID int64) (int, error) {
	if _, ok := s.dir.Get(readerID); !ok {
		return 0, unknownUser(readerID)
	}
	return s.view.UnreadFrom(readerID, peerID), nil
}

// Conversations lists userID's conversations, most recent first.
func (s *Service) Conversations(_ context.Context, userID int64) ([]conversation.Summary, error) {
	if _, ok := s.dir.Get(userID); !ok {
		return nil, unknownUser(userID)
	}
	return s.view.Conversations(userID), nil
}

// Contact is a directory entry annotated for one viewer.
type Contact struct {
	directory.User
	CanMessage bool `json:"canMessage"`
	Unread     int  `json:"unread"`
}

// Users filters the directory for viewerID's contact list. A zero viewer
// excludes nobody and gets no per-viewer annotations.
func (s *Service) Users(_ context.Context, viewerID int64, search, roleFilter string) ([]Contact, error) {
	var viewer directory.User
	if viewerID != System {
		v, ok := s.dir.Get(viewerID)
		if !ok {
			return nil, unknownUser(viewerID)
		}
		viewer = v
	}
	if roleFilter != "" && roleFilter != conversation.AllRoles {
		if _, err := role.Parse(roleFilter); err != nil {
			return nil, invalid("role", err.Error())
		}
	}

	users := conversation.FilterUsers(viewerID, s.dir.List(), search, roleFilter)
	out := make([]Contact, 0, len(users))
	for _, u := range users {
		c := Contact{User: u}
		if viewerID != System {
			c.CanMessage = role.CanAddress(viewer.Role, u.Role)
			c.Unread = s.view.UnreadFrom(viewerID, u.ID)
		}
		out = append(out, c)
	}
	return out, nil
}

// RegisterRequest describes a new user.
type RegisterRequest struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  role.Role `json:"role"`
}

// Register validates req and adds the user to the directory.
func (s *Service) Register(_ context.Context, req RegisterRequest) (directory.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return directory.User{}, invalid("name", "must not be empty")
	}
	if !req.Role.Valid() {
		return directory.User{}, invalid("role", "must be Admin, Staff or Agent")
	}
	email := strings.TrimSpace(req.Email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return directory.User{}, invalid("email", "not a valid address")
	}
	u, ok := s.dir.AddUnique(directory.UserData{Name: name, Email: email, Role: req.Role})
	if !ok {
		return directory.User{}, ErrDuplicateEmail
	}
	s.logger.Info("user registered", zap.Int64("id", u.ID), zap.Stringer("role", u.Role))
	return u, nil
}

// SetPresence updates userID's online flag. Unknown users are ignored.
func (s *Service) SetPresence(_ context.Context, userID int64, online bool) {
	s.dir.SetOnline(userID, online)
}

// Translation is the result of a translation request.
type Translation struct {
	Text       string `json:"text"`
	Detected   string `json:"detected"`
	Translated bool   `json:"translated"`
}

// Translate renders text in lang. It never fails on translator errors;
// the original text comes back with Translated=false instead.
func (s *Service) Translate(ctx context.Context, text, lang string) (Translation, error) {
	if lang == "" {
		return Translation{}, invalid("lang", "must not be empty")
	}
	if !translate.Supported(lang) {
		return Translation{}, invalid("lang", "unsupported language "+lang)
	}
	detected := translate.Detect(text)
	if s.translator == nil || lang == detected {
		return Translation{Text: text, Detected: detected}, nil
	}
	out, ok := s.translator.Translate(ctx, text, lang)
	return Translation{Text: out, Detected: detected, Translated: ok}, nil
}

func (s *Service) pair(senderID, receiverID int64) (directory.User, directory.User, error) {
	sender, ok := s.dir.Get(senderID)
	if !ok {
		return directory.User{}, directory.User{}, unknownUser(senderID)
	}
	receiver, ok := s.dir.Get(receiverID)
	if !ok {
		return directory.User{}, directory.User{}, unknownUser(receiverID)
	}
	return sender, receiver, nil
}

func (s *Service) validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return invalid("text", "must not be empty")
	}
	if s.opts.MaxTextLen > 0 && utf8.RuneCountInString(text) > s.opts.MaxTextLen {
		return invalid("text", "too long")
	}
	return nil
}

func validateProduct(p *message.Product) error {
	if p == nil {
		return nil
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid("product.name", "must not be empty")
	}
	if p.Price < 0 {
		return invalid("product.price", "must not be negative")
	}
	return nil
}
