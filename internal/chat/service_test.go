package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/rolechat/internal/conversation"
	"github.com/matheus3301/rolechat/internal/delivery"
	"github.com/matheus3301/rolechat/internal/directory"
	"github.com/matheus3301/rolechat/internal/message"
	"github.com/matheus3301/rolechat/internal/role"
	"github.com/matheus3301/rolechat/internal/translate"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	adminID int64 = 1
	staffID int64 = 2
	agentID int64 = 3
	agent2  int64 = 4
)

type fixture struct {
	svc *Service
	log *message.Log
	dir *directory.Directory
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	log := message.NewLog(nil)
	log.Replace(message.Seed(time.Now()))
	dir := directory.New(nil)
	dir.Replace(directory.Seed())
	dir.Add(directory.UserData{Name: "Second Agent", Email: "agent2@demo.com", Role: role.Agent})

	if opts.SendRate == 0 {
		opts.SendRate = -1
	}
	tr := translate.NewFallback(translate.NewPhrasebook(), time.Second, zap.NewNop())
	return &fixture{
		svc: NewService(log, dir, tr, nil, opts, zap.NewNop()),
		log: log,
		dir: dir,
	}
}

func TestSendAllowedThenReadReceipt(t *testing.T) {
	f := newFixture(t, Options{})
	sim := delivery.NewSimulator(f.log, 20*time.Millisecond, zap.NewNop())
	defer sim.Stop()
	f.log.SetScheduler(sim)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, SendRequest{SenderID: adminID, ReceiverID: agentID, Text: "Hello"})
	if err != nil {
		t.Fatal(err)
	}
	if m.Read || m.SenderRole != role.Admin || m.SenderName != "Admin User" {
		t.Errorf("message = %+v", m)
	}
	if n, _ := f.svc.Unread(ctx, agentID); n != 1 {
		t.Errorf("unread before receipt = %d, want 1", n)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := f.log.Get(m.ID); got.Read {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got, _ := f.log.Get(m.ID); !got.Read {
		t.Fatal("message never marked read")
	}
	if n, _ := f.svc.Unread(ctx, agentID); n != 0 {
		t.Errorf("unread after receipt = %d, want 0", n)
	}
}

func TestSendDeniedLeavesStoreUnchanged(t *testing.T) {
	f := newFixture(t, Options{})
	before := f.log.Len()

	_, err := f.svc.Send(context.Background(), SendRequest{SenderID: agentID, ReceiverID: agent2, Text: "hi"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if f.log.Len() != before {
		t.Errorf("log grew from %d to %d", before, f.log.Len())
	}
}

func TestSendPolicyMatrix(t *testing.T) {
	tests := []struct {
		name     string
		from, to int64
		allowed  bool
	}{
		{"admin to agent", adminID, agentID, true},
		{"admin to staff", adminID, staffID, true},
		{"staff to admin", staffID, adminID, true},
		{"staff to agent", staffID, agentID, false},
		{"agent to admin", agentID, adminID, true},
		{"agent to staff", agentID, staffID, true},
		{"agent to agent", agentID, agent2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			_, err := f.svc.Send(context.Background(), SendRequest{SenderID: tt.from, ReceiverID: tt.to, Text: "hi"})
			if tt.allowed && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.allowed && !errors.Is(err, ErrPermissionDenied) {
				t.Errorf("err = %v, want ErrPermissionDenied", err)
			}
		})
	}
}

func TestSendValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   SendRequest
		field string
	}{
		{"empty text", SendRequest{SenderID: adminID, ReceiverID: agentID, Text: "  "}, "text"},
		{"too long", SendRequest{SenderID: adminID, ReceiverID: agentID, Text: "abcdefghijk"}, "text"},
		{"self", SendRequest{SenderID: adminID, ReceiverID: adminID, Text: "me"}, "receiverId"},
		{"negative price", SendRequest{SenderID: adminID, ReceiverID: agentID, Text: "buy",
			Product: &message.Product{Name: "kit", Price: -1}}, "product.price"},
		{"unnamed product", SendRequest{SenderID: adminID, ReceiverID: agentID, Text: "buy",
			Product: &message.Product{Price: 1}}, "product.name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{MaxTextLen: 10})
			_, err := f.svc.Send(context.Background(), tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
			if f.log.Len() != 3 {
				t.Errorf("log len = %d, want 3", f.log.Len())
			}
		})
	}
}

func TestSendSelfAllowedByOption(t *testing.T) {
	f := newFixture(t, Options{AllowSelfMessages: true})
	if _, err := f.svc.Send(context.Background(), SendRequest{SenderID: adminID, ReceiverID: adminID, Text: "note"}); err != nil {
		t.Fatal(err)
	}
}

func TestSendUnknownUser(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Send(context.Background(), SendRequest{SenderID: adminID, ReceiverID: 99, Text: "hi"})
	if !errors.Is(err, ErrUnknownUser) {
		t.Errorf("err = %v, want ErrUnknownUser", err)
	}
}

func TestProductsRequireSeller(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := &message.Product{ID: "p1", Name: "Plan", Price: 9.99}

	m, err := f.svc.Send(ctx, SendRequest{SenderID: adminID, ReceiverID: agentID, Text: "offer", Product: p})
	if err != nil {
		t.Fatal(err)
	}
	p.Name = "mutated"
	if m.Product.Name != "Plan" {
		t.Error("stored product aliases the caller's value")
	}

	_, err = f.svc.Send(ctx, SendRequest{SenderID: agentID, ReceiverID: adminID, Text: "offer", Product: p})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("agent product err = %v, want ErrPermissionDenied", err)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Options{SendRate: 0.001, SendBurst: 2})
	ctx := context.Background()
	req := SendRequest{SenderID: agentID, ReceiverID: adminID, Text: "hi"}

	for i := range 2 {
		if _, err := f.svc.Send(ctx, req); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if _, err := f.svc.Send(ctx, req); !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	// Buckets are per sender.
	if _, err := f.svc.Send(ctx, SendRequest{SenderID: adminID, ReceiverID: agentID, Text: "hi"}); err != nil {
		t.Errorf("other sender limited: %v", err)
	}
}

func TestBroadcast(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	sent, err := f.svc.Broadcast(ctx, adminID, "maintenance tonight")
	if err != nil {
		t.Fatal(err)
	}
	got := map[int64]bool{}
	for _, m := range sent {
		got[m.ReceiverID] = true
	}
	for _, id := range []int64{staffID, agentID, agent2} {
		if !got[id] {
			t.Errorf("user %d missed the broadcast", id)
		}
	}
	if got[adminID] || len(sent) != 3 {
		t.Errorf("recipients = %v", got)
	}

	if _, err := f.svc.Broadcast(ctx, staffID, "hi"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("staff broadcast err = %v, want ErrPermissionDenied", err)
	}
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	m, err := f.svc.Send(ctx, SendRequest{SenderID: adminID, ReceiverID: agentID, Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.MarkRead(ctx, adminID, m.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("sender marking read: err = %v", err)
	}
	if err := f.svc.MarkRead(ctx, agentID, m.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.log.Get(m.ID); !got.Read {
		t.Error("message not read")
	}
	if err := f.svc.MarkRead(ctx, agentID, m.ID); err != nil {
		t.Errorf("second mark read: %v", err)
	}
	if err := f.svc.MarkRead(ctx, agentID, 999); err != nil {
		t.Errorf("absent id: %v", err)
	}
}

func TestMarkConversationRead(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	for range 3 {
		if _, err := f.svc.Send(ctx, SendRequest{SenderID: adminID, ReceiverID: agentID, Text: "hi"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.Send(ctx, SendRequest{SenderID: staffID, ReceiverID: adminID, Text: "x"}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.MarkConversationRead(ctx, staffID, agentID, adminID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("marking another user's conversation: err = %v, want ErrPermissionDenied", err)
	}
	if u, _ := f.svc.UnreadFrom(ctx, agentID, adminID); u != 3 {
		t.Fatalf("agent unread from admin = %d after refused mark, want 3", u)
	}

	n, err := f.svc.MarkConversationRead(ctx, agentID, agentID, adminID)
	if err != nil || n != 3 {
		t.Fatalf("MarkConversationRead = %d, %v; want 3", n, err)
	}
	if u, _ := f.svc.Unread(ctx, adminID); u != 1 {
		t.Errorf("admin unread = %d, want 1", u)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	m, err := f.svc.Send(ctx, SendRequest{SenderID: agentID, ReceiverID: staffID, Text: "oops"})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Delete(ctx, staffID, m.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("staff delete err = %v, want ErrPermissionDenied", err)
	}
	if err := f.svc.Delete(ctx, adminID, m.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, ok := f.log.Get(m.ID); ok {
		t.Error("message still present")
	}
	if err := f.svc.Delete(ctx, adminID, m.ID); err != nil {
		t.Errorf("deleting again: %v", err)
	}
}

func TestHistoryVisibility(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	h, err := f.svc.History(ctx, staffID, adminID, staffID)
	if err != nil || len(h) != 2 {
		t.Fatalf("participant history = %d, %v", len(h), err)
	}
	if _, err := f.svc.History(ctx, agentID, adminID, staffID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("outsider err = %v, want ErrPermissionDenied", err)
	}
	if h, err := f.svc.History(ctx, adminID, staffID, agentID); err != nil || len(h) != 0 {
		t.Errorf("admin view = %d, %v", len(h), err)
	}
	if h, err := f.svc.History(ctx, System, adminID, agentID); err != nil || len(h) != 1 {
		t.Errorf("system view = %d, %v", len(h), err)
	}
}

func TestUsers(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	contacts, err := f.svc.Users(ctx, agentID, "", conversation.AllRoles)
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 3 {
		t.Fatalf("contacts = %d, want 3", len(contacts))
	}
	for _, c := range contacts {
		want := c.Role != role.Agent
		if c.CanMessage != want {
			t.Errorf("%s canMessage = %v, want %v", c.Name, c.CanMessage, want)
		}
	}

	staff, err := f.svc.Users(ctx, agentID, "DEMO", "Staff")
	if err != nil || len(staff) != 1 || staff[0].ID != staffID {
		t.Errorf("staff filter = %+v, %v", staff, err)
	}
	if _, err := f.svc.Users(ctx, agentID, "", "Owner"); !IsValidation(err) {
		t.Errorf("bad role filter err = %v", err)
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterRequest{Name: " New Staff ", Email: "new@demo.com", Role: role.Staff})
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != 5 || u.Name != "New Staff" || !u.Online {
		t.Errorf("user = %+v", u)
	}

	if _, err := f.svc.Register(ctx, RegisterRequest{Name: "Dup", Email: "NEW@demo.com", Role: role.Agent}); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("duplicate err = %v", err)
	}
	for _, bad := range []RegisterRequest{
		{Name: "", Email: "a@b.c", Role: role.Agent},
		{Name: "x", Email: "not-an-email", Role: role.Agent},
		{Name: "x", Email: "x@demo.com"},
	} {
		if _, err := f.svc.Register(ctx, bad); !IsValidation(err) {
			t.Errorf("Register(%+v) err = %v, want validation", bad, err)
		}
	}
}

func TestRegisterConcurrentDuplicates(t *testing.T) {
	f := newFixture(t, Options{})
	var (
		g        errgroup.Group
		accepted atomic.Int32
	)
	for range 32 {
		g.Go(func() error {
			_, err := f.svc.Register(context.Background(), RegisterRequest{Name: "Racer", Email: "race@demo.com", Role: role.Agent})
			switch {
			case err == nil:
				accepted.Add(1)
			case !errors.Is(err, ErrDuplicateEmail):
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if n := accepted.Load(); n != 1 {
		t.Errorf("accepted registrations = %d, want 1", n)
	}
}

func TestPresenceAndConversations(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.svc.SetPresence(ctx, staffID, false)
	f.svc.SetPresence(ctx, 99, false)
	if u, _ := f.dir.Get(staffID); u.Online {
		t.Error("staff still online")
	}

	convs, err := f.svc.Conversations(ctx, adminID)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 || convs[0].PeerID != agentID {
		t.Errorf("conversations = %+v", convs)
	}
}

func TestTranslate(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	tr, err := f.svc.Translate(ctx, "Hello", translate.French)
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Translated || tr.Text != "Bonjour" || tr.Detected != translate.English {
		t.Errorf("translation = %+v", tr)
	}
	if _, err := f.svc.Translate(ctx, "Hello", "xx"); !IsValidation(err) {
		t.Errorf("unsupported err = %v", err)
	}
}
