package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
	"github.com/heartmarshall/learnhub-backend/internal/event"
	"github.com/heartmarshall/learnhub-backend/pkg/ctxutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, store *notificationRepoMock, admins *adminListerMock, push *pusherMock) *Service {
	t.Helper()
	return NewService(discardLogger(), store, admins, push, Config{})
}

// memStore backs a notificationRepoMock with an in-memory slice.
type memStore struct {
	mu      sync.Mutex
	records []domain.Notification
}

func (m *memStore) mock() *notificationRepoMock {
	return &notificationRepoMock{
		CreateFunc: func(_ context.Context, userID uuid.UUID, typ domain.NotificationType, payload domain.Payload) (*domain.Notification, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			n := domain.Notification{
				ID:        uuid.New(),
				UserID:    userID,
				Type:      typ,
				Payload:   payload,
				CreatedAt: time.Now(),
			}
			m.records = append(m.records, n)
			return &n, nil
		},
		ListRecentFunc: func(_ context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			var out []domain.Notification
			for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
				if m.records[i].UserID == userID {
					out = append(out, m.records[i])
				}
			}
			return out, nil
		},
	}
}

func (m *memStore) forUser(userID uuid.UUID) []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.records {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func adminsReturning(ids ...uuid.UUID) *adminListerMock {
	return &adminListerMock{
		ListAdminIDsFunc: func(context.Context) ([]uuid.UUID, error) { return ids, nil },
	}
}

func offlinePusher() *pusherMock {
	return &pusherMock{
		PushFunc: func(context.Context, uuid.UUID, domain.Notification) error { return nil },
	}
}

// ---------------------------------------------------------------------------
// SendNotification
// ---------------------------------------------------------------------------

func TestSendNotification_TwoAdmins(t *testing.T) {
	t.Parallel()

	u1, a1, a2 := uuid.New(), uuid.New(), uuid.New()
	mem := &memStore{}
	store := mem.mock()
	push := offlinePusher()
	svc := newTestService(t, store, adminsReturning(a1, a2), push)

	payload := domain.Payload{"ticketId": "t1", "message": "hi"}
	primary, err := svc.SendNotification(context.Background(), u1, domain.NotificationTicketReplied, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mem.count() != 3 {
		t.Fatalf("expected 3 records, got %d", mem.count())
	}
	if primary.UserID != u1 || primary.IsBroadcast() {
		t.Fatalf("unexpected primary record %+v", primary)
	}

	calls := store.CreateCalls()
	if calls[0].UserID != u1 {
		t.Fatal("primary record must be created before broadcasts")
	}

	for _, admin := range []uuid.UUID{a1, a2} {
		copies := mem.forUser(admin)
		if len(copies) != 1 {
			t.Fatalf("admin %s: expected 1 copy, got %d", admin, len(copies))
		}
		c := copies[0]
		if !c.IsBroadcast() {
			t.Errorf("admin %s: copy not tagged as broadcast", admin)
		}
		if c.Payload[domain.PayloadKeyOriginalFor] != u1.String() {
			t.Errorf("admin %s: originalFor = %v, want %s", admin, c.Payload[domain.PayloadKeyOriginalFor], u1)
		}
		if c.Type != domain.NotificationTicketReplied || c.Payload["ticketId"] != "t1" {
			t.Errorf("admin %s: copy does not mirror the primary: %+v", admin, c)
		}
	}

	if _, tagged := payload[domain.PayloadKeyBroadcast]; tagged {
		t.Fatal("caller payload must not be mutated")
	}
	if len(push.PushCalls()) != 3 {
		t.Fatalf("expected 3 push attempts, got %d", len(push.PushCalls()))
	}
}

func TestSendNotification_PrimaryDropsBroadcastKeys(t *testing.T) {
	t.Parallel()

	u1, a1 := uuid.New(), uuid.New()
	mem := &memStore{}
	svc := newTestService(t, mem.mock(), adminsReturning(a1), offlinePusher())

	spoofed := domain.Payload{
		"jobId":                      "j1",
		domain.PayloadKeyBroadcast:   true,
		domain.PayloadKeyOriginalFor: uuid.NewString(),
	}
	primary, err := svc.SendNotification(context.Background(), u1, domain.NotificationJobPosted, spoofed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if primary.IsBroadcast() {
		t.Fatal("primary record must not be tagged as broadcast")
	}
	if _, ok := primary.Payload[domain.PayloadKeyOriginalFor]; ok {
		t.Fatal("primary record must not carry originalFor")
	}
	if primary.Payload["jobId"] != "j1" {
		t.Fatalf("payload keys lost: %v", primary.Payload)
	}

	copies := mem.forUser(a1)
	if len(copies) != 1 || copies[0].Payload[domain.PayloadKeyOriginalFor] != u1.String() {
		t.Fatalf("admin copy must point at the real recipient: %+v", copies)
	}
	if spoofed[domain.PayloadKeyBroadcast] != true {
		t.Fatal("caller payload must not be mutated")
	}
}

func TestSendNotification_KAdminsKCopies(t *testing.T) {
	t.Parallel()

	for _, k := range []int{0, 1, 5} {
		admins := make([]uuid.UUID, k)
		for i := range admins {
			admins[i] = uuid.New()
		}
		mem := &memStore{}
		svc := newTestService(t, mem.mock(), adminsReturning(admins...), offlinePusher())

		if _, err := svc.SendNotification(context.Background(), uuid.New(), domain.NotificationJobPosted, nil); err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		if mem.count() != k+1 {
			t.Fatalf("k=%d: expected %d records, got %d", k, k+1, mem.count())
		}
	}
}

func TestSendNotification_AdminLookupFails(t *testing.T) {
	t.Parallel()

	u1 := uuid.New()
	mem := &memStore{}
	store := mem.mock()
	admins := &adminListerMock{
		ListAdminIDsFunc: func(context.Context) ([]uuid.UUID, error) {
			return nil, errors.New("users table unavailable")
		},
	}
	svc := newTestService(t, store, admins, offlinePusher())

	primary, err := svc.SendNotification(context.Background(), u1, domain.NotificationQuizAssigned, domain.Payload{"quizId": "q1"})
	if err != nil {
		t.Fatalf("admin lookup failure must not fail the call: %v", err)
	}
	if primary == nil || primary.UserID != u1 {
		t.Fatalf("expected the primary record back, got %+v", primary)
	}
	if len(store.CreateCalls()) != 1 {
		t.Fatalf("expected only the primary write, got %d", len(store.CreateCalls()))
	}
	if got := mem.forUser(u1); len(got) != 1 || got[0].IsBroadcast() {
		t.Fatalf("expected the primary record to persist, got %+v", got)
	}
}

func TestSendNotification_PrimaryCreateFails(t *testing.T) {
	t.Parallel()

	store := &notificationRepoMock{
		CreateFunc: func(context.Context, uuid.UUID, domain.NotificationType, domain.Payload) (*domain.Notification, error) {
			return nil, errors.New("insert failed")
		},
	}
	admins := adminsReturning(uuid.New())
	push := offlinePusher()
	svc := newTestService(t, store, admins, push)

	_, err := svc.SendNotification(context.Background(), uuid.New(), domain.NotificationQuizGraded, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(admins.ListAdminIDsCalls()) != 0 {
		t.Error("broadcast must not be attempted without a primary record")
	}
	if len(push.PushCalls()) != 0 {
		t.Error("nothing must be pushed without a primary record")
	}
}

func TestSendNotification_BroadcastFailureIsolated(t *testing.T) {
	t.Parallel()

	u1, bad, good := uuid.New(), uuid.New(), uuid.New()
	mem := &memStore{}
	base := mem.mock()
	store := &notificationRepoMock{
		CreateFunc: func(ctx context.Context, userID uuid.UUID, typ domain.NotificationType, payload domain.Payload) (*domain.Notification, error) {
			if userID == bad {
				return nil, errors.New("write failed")
			}
			return base.CreateFunc(ctx, userID, typ, payload)
		},
	}
	svc := newTestService(t, store, adminsReturning(bad, good), offlinePusher())

	primary, err := svc.SendNotification(context.Background(), u1, domain.NotificationMaterialAssigned, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.UserID != u1 {
		t.Fatalf("unexpected primary %+v", primary)
	}
	if len(mem.forUser(good)) != 1 {
		t.Fatal("later admins must still receive their copy")
	}
	if len(mem.forUser(bad)) != 0 {
		t.Fatal("failed admin copy must not exist")
	}
}

func TestSendNotification_PushFailureIsLogged(t *testing.T) {
	t.Parallel()

	u1, a1 := uuid.New(), uuid.New()
	mem := &memStore{}
	push := &pusherMock{
		PushFunc: func(context.Context, uuid.UUID, domain.Notification) error {
			return errors.New("socket gone")
		},
	}
	svc := newTestService(t, mem.mock(), adminsReturning(a1), push)

	if _, err := svc.SendNotification(context.Background(), u1, domain.NotificationRoleChanged, nil); err != nil {
		t.Fatalf("push failure must not fail the call: %v", err)
	}
	if mem.count() != 2 {
		t.Fatalf("expected primary and broadcast to persist, got %d records", mem.count())
	}
	if len(push.PushCalls()) != 2 {
		t.Fatalf("expected 2 push attempts, got %d", len(push.PushCalls()))
	}
}

func TestSendNotification_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target uuid.UUID
		typ    domain.NotificationType
	}{
		{"nil target", uuid.Nil, domain.NotificationQuizGraded},
		{"unknown type", uuid.New(), domain.NotificationType("somethingElse")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &notificationRepoMock{}
			svc := newTestService(t, store, &adminListerMock{}, &pusherMock{})

			_, err := svc.SendNotification(context.Background(), tt.target, tt.typ, nil)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(store.CreateCalls()) != 0 {
				t.Fatal("nothing must be written for invalid input")
			}
		})
	}
}

func TestSendNotification_OfflineUserSeesRecordLater(t *testing.T) {
	t.Parallel()

	u1 := uuid.New()
	mem := &memStore{}
	svc := newTestService(t, mem.mock(), adminsReturning(), offlinePusher())

	if _, err := svc.SendNotification(context.Background(), u1, domain.NotificationQuizGraded,
		domain.Payload{"userId": u1.String(), "quizId": "q1", "score": 87}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := ctxutil.WithUserID(context.Background(), u1)
	items, err := svc.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items) != 1 || items[0].Type != domain.NotificationQuizGraded || items[0].IsRead {
		t.Fatalf("expected one unread quizGraded record, got %+v", items)
	}
}

// ---------------------------------------------------------------------------
// Event handling
// ---------------------------------------------------------------------------

func TestHandleEvent_InvalidRecipient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload domain.Payload
	}{
		{"missing", domain.Payload{"quizId": "q1"}},
		{"not a string", domain.Payload{"userId": 42}},
		{"not a uuid", domain.Payload{"userId": "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &notificationRepoMock{}
			svc := newTestService(t, store, &adminListerMock{}, &pusherMock{})

			err := svc.HandleEvent(context.Background(), domain.NewEvent(domain.NotificationQuizAssigned, tt.payload))
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(store.CreateCalls()) != 0 {
				t.Fatal("nothing must be written")
			}
		})
	}
}

func TestRegister_OnePrimaryPerPublishedEvent(t *testing.T) {
	t.Parallel()

	mem := &memStore{}
	svc := newTestService(t, mem.mock(), adminsReturning(), offlinePusher())
	bus := event.NewBus(discardLogger())
	svc.Register(bus)

	for _, typ := range domain.NotificationTypes() {
		if bus.Listeners(typ) != 1 {
			t.Fatalf("expected one listener for %s", typ)
		}
	}

	u1 := uuid.New()
	bus.Publish(context.Background(), domain.NewEvent(domain.NotificationPasswordResetRequested, domain.Payload{"userId": u1.String()}))
	bus.Publish(context.Background(), domain.NewEvent(domain.NotificationMaterialAssigned, domain.Payload{"userId": u1.String(), "materialId": "m1"}))

	got := mem.forUser(u1)
	if len(got) != 2 {
		t.Fatalf("expected 2 primary records, got %d", len(got))
	}
	if got[0].Type != domain.NotificationPasswordResetRequested || got[1].Type != domain.NotificationMaterialAssigned {
		t.Fatalf("unexpected record types: %s, %s", got[0].Type, got[1].Type)
	}
}

// ---------------------------------------------------------------------------
// Reading and read state
// ---------------------------------------------------------------------------

func TestListRecent_Limits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"default", 0, DefaultLimit},
		{"explicit", 10, 10},
		{"capped", 1000, MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &notificationRepoMock{
				ListRecentFunc: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
					return []domain.Notification{}, nil
				},
			}
			svc := newTestService(t, store, &adminListerMock{}, &pusherMock{})
			ctx := ctxutil.WithUserID(context.Background(), uuid.New())

			if _, err := svc.ListRecent(ctx, tt.limit); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := store.ListRecentCalls()[0].Limit; got != tt.wantLimit {
				t.Fatalf("limit = %d, want %d", got, tt.wantLimit)
			}
		})
	}
}

func TestListRecent_NegativeLimit(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &notificationRepoMock{}, &adminListerMock{}, &pusherMock{})
	ctx := ctxutil.WithUserID(context.Background(), uuid.New())

	if _, err := svc.ListRecent(ctx, -1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestReads_Unauthorized(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &notificationRepoMock{}, &adminListerMock{}, &pusherMock{})
	ctx := context.Background()

	if _, err := svc.ListRecent(ctx, 10); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("ListRecent: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.ListUnread(ctx, 10); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("ListUnread: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.UnreadCount(ctx); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("UnreadCount: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.MarkRead(ctx, uuid.New()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("MarkRead: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.MarkAllRead(ctx); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("MarkAllRead: expected ErrUnauthorized, got %v", err)
	}
}

func TestMarkRead_PassesCallerAndMapsNotFound(t *testing.T) {
	t.Parallel()

	caller, owned := uuid.New(), uuid.New()
	store := &notificationRepoMock{
		MarkReadFunc: func(_ context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
			if id != owned || userID != caller {
				return nil, domain.ErrNotFound
			}
			return &domain.Notification{ID: id, UserID: userID, IsRead: true}, nil
		},
	}
	svc := newTestService(t, store, &adminListerMock{}, &pusherMock{})
	ctx := ctxutil.WithUserID(context.Background(), caller)

	n, err := svc.MarkRead(ctx, owned)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.IsRead {
		t.Fatal("expected read record")
	}

	if _, err := svc.MarkRead(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.MarkRead(ctx, uuid.Nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for nil id, got %v", err)
	}
	if got := len(store.MarkReadCalls()); got != 2 {
		t.Fatalf("expected 2 store calls, got %d", got)
	}
}

func TestUnreadCountAndMarkAllRead(t *testing.T) {
	t.Parallel()

	caller := uuid.New()
	store := &notificationRepoMock{
		CountUnreadFunc: func(_ context.Context, userID uuid.UUID) (int, error) {
			if userID != caller {
				t.Errorf("unexpected user %s", userID)
			}
			return 4, nil
		},
		MarkAllReadFunc: func(context.Context, uuid.UUID) (int, error) {
			return 4, nil
		},
		ListUnreadFunc: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
			return nil, errors.New("db down")
		},
	}
	svc := newTestService(t, store, &adminListerMock{}, &pusherMock{})
	ctx := ctxutil.WithUserID(context.Background(), caller)

	count, err := svc.UnreadCount(ctx)
	if err != nil || count != 4 {
		t.Fatalf("UnreadCount = %d, %v", count, err)
	}
	updated, err := svc.MarkAllRead(ctx)
	if err != nil || updated != 4 {
		t.Fatalf("MarkAllRead = %d, %v", updated, err)
	}
	if _, err := svc.ListUnread(ctx, 5); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
