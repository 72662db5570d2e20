package notification

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

var _ notificationRepo = &notificationRepoMock{}

type notificationRepoMock struct {
	CreateFunc      func(ctx context.Context, userID uuid.UUID, typ domain.NotificationType, payload domain.Payload) (*domain.Notification, error)
	ListRecentFunc  func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
	ListUnreadFunc  func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
	CountUnreadFunc func(ctx context.Context, userID uuid.UUID) (int, error)
	MarkReadFunc    func(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Notification, error)
	MarkAllReadFunc func(ctx context.Context, userID uuid.UUID) (int, error)

	calls struct {
		Create []struct {
			UserID  uuid.UUID
			Type    domain.NotificationType
			Payload domain.Payload
		}
		ListRecent []struct {
			UserID uuid.UUID
			Limit  int
		}
		ListUnread []struct {
			UserID uuid.UUID
			Limit  int
		}
		CountUnread []struct {
			UserID uuid.UUID
		}
		MarkRead []struct {
			ID     uuid.UUID
			UserID uuid.UUID
		}
		MarkAllRead []struct {
			UserID uuid.UUID
		}
	}
	lockCreate      sync.RWMutex
	lockListRecent  sync.RWMutex
	lockListUnread  sync.RWMutex
	lockCountUnread sync.RWMutex
	lockMarkRead    sync.RWMutex
	lockMarkAllRead sync.RWMutex
}

func (mock *notificationRepoMock) Create(ctx context.Context, userID uuid.UUID, typ domain.NotificationType, payload domain.Payload) (*domain.Notification, error) {
	if mock.CreateFunc == nil {
		panic("notificationRepoMock.CreateFunc: method is nil but notificationRepo.Create was just called")
	}
	callInfo := struct {
		UserID  uuid.UUID
		Type    domain.NotificationType
		Payload domain.Payload
	}{UserID: userID, Type: typ, Payload: payload}
	mock.lockCreate.Lock()
	mock.calls.Create = append(mock.calls.Create, callInfo)
	mock.lockCreate.Unlock()
	return mock.CreateFunc(ctx, userID, typ, payload)
}

func (mock *notificationRepoMock) CreateCalls() []struct {
	UserID  uuid.UUID
	Type    domain.NotificationType
	Payload domain.Payload
} {
	mock.lockCreate.RLock()
	calls := mock.calls.Create
	mock.lockCreate.RUnlock()
	return calls
}

func (mock *notificationRepoMock) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	if mock.ListRecentFunc == nil {
		panic("notificationRepoMock.ListRecentFunc: method is nil but notificationRepo.ListRecent was just called")
	}
	callInfo := struct {
		UserID uuid.UUID
		Limit  int
	}{UserID: userID, Limit: limit}
	mock.lockListRecent.Lock()
	mock.calls.ListRecent = append(mock.calls.ListRecent, callInfo)
	mock.lockListRecent.Unlock()
	return mock.ListRecentFunc(ctx, userID, limit)
}

func (mock *notificationRepoMock) ListRecentCalls() []struct {
	UserID uuid.UUID
	Limit  int
} {
	mock.lockListRecent.RLock()
	calls := mock.calls.ListRecent
	mock.lockListRecent.RUnlock()
	return calls
}

func (mock *notificationRepoMock) ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	if mock.ListUnreadFunc == nil {
		panic("notificationRepoMock.ListUnreadFunc: method is nil but notificationRepo.ListUnread was just called")
	}
	callInfo := struct {
		UserID uuid.UUID
		Limit  int
	}{UserID: userID, Limit: limit}
	mock.lockListUnread.Lock()
	mock.calls.ListUnread = append(mock.calls.ListUnread, callInfo)
	mock.lockListUnread.Unlock()
	return mock.ListUnreadFunc(ctx, userID, limit)
}

func (mock *notificationRepoMock) ListUnreadCalls() []struct {
	UserID uuid.UUID
	Limit  int
} {
	mock.lockListUnread.RLock()
	calls := mock.calls.ListUnread
	mock.lockListUnread.RUnlock()
	return calls
}

func (mock *notificationRepoMock) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	if mock.CountUnreadFunc == nil {
		panic("notificationRepoMock.CountUnreadFunc: method is nil but notificationRepo.CountUnread was just called")
	}
	callInfo := struct{ UserID uuid.UUID }{UserID: userID}
	mock.lockCountUnread.Lock()
	mock.calls.CountUnread = append(mock.calls.CountUnread, callInfo)
	mock.lockCountUnread.Unlock()
	return mock.CountUnreadFunc(ctx, userID)
}

func (mock *notificationRepoMock) CountUnreadCalls() []struct{ UserID uuid.UUID } {
	mock.lockCountUnread.RLock()
	calls := mock.calls.CountUnread
	mock.lockCountUnread.RUnlock()
	return calls
}

func (mock *notificationRepoMock) MarkRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Notification, error) {
	if mock.MarkReadFunc == nil {
		panic("notificationRepoMock.MarkReadFunc: method is nil but notificationRepo.MarkRead was just called")
	}
	callInfo := struct {
		ID     uuid.UUID
		UserID uuid.UUID
	}{ID: id, UserID: userID}
	mock.lockMarkRead.Lock()
	mock.calls.MarkRead = append(mock.calls.MarkRead, callInfo)
	mock.lockMarkRead.Unlock()
	return mock.MarkReadFunc(ctx, id, userID)
}

func (mock *notificationRepoMock) MarkReadCalls() []struct {
	ID     uuid.UUID
	UserID uuid.UUID
} {
	mock.lockMarkRead.RLock()
	calls := mock.calls.MarkRead
	mock.lockMarkRead.RUnlock()
	return calls
}

func (mock *notificationRepoMock) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	if mock.MarkAllReadFunc == nil {
		panic("notificationRepoMock.MarkAllReadFunc: method is nil but notificationRepo.MarkAllRead was just called")
	}
	callInfo := struct{ UserID uuid.UUID }{UserID: userID}
	mock.lockMarkAllRead.Lock()
	mock.calls.MarkAllRead = append(mock.calls.MarkAllRead, callInfo)
	mock.lockMarkAllRead.Unlock()
	return mock.MarkAllReadFunc(ctx, userID)
}

func (mock *notificationRepoMock) MarkAllReadCalls() []struct{ UserID uuid.UUID } {
	mock.lockMarkAllRead.RLock()
	calls := mock.calls.MarkAllRead
	mock.lockMarkAllRead.RUnlock()
	return calls
}
