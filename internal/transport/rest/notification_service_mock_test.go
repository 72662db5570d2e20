package rest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

var _ notificationService = &notificationServiceMock{}

type notificationServiceMock struct {
	ListRecentFunc  func(ctx context.Context, limit int) ([]domain.Notification, error)
	ListUnreadFunc  func(ctx context.Context, limit int) ([]domain.Notification, error)
	UnreadCountFunc func(ctx context.Context) (int, error)
	MarkReadFunc    func(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	MarkAllReadFunc func(ctx context.Context) (int, error)

	calls struct {
		ListRecent  []struct{ Limit int }
		ListUnread  []struct{ Limit int }
		UnreadCount []struct{}
		MarkRead    []struct{ ID uuid.UUID }
		MarkAllRead []struct{}
	}
	lockListRecent  sync.RWMutex
	lockListUnread  sync.RWMutex
	lockUnreadCount sync.RWMutex
	lockMarkRead    sync.RWMutex
	lockMarkAllRead sync.RWMutex
}

func (mock *notificationServiceMock) ListRecent(ctx context.Context, limit int) ([]domain.Notification, error) {
	if mock.ListRecentFunc == nil {
		panic("notificationServiceMock.ListRecentFunc: method is nil but notificationService.ListRecent was just called")
	}
	mock.lockListRecent.Lock()
	mock.calls.ListRecent = append(mock.calls.ListRecent, struct{ Limit int }{Limit: limit})
	mock.lockListRecent.Unlock()
	return mock.ListRecentFunc(ctx, limit)
}

func (mock *notificationServiceMock) ListRecentCalls() []struct{ Limit int } {
	mock.lockListRecent.RLock()
	calls := mock.calls.ListRecent
	mock.lockListRecent.RUnlock()
	return calls
}

func (mock *notificationServiceMock) ListUnread(ctx context.Context, limit int) ([]domain.Notification, error) {
	if mock.ListUnreadFunc == nil {
		panic("notificationServiceMock.ListUnreadFunc: method is nil but notificationService.ListUnread was just called")
	}
	mock.lockListUnread.Lock()
	mock.calls.ListUnread = append(mock.calls.ListUnread, struct{ Limit int }{Limit: limit})
	mock.lockListUnread.Unlock()
	return mock.ListUnreadFunc(ctx, limit)
}

func (mock *notificationServiceMock) ListUnreadCalls() []struct{ Limit int } {
	mock.lockListUnread.RLock()
	calls := mock.calls.ListUnread
	mock.lockListUnread.RUnlock()
	return calls
}

func (mock *notificationServiceMock) UnreadCount(ctx context.Context) (int, error) {
	if mock.UnreadCountFunc == nil {
		panic("notificationServiceMock.UnreadCountFunc: method is nil but notificationService.UnreadCount was just called")
	}
	mock.lockUnreadCount.Lock()
	mock.calls.UnreadCount = append(mock.calls.UnreadCount, struct{}{})
	mock.lockUnreadCount.Unlock()
	return mock.UnreadCountFunc(ctx)
}

func (mock *notificationServiceMock) UnreadCountCalls() []struct{} {
	mock.lockUnreadCount.RLock()
	calls := mock.calls.UnreadCount
	mock.lockUnreadCount.RUnlock()
	return calls
}

func (mock *notificationServiceMock) MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	if mock.MarkReadFunc == nil {
		panic("notificationServiceMock.MarkReadFunc: method is nil but notificationService.MarkRead was just called")
	}
	mock.lockMarkRead.Lock()
	mock.calls.MarkRead = append(mock.calls.MarkRead, struct{ ID uuid.UUID }{ID: id})
	mock.lockMarkRead.Unlock()
	return mock.MarkReadFunc(ctx, id)
}

func (mock *notificationServiceMock) MarkReadCalls() []struct{ ID uuid.UUID } {
	mock.lockMarkRead.RLock()
	calls := mock.calls.MarkRead
	mock.lockMarkRead.RUnlock()
	return calls
}

func (mock *notificationServiceMock) MarkAllRead(ctx context.Context) (int, error) {
	if mock.MarkAllReadFunc == nil {
		panic("notificationServiceMock.MarkAllReadFunc: method is nil but notificationService.MarkAllRead was just called")
	}
	mock.lockMarkAllRead.Lock()
	mock.calls.MarkAllRead = append(mock.calls.MarkAllRead, struct{}{})
	mock.lockMarkAllRead.Unlock()
	return mock.MarkAllReadFunc(ctx)
}

func (mock *notificationServiceMock) MarkAllReadCalls() []struct{} {
	mock.lockMarkAllRead.RLock()
	calls := mock.calls.MarkAllRead
	mock.lockMarkAllRead.RUnlock()
	return calls
}
