package notification

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

var _ pusher = &pusherMock{}

type pusherMock struct {
	PushFunc func(ctx context.Context, userID uuid.UUID, n domain.Notification) error

	calls struct {
		Push []struct {
			UserID       uuid.UUID
			Notification domain.Notification
		}
	}
	lockPush sync.RWMutex
}

func (mock *pusherMock) Push(ctx context.Context, userID uuid.UUID, n domain.Notification) error {
	if mock.PushFunc == nil {
		panic("pusherMock.PushFunc: method is nil but pusher.Push was just called")
	}
	callInfo := struct {
		UserID       uuid.UUID
		Notification domain.Notification
	}{UserID: userID, Notification: n}
	mock.lockPush.Lock()
	mock.calls.Push = append(mock.calls.Push, callInfo)
	mock.lockPush.Unlock()
	return mock.PushFunc(ctx, userID, n)
}

func (mock *pusherMock) PushCalls() []struct {
	UserID       uuid.UUID
	Notification domain.Notification
} {
	mock.lockPush.RLock()
	calls := mock.calls.Push
	mock.lockPush.RUnlock()
	return calls
}
