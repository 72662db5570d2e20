package rest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

var _ notificationSender = &notificationSenderMock{}

type notificationSenderMock struct {
	SendNotificationFunc func(ctx context.Context, targetUserID uuid.UUID, typ domain.NotificationType, payload domain.Payload) (*domain.Notification, error)

	calls struct {
		SendNotification []struct {
			TargetUserID uuid.UUID
			Typ          domain.NotificationType
			Payload      domain.Payload
		}
	}
	lockSendNotification sync.RWMutex
}

func (mock *notificationSenderMock) SendNotification(ctx context.Context, targetUserID uuid.UUID, typ domain.NotificationType, payload domain.Payload) (*domain.Notification, error) {
	if mock.SendNotificationFunc == nil {
		panic("notificationSenderMock.SendNotificationFunc: method is nil but notificationSender.SendNotification was just called")
	}
	callInfo := struct {
		TargetUserID uuid.UUID
		Typ          domain.NotificationType
		Payload      domain.Payload
	}{TargetUserID: targetUserID, Typ: typ, Payload: payload}
	mock.lockSendNotification.Lock()
	mock.calls.SendNotification = append(mock.calls.SendNotification, callInfo)
	mock.lockSendNotification.Unlock()
	return mock.SendNotificationFunc(ctx, targetUserID, typ, payload)
}

func (mock *notificationSenderMock) SendNotificationCalls() []struct {
	TargetUserID uuid.UUID
	Typ          domain.NotificationType
	Payload      domain.Payload
} {
	mock.lockSendNotification.RLock()
	calls := mock.calls.SendNotification
	mock.lockSendNotification.RUnlock()
	return calls
}
