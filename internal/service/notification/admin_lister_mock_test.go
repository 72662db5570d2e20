package notification

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

var _ adminLister = &adminListerMock{}

type adminListerMock struct {
	ListAdminIDsFunc func(ctx context.Context) ([]uuid.UUID, error)

	calls struct {
		ListAdminIDs []struct{}
	}
	lockListAdminIDs sync.RWMutex
}

func (mock *adminListerMock) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	if mock.ListAdminIDsFunc == nil {
		panic("adminListerMock.ListAdminIDsFunc: method is nil but adminLister.ListAdminIDs was just called")
	}
	mock.lockListAdminIDs.Lock()
	mock.calls.ListAdminIDs = append(mock.calls.ListAdminIDs, struct{}{})
	mock.lockListAdminIDs.Unlock()
	return mock.ListAdminIDsFunc(ctx)
}

func (mock *adminListerMock) ListAdminIDsCalls() []struct{} {
	mock.lockListAdminIDs.RLock()
	calls := mock.calls.ListAdminIDs
	mock.lockListAdminIDs.RUnlock()
	return calls
}
