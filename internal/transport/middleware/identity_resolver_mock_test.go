package middleware

import (
	"context"
	"sync"

	"github.com/heartmarshall/learnhub-backend/internal/auth"
)

var _ identityResolver = &identityResolverMock{}

type identityResolverMock struct {
	ResolveFunc func(ctx context.Context, token string) (auth.Identity, error)

	calls struct {
		Resolve []struct {
			Ctx   context.Context
			Token string
		}
	}
	lockResolve sync.RWMutex
}

func (mock *identityResolverMock) Resolve(ctx context.Context, token string) (auth.Identity, error) {
	if mock.ResolveFunc == nil {
		panic("identityResolverMock.ResolveFunc: method is nil but identityResolver.Resolve was just called")
	}
	callInfo := struct {
		Ctx   context.Context
		Token string
	}{Ctx: ctx, Token: token}
	mock.lockResolve.Lock()
	mock.calls.Resolve = append(mock.calls.Resolve, callInfo)
	mock.lockResolve.Unlock()
	return mock.ResolveFunc(ctx, token)
}

func (mock *identityResolverMock) ResolveCalls() []struct {
	Ctx   context.Context
	Token string
} {
	mock.lockResolve.RLock()
	calls := mock.calls.Resolve
	mock.lockResolve.RUnlock()
	return calls
}
