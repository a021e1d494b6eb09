package proction

import "context"

// Middleware is an around-advice wrapper over an invocation body. It must
// call next exactly once; the core does not enforce this, it is a
// documented contract.
type Middleware func(next func(ctx context.Context) error) func(ctx context.Context) error

// chainMiddleware composes middlewares around body via a right fold, so
// middlewares[0] is outermost and runs first.
func chainMiddleware(middlewares []Middleware, body func(ctx context.Context) error) func(ctx context.Context) error {
	composed := body
	for i := len(middlewares) - 1; i >= 0; i-- {
		composed = middlewares[i](composed)
	}
	return composed
}
