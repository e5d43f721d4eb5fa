package batch

import "context"

type resolverKey struct{}

// WithResolver returns a child context carrying rc, scoping it to the
// current unit of work. Install one per request (see the middleware
// package) and clear it at the boundary; never share a resolver across
// unrelated units of work.
func WithResolver(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, resolverKey{}, rc)
}

// FromContext retrieves the resolution context carried by ctx, if any
func FromContext(ctx context.Context) (*Context, bool) {
	rc, ok := ctx.Value(resolverKey{}).(*Context)
	return rc, ok
}
