package dispatch

import "context"

// Filter decides whether a handler or observer applies to a request.
// Filters may read the Context; by convention they do not rely on writing it,
// apart from publishing parsed data (such as a command) for the handler.
type Filter interface {
	Check(ctx context.Context, req *Request) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(ctx context.Context, req *Request) bool

// Check implements Filter.
func (f FilterFunc) Check(ctx context.Context, req *Request) bool {
	return f(ctx, req)
}

// checkAll reports whether every filter passes, evaluating in order and
// stopping at the first failure.
func checkAll(ctx context.Context, req *Request, filters []Filter) bool {
	for _, f := range filters {
		if !f.Check(ctx, req) {
			return false
		}
	}
	return true
}
