// Package dispatch routes inbound updates to handlers.
//
// A Dispatcher owns a tree of Routers. Each update gets a fresh Context and
// is propagated depth first: a router runs its outer middleware, then the
// Observer for the update kind, then its children in registration order.
// The first subtree that does not report Unhandled decides the result.
//
// Inside an Observer, handlers are tried in registration order. A handler
// is a candidate when the observer filters and its own filters pass; it then
// runs wrapped by the inner middleware chain. Skip moves on to the next
// candidate, Cancel rejects the update and Finish handles it.
package dispatch
