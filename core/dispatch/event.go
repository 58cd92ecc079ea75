package dispatch

// EventReturn steers the pipeline after a handler or middleware step.
type EventReturn int

const (
	// Finish stops the search and reports the event as handled.
	Finish EventReturn = iota
	// Skip declines the event; the next candidate is tried.
	Skip
	// Cancel stops the search and reports the event as rejected.
	Cancel
)

func (r EventReturn) String() string {
	switch r {
	case Finish:
		return "finish"
	case Skip:
		return "skip"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ResultKind classifies the outcome of propagating an update through a subtree.
type ResultKind int

const (
	// Unhandled means no handler in the subtree accepted the update.
	Unhandled ResultKind = iota
	// Rejected means a filter, middleware or handler vetoed the update.
	Rejected
	// Handled means a handler finished the update.
	Handled
)

func (k ResultKind) String() string {
	switch k {
	case Unhandled:
		return "unhandled"
	case Rejected:
		return "rejected"
	case Handled:
		return "handled"
	default:
		return "unknown"
	}
}

// Response is what the terminal handler produced.
type Response struct {
	Request *Request
	// Handler is the name of the handler object that ran.
	Handler string
	Return  EventReturn
	// Err is the handler's own error, reported but never retried.
	Err error
}

// PropagateResult is threaded back up the router tree so siblings can be tried.
type PropagateResult struct {
	Kind     ResultKind
	Response *Response
}

func unhandled() PropagateResult { return PropagateResult{Kind: Unhandled} }

func rejected(resp *Response) PropagateResult {
	return PropagateResult{Kind: Rejected, Response: resp}
}

func handled(resp *Response) PropagateResult {
	return PropagateResult{Kind: Handled, Response: resp}
}

// IsHandled reports whether a handler finished the update.
func (r PropagateResult) IsHandled() bool { return r.Kind == Handled }

// Err returns the handler error carried by a Handled result.
func (r PropagateResult) Err() error {
	if r.Response == nil {
		return nil
	}
	return r.Response.Err
}
