package cancel

import "time"

// Any creates a composite Source that cancels as soon as any of tokens
// cancels: the n-ary form of a two-token linked cancellation state.
// The returned Source's reason is the reason of whichever input fired
// first. If any input is already canceled, the returned Source is
// immediately canceled with that reason.
func Any(tokens []Token) *Source {
	composite := NewSource()
	if len(tokens) == 0 {
		return composite
	}

	for _, t := range tokens {
		if t.Valid() && t.Canceled() {
			composite.Cancel(t.Reason())
			return composite
		}
	}

	for _, t := range tokens {
		if !t.Valid() {
			continue
		}
		tok := t
		var reg Registration
		Register(&reg, tok, inlineExecutor{}, func() {
			composite.Cancel(tok.Reason())
		}, nil)
	}

	return composite
}

// inlineExecutor runs work items synchronously; Any only uses it to bridge
// Register's executor-based firing protocol into a direct function call.
type inlineExecutor struct{}

func (inlineExecutor) Execute(item func())                 { item() }
func (inlineExecutor) Schedule(item func())                { item() }
func (inlineExecutor) ScheduleAt(item func(), _ time.Time) { item() }
func (inlineExecutor) IsValid() bool                       { return true }

// WithTimeout returns a Source that automatically cancels after d elapses,
// scheduled via exec, mirroring the DOM AbortSignal.timeout() convenience
// constructor. Cancel may still be called manually for early abort.
func WithTimeout(exec interface {
	ScheduleAt(func(), time.Time)
}, d time.Duration) *Source {
	s := NewSource()
	exec.ScheduleAt(func() {
		s.Cancel(ErrTimeout)
	}, time.Now().Add(d))
	return s
}

// ErrTimeout is the reason used by WithTimeout's automatic cancellation.
var ErrTimeout = &timeoutReason{}

type timeoutReason struct{}

func (*timeoutReason) Error() string { return "cancel: timed out" }
