package accession

// CallKind classifies the answer to one remote call after retries.
type CallKind int

const (
	CallOK CallKind = iota
	// CallApplicationError: the call completed but the payload reports a
	// logical failure. Never retried.
	CallApplicationError
	// CallTransportFault: the call itself failed on every attempt.
	CallTransportFault
)

func (k CallKind) String() string {
	switch k {
	case CallOK:
		return "ok"
	case CallApplicationError:
		return "application_error"
	case CallTransportFault:
		return "transport_error"
	default:
		return "unknown"
	}
}

// CallResult is the tagged result of a remote call: Value for CallOK, Message
// for CallApplicationError, Err for CallTransportFault.
type CallResult[T any] struct {
	Kind    CallKind
	Value   T
	Message string
	Err     error
}

// Cause describes why a non-OK call failed.
func (r CallResult[T]) Cause() string {
	switch r.Kind {
	case CallApplicationError:
		return r.Message
	case CallTransportFault:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "transport failure"
	default:
		return ""
	}
}

func okResult[T any](v T) CallResult[T] {
	return CallResult[T]{Kind: CallOK, Value: v}
}

func applicationErrorResult[T any](msg string) CallResult[T] {
	return CallResult[T]{Kind: CallApplicationError, Message: msg}
}

func transportFaultResult[T any](err error) CallResult[T] {
	return CallResult[T]{Kind: CallTransportFault, Err: err}
}
