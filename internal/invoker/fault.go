package invoker

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why an invocation produced no usable result.
type Kind int

const (
	KindNone Kind = iota
	// KindConfiguration: missing credential or endpoint, bad payload combination. No call was made.
	KindConfiguration
	// KindTransport: DNS, connect, TLS, timeout or cancellation.
	KindTransport
	// KindService: the vendor answered with a non-2xx status.
	KindService
	// KindDecode: the body could not be read as the expected shape.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindService:
		return "service"
	case KindDecode:
		return "decode"
	default:
		return "none"
	}
}

// Fault is the only error type returned by Invoke and Response.DecodeJSON.
type Fault struct {
	Kind       Kind
	Op         string
	StatusCode int    // service faults only
	Status     string // e.g. "401 Unauthorized"
	Code       string // vendor error code, when the body carried one
	Message    string
	Err        error
}

func (f *Fault) Error() string {
	var b strings.Builder
	if f.Op != "" {
		b.WriteString(f.Op)
		b.WriteString(": ")
	}
	b.WriteString(f.Kind.String())
	b.WriteString(" fault")
	if f.Status != "" {
		b.WriteString(" (")
		b.WriteString(f.Status)
		b.WriteString(")")
	}
	msg := f.Message
	if msg == "" && f.Err != nil {
		msg = f.Err.Error()
	}
	if f.Code != "" {
		msg = f.Code + ": " + msg
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func (f *Fault) Unwrap() error { return f.Err }

// KindOf reports the fault kind carried by err, or KindNone.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindNone
}

// IsKind is shorthand for KindOf(err) == k.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }

func configFault(op, format string, args ...any) *Fault {
	return &Fault{Kind: KindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// DecodeFault wraps err as a decode fault for op. Vendor clients use it when a 2xx body
// parses as JSON but misses a required part.
func DecodeFault(op string, err error) *Fault {
	return &Fault{Kind: KindDecode, Op: op, Err: err}
}

// ServiceFault builds a service fault for vendors that report failures inside a 2xx body.
func ServiceFault(op string, statusCode int, code, message string) *Fault {
	return &Fault{Kind: KindService, Op: op, StatusCode: statusCode, Code: code, Message: message}
}
