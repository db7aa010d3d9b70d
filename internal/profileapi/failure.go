package profileapi

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind enumerates the ways a profile API call can fail.
type FailureKind int

const (
	// FailureRequest means the request could not be built or sent.
	FailureRequest FailureKind = iota + 1
	// FailureNoResponse means the request went out but no response came back.
	FailureNoResponse
	// FailureUnauthorized is a 401 response.
	FailureUnauthorized
	// FailureValidation is a 422 response carrying errors.body.
	FailureValidation
	// FailureStatus is any other non-2xx response.
	FailureStatus
	// FailureDecode is a 2xx response whose body could not be read.
	FailureDecode
)

func (k FailureKind) String() string {
	switch k {
	case FailureRequest:
		return "request"
	case FailureNoResponse:
		return "no_response"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureValidation:
		return "validation"
	case FailureStatus:
		return "status"
	case FailureDecode:
		return "decode"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Failure is the error returned by every Client method.
type Failure struct {
	Op         string
	Kind       FailureKind
	StatusCode int
	// Payload is the raw response body, when a response was received.
	Payload []byte
	// Validation holds the 422 error messages.
	Validation []string
	Err        error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Op)
	b.WriteString(": ")
	b.WriteString(f.Kind.String())
	if f.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", f.StatusCode)
	}
	if len(f.Validation) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(f.Validation, "; "))
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
