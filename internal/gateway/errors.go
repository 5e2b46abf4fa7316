package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies where a failure came from.
type Kind string

const (
	// KindBootstrap: the metadata fetch failed; the browser is unusable.
	KindBootstrap Kind = "bootstrap"
	// KindGateway: the gateway answered with a non-"200" status.
	KindGateway Kind = "gateway"
	// KindTransport: the call itself failed or the body could not be decoded.
	KindTransport Kind = "transport"
	// KindPrecondition: a local guard refused the operation before any call.
	KindPrecondition Kind = "precondition"
)

type Error struct {
	Kind    Kind
	Status  string // gateway status, KindGateway only
	Code    string // errorCode from the payload, when present
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s error (status %s): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorItem is one element of a failure body.
type ErrorItem struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
}

const defaultMessage = "Unknown gateway error"

// FromResponse builds a KindGateway error from a non-"200" response, taking
// the first error object's message.
func FromResponse(resp *Response) *Error {
	e := &Error{Kind: KindGateway, Status: resp.Status, Message: defaultMessage}
	var items []ErrorItem
	if err := json.Unmarshal(resp.Body, &items); err == nil && len(items) > 0 {
		if items[0].Message != "" {
			e.Message = items[0].Message
		}
		e.Code = items[0].ErrorCode
		return e
	}
	// Some gateways answer with a single object instead of an array.
	var single ErrorItem
	if err := json.Unmarshal(resp.Body, &single); err == nil && single.Message != "" {
		e.Message = single.Message
		e.Code = single.ErrorCode
	}
	return e
}

// TransportError wraps a failed call.
func TransportError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Kind: KindTransport, Message: err.Error(), Err: err}
}

// BootstrapError wraps a failed metadata load.
func BootstrapError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return &Error{Kind: KindBootstrap, Status: ge.Status, Code: ge.Code, Message: ge.Message, Err: err}
	}
	return &Error{Kind: KindBootstrap, Message: err.Error(), Err: err}
}

// PreconditionError reports a locally refused operation. cause is usually a
// sentinel so callers can errors.Is on it.
func PreconditionError(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of a gateway error, or "" for other errors.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// MessageOf extracts the user-facing message from any error.
func MessageOf(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
