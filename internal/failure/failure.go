// Package failure defines the error kinds shared by the front end, the
// replicas and the client library. Kinds travel over the wire as a single
// byte so that a rejection raised by a replica reaches the client unchanged.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind uint8

const (
	// KindNone marks a value that carries no failure.
	KindNone Kind = iota
	// KindAuthentication is a handshake, signature or session failure.
	KindAuthentication
	// KindAuthorization is an authenticated caller acting on something it does not own.
	KindAuthorization
	// KindValidation is a request that violates a precondition.
	KindValidation
	// KindBackendUnavailable means no replica answered in time.
	KindBackendUnavailable
	// KindNotFound is an unknown auction.
	KindNotFound
	// KindProtocol is a malformed message.
	KindProtocol
	// KindInternal is a fault of the service itself, not of the request.
	KindInternal
)

// String returns the lowercase name used in logs and JSON bodies.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindNotFound:
		return "not_found"
	case KindProtocol:
		return "protocol"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind is the inverse of Kind.String. Unknown names map to KindProtocol.
func ParseKind(s string) Kind {
	for k := KindNone; k <= KindInternal; k++ {
		if k.String() == s {
			return k
		}
	}

	return KindProtocol
}

// Sentinels usable with errors.Is.
var (
	ErrAuthentication     = &Error{Kind: KindAuthentication, Msg: "authentication failed"}
	ErrAuthorization      = &Error{Kind: KindAuthorization, Msg: "not authorized"}
	ErrValidation         = &Error{Kind: KindValidation, Msg: "invalid request"}
	ErrBackendUnavailable = &Error{Kind: KindBackendUnavailable, Msg: "AuctionServer is down!"}
	ErrNotFound           = &Error{Kind: KindNotFound, Msg: "No such auction exists"}
	ErrProtocol           = &Error{Kind: KindProtocol, Msg: "malformed message"}
)

// Error is a failure with a kind and a human readable message.
type Error struct {
	Kind Kind   // Kind classifies the failure
	Msg  string // Msg is shown to the caller
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Msg
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// New returns an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf returns an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Authentication returns the generic authentication failure.
// The message never says which stage failed.
func Authentication() *Error {
	return &Error{Kind: KindAuthentication, Msg: ErrAuthentication.Msg}
}

// KindOf returns the kind of the first *Error in err's chain,
// KindNone for nil and KindInternal for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}

	return KindInternal
}

// MessageOf returns the caller facing message of err.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Msg
	}

	return err.Error()
}
