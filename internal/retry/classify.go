package retry

import (
	"context"
	"errors"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Kind buckets provider errors by how the pipeline must react.
type Kind int

const (
	// KindTransient covers rate limiting and server-side failures; retried.
	KindTransient Kind = iota
	// KindPermanent covers bad requests, not-found, forbidden; surfaced
	// immediately with no retry.
	KindPermanent
	// KindAuth means the credential needs refreshing; propagated to the
	// caller, never retried here.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Classify maps an error from the Gmail client into a Kind.
func Classify(err error) Kind {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return KindTransient
		case gerr.Code == http.StatusUnauthorized:
			return KindAuth
		case gerr.Code >= http.StatusInternalServerError:
			return KindTransient
		default:
			return KindPermanent
		}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTransient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindPermanent
	}
	return KindPermanent
}

// Transient is the Retryable predicate used by the default policy.
func Transient(err error) bool {
	return Classify(err) == KindTransient
}
