package domain

import (
	"errors"
	"fmt"
)

type Reason string

const (
	ReasonMisalignedBoundary     Reason = "MisalignedBoundary"
	ReasonInThePast              Reason = "InThePast"
	ReasonInvalidDuration        Reason = "InvalidDuration"
	ReasonSlotConflict           Reason = "SlotConflict"
	ReasonRoomUnavailable        Reason = "RoomUnavailable"
	ReasonDailyCapExceeded       Reason = "DailyCapExceeded"
	ReasonAuthoritativeRejection Reason = "AuthoritativeRejection"
	ReasonNetworkFailure         Reason = "NetworkFailure"

	ReasonNotFound            Reason = "NotFound"
	ReasonNotOwner            Reason = "NotOwner"
	ReasonAlreadyCancelled    Reason = "AlreadyCancelled"
	ReasonCancelWindowElapsed Reason = "CancelWindowElapsed"
)

// RejectionError is returned for every refused booking or cancellation.
// Authoritative is set when the refusal came from the store rather than from
// local validation.
type RejectionError struct {
	Reason        Reason
	Detail        string
	Authoritative bool
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Is matches on reason only, so errors.Is(err, ErrSlotConflict) holds for any
// conflict regardless of detail or origin.
func (e *RejectionError) Is(target error) bool {
	t, ok := target.(*RejectionError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// Retryable is true for failures that say nothing about the booking itself.
func (e *RejectionError) Retryable() bool {
	return e.Reason == ReasonNetworkFailure || e.Reason == ReasonAuthoritativeRejection
}

var (
	ErrMisalignedBoundary     = &RejectionError{Reason: ReasonMisalignedBoundary}
	ErrInThePast              = &RejectionError{Reason: ReasonInThePast}
	ErrInvalidDuration        = &RejectionError{Reason: ReasonInvalidDuration}
	ErrSlotConflict           = &RejectionError{Reason: ReasonSlotConflict}
	ErrRoomUnavailable        = &RejectionError{Reason: ReasonRoomUnavailable}
	ErrDailyCapExceeded       = &RejectionError{Reason: ReasonDailyCapExceeded}
	ErrAuthoritativeRejection = &RejectionError{Reason: ReasonAuthoritativeRejection}
	ErrNetworkFailure         = &RejectionError{Reason: ReasonNetworkFailure}
	ErrNotFound               = &RejectionError{Reason: ReasonNotFound}
	ErrNotOwner               = &RejectionError{Reason: ReasonNotOwner}
	ErrAlreadyCancelled       = &RejectionError{Reason: ReasonAlreadyCancelled}
	ErrCancelWindowElapsed    = &RejectionError{Reason: ReasonCancelWindowElapsed}
)

func Reject(reason Reason, format string, args ...any) *RejectionError {
	return &RejectionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// ParseReason accepts a reason string coming back over the wire.
func ParseReason(s string) (Reason, bool) {
	switch r := Reason(s); r {
	case ReasonMisalignedBoundary, ReasonInThePast, ReasonInvalidDuration,
		ReasonSlotConflict, ReasonRoomUnavailable, ReasonDailyCapExceeded,
		ReasonAuthoritativeRejection, ReasonNetworkFailure, ReasonNotFound,
		ReasonNotOwner, ReasonAlreadyCancelled, ReasonCancelWindowElapsed:
		return r, true
	}
	return "", false
}
