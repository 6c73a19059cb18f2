package errors

import "fmt"

var (
	ErrIdentityRejected    = fmt.Errorf("identity rejected")
	ErrMalformedMessage    = fmt.Errorf("malformed client message")
	ErrStorageFailure      = fmt.Errorf("storage failure")
	ErrParticipantNotFound = fmt.Errorf("participant not found")
	ErrAlreadyAttached     = fmt.Errorf("connection already attached to a participant")
	ErrNotRegistered       = fmt.Errorf("connection is not registered")
	ErrConnectionClosed    = fmt.Errorf("connection closed")
	ErrDeliveryTimeout     = fmt.Errorf("delivery timeout")
	ErrRateLimited         = fmt.Errorf("rate limited")
	ErrUnsupportedMedia    = fmt.Errorf("unsupported media type")
	ErrMediaNotFound       = fmt.Errorf("media not found")
	ErrMediaTooLarge       = fmt.Errorf("media too large")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrRoomClosed          = fmt.Errorf("room closed")
	ErrEmptyWords          = fmt.Errorf("no words have been found")
)
