package services

import "errors"

var (
	// ErrDataFetch wraps any upstream API failure: transport errors, non-200
	// statuses and undecodable payloads.
	ErrDataFetch = errors.New("data fetch failed")

	// ErrNotFound is returned when an upstream responds but the requested
	// entity is absent from the payload.
	ErrNotFound = errors.New("not found")
)
