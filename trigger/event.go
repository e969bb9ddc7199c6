package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Event is published by the media service after uploads and deletions.
type Event struct {
	TenantSlug string `json:"tenant_slug"`
}

var ErrInvalidEvent = errors.New("invalid storage event")

func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	ev.TenantSlug = strings.TrimSpace(ev.TenantSlug)
	if ev.TenantSlug == "" {
		return Event{}, fmt.Errorf("%w: missing tenant_slug", ErrInvalidEvent)
	}
	return ev, nil
}
