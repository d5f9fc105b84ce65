package bridge

import (
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent is an alias for the CloudEvents Event type for convenience
type CloudEvent = cloudevents.Event

// NewCloudEvent creates a JSON CloudEvent. subject may be empty.
func NewCloudEvent(eventType, source, subject string, data any) (cloudevents.Event, error) {
	event := cloudevents.NewEvent()
	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if subject != "" {
		event.SetSubject(subject)
	}
	if data != nil {
		if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
			return event, fmt.Errorf("encode %s event data: %w", eventType, err)
		}
	}
	return event, nil
}

// generateEventID generates a time-ordered UUIDv7, falling back to v4.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// ValidateCloudEvent validates that a CloudEvent conforms to the specification.
func ValidateCloudEvent(event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return nil
}

// ModuleEvent is the decoded form of an EventTypeModuleEvent.
type ModuleEvent struct {
	Module string
	Event  string
	Body   map[string]any
}

// DecodeModuleEvent extracts the module, event name and body from a
// CloudEvent of type EventTypeModuleEvent.
func DecodeModuleEvent(event cloudevents.Event) (ModuleEvent, error) {
	if event.Type() != EventTypeModuleEvent {
		return ModuleEvent{}, fmt.Errorf("%w: not a module event: %s", ErrUnknownEvent, event.Type())
	}
	me := ModuleEvent{Module: event.Source(), Event: event.Subject()}
	if len(event.Data()) > 0 {
		if err := event.DataAs(&me.Body); err != nil {
			return ModuleEvent{}, fmt.Errorf("decode module event body: %w", err)
		}
	}
	return me, nil
}
