package port

import (
	"context"
	"encoding/json"
)

// Viewer is one attached dashboard connection.
type Viewer interface {
	ID() string
	// Send delivers one encoded update. An error means the viewer is gone.
	Send(ctx context.Context, msg []byte) error
	Close() error
}

// Mirror receives every broadcast update in addition to the attached viewers,
// e.g. to republish it on a message bus.
type Mirror interface {
	Publish(ctx context.Context, msg []byte, tenants map[string]json.RawMessage) error
}
