package inbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
)

// Command is a mutation of a snapshot. The set is closed to this package.
type Command interface {
	Name() string
	stamp(at time.Time, newID func() string) Command
}

type CreateThread struct {
	ThreadID string    `json:"threadId,omitempty"`
	Title    string    `json:"title"`
	Agent    string    `json:"agent"`
	At       time.Time `json:"-"`
}

type RenameThread struct {
	ThreadID string    `json:"threadId"`
	Title    string    `json:"title"`
	At       time.Time `json:"-"`
}

type SetThreadStatus struct {
	ThreadID string             `json:"threadId"`
	Status   enums.ThreadStatus `json:"status"`
	At       time.Time          `json:"-"`
}

type AddArtifact struct {
	ThreadID   string               `json:"threadId"`
	ArtifactID string               `json:"artifactId,omitempty"`
	Kind       enums.ArtifactKind   `json:"kind"`
	Title      string               `json:"title"`
	Body       string               `json:"body"`
	Status     enums.ArtifactStatus `json:"status,omitempty"`
	At         time.Time            `json:"-"`
}

type SetArtifactStatus struct {
	ThreadID   string               `json:"threadId"`
	ArtifactID string               `json:"artifactId"`
	Status     enums.ArtifactStatus `json:"status"`
	At         time.Time            `json:"-"`
}

type ArchiveThread struct {
	ThreadID string    `json:"threadId"`
	At       time.Time `json:"-"`
}

func (CreateThread) Name() string      { return "create_thread" }
func (RenameThread) Name() string      { return "rename_thread" }
func (SetThreadStatus) Name() string   { return "set_thread_status" }
func (AddArtifact) Name() string       { return "add_artifact" }
func (SetArtifactStatus) Name() string { return "set_artifact_status" }
func (ArchiveThread) Name() string     { return "archive_thread" }

func (c CreateThread) stamp(at time.Time, newID func() string) Command {
	if c.ThreadID == "" {
		c.ThreadID = newID()
	}
	c.At = at
	return c
}

func (c RenameThread) stamp(at time.Time, _ func() string) Command {
	c.At = at
	return c
}

func (c SetThreadStatus) stamp(at time.Time, _ func() string) Command {
	c.At = at
	return c
}

func (c AddArtifact) stamp(at time.Time, newID func() string) Command {
	if c.ArtifactID == "" {
		c.ArtifactID = newID()
	}
	c.At = at
	return c
}

func (c SetArtifactStatus) stamp(at time.Time, _ func() string) Command {
	c.At = at
	return c
}

func (c ArchiveThread) stamp(at time.Time, _ func() string) Command {
	c.At = at
	return c
}

// Envelope is the wire form of a command.
type Envelope struct {
	Type            string          `json:"type" validate:"required"`
	ExpectedVersion *int64          `json:"expectedVersion,omitempty" validate:"omitempty,min=0"`
	Payload         json.RawMessage `json:"payload" validate:"required"`
}

// Decode turns an envelope into its concrete command.
func (e Envelope) Decode() (Command, error) {
	var cmd Command
	var err error
	switch e.Type {
	case CreateThread{}.Name():
		cmd, err = decodeAs[CreateThread](e.Payload)
	case RenameThread{}.Name():
		cmd, err = decodeAs[RenameThread](e.Payload)
	case SetThreadStatus{}.Name():
		cmd, err = decodeAs[SetThreadStatus](e.Payload)
	case AddArtifact{}.Name():
		cmd, err = decodeAs[AddArtifact](e.Payload)
	case SetArtifactStatus{}.Name():
		cmd, err = decodeAs[SetArtifactStatus](e.Payload)
	case ArchiveThread{}.Name():
		cmd, err = decodeAs[ArchiveThread](e.Payload)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown command type %q", e.Type))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid command payload")
	}
	return cmd, nil
}

func decodeAs[T Command](raw json.RawMessage) (Command, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
