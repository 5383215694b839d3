package inbox

import (
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
)

// Artifact is a piece of agent output attached to a thread.
type Artifact struct {
	ID        string               `json:"id"`
	ThreadID  string               `json:"threadId"`
	Kind      enums.ArtifactKind   `json:"kind"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Status    enums.ArtifactStatus `json:"status"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Thread groups the artifacts of one conversation with an agent.
type Thread struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Agent     string             `json:"agent"`
	Status    enums.ThreadStatus `json:"status"`
	Artifacts []Artifact         `json:"artifacts"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Snapshot is the full inbox of one org at a version. Snapshots are values;
// Apply never mutates its input.
type Snapshot struct {
	OrgID     string    `json:"orgId"`
	Version   int64     `json:"version"`
	Threads   []Thread  `json:"threads"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Empty returns the version 0 inbox of an org.
func Empty(orgID string) Snapshot {
	return Snapshot{OrgID: orgID, Threads: []Thread{}}
}

// Thread looks up a thread by id.
func (s Snapshot) Thread(id string) (Thread, bool) {
	for _, t := range s.Threads {
		if t.ID == id {
			return t.clone(), true
		}
	}
	return Thread{}, false
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Threads = make([]Thread, len(s.Threads))
	for i, t := range s.Threads {
		out.Threads[i] = t.clone()
	}
	return out
}

func (t Thread) clone() Thread {
	out := t
	out.Artifacts = make([]Artifact, len(t.Artifacts))
	copy(out.Artifacts, t.Artifacts)
	return out
}
