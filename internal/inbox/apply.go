package inbox

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
)

const (
	maxTitleLength = 200
	maxBodyLength  = 20000
)

var threadTransitions = map[enums.ThreadStatus][]enums.ThreadStatus{
	enums.ThreadOpen:     {enums.ThreadPending, enums.ThreadResolved},
	enums.ThreadPending:  {enums.ThreadOpen, enums.ThreadResolved},
	enums.ThreadResolved: {enums.ThreadOpen},
}

var artifactTransitions = map[enums.ArtifactStatus][]enums.ArtifactStatus{
	enums.ArtifactStatusDraft:         {enums.ArtifactStatusPendingReview},
	enums.ArtifactStatusPendingReview: {enums.ArtifactStatusApproved, enums.ArtifactStatusRejected, enums.ArtifactStatusDraft},
	enums.ArtifactStatusApproved:      {enums.ArtifactStatusPublished},
	enums.ArtifactStatusRejected:      {enums.ArtifactStatusDraft},
}

// Apply returns the snapshot that results from cmd. The input snapshot is
// left untouched and the result carries the next version.
func Apply(s Snapshot, cmd Command) (Snapshot, error) {
	next := s.clone()
	var err error
	switch c := cmd.(type) {
	case CreateThread:
		err = next.createThread(c)
	case RenameThread:
		err = next.mutateThread(c.ThreadID, c.At, func(t *Thread) error {
			title, err := cleanTitle(c.Title)
			if err != nil {
				return err
			}
			t.Title = title
			return nil
		})
	case SetThreadStatus:
		err = next.mutateThread(c.ThreadID, c.At, func(t *Thread) error {
			if c.Status == enums.ThreadArchived {
				return pkgerrors.New(pkgerrors.CodeValidation, "use archive_thread to archive a thread")
			}
			return transitionThread(t, c.Status)
		})
	case AddArtifact:
		err = next.mutateThread(c.ThreadID, c.At, func(t *Thread) error {
			return addArtifact(t, c)
		})
	case SetArtifactStatus:
		err = next.mutateThread(c.ThreadID, c.At, func(t *Thread) error {
			return transitionArtifact(t, c)
		})
	case ArchiveThread:
		err = next.mutateThread(c.ThreadID, c.At, func(t *Thread) error {
			t.Status = enums.ThreadArchived
			return nil
		})
	case nil:
		err = pkgerrors.New(pkgerrors.CodeValidation, "command is required")
	default:
		err = pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported command %T", cmd))
	}
	if err != nil {
		return s, err
	}
	next.Version = s.Version + 1
	next.UpdatedAt = commandTime(cmd)
	return next, nil
}

func (s *Snapshot) createThread(c CreateThread) error {
	if strings.TrimSpace(c.ThreadID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "thread id is required")
	}
	if _, exists := s.Thread(c.ThreadID); exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "thread already exists")
	}
	title, err := cleanTitle(c.Title)
	if err != nil {
		return err
	}
	agent := strings.TrimSpace(c.Agent)
	if agent == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "agent is required")
	}
	s.Threads = append(s.Threads, Thread{
		ID:        c.ThreadID,
		Title:     title,
		Agent:     agent,
		Status:    enums.ThreadOpen,
		Artifacts: []Artifact{},
		CreatedAt: c.At,
		UpdatedAt: c.At,
	})
	return nil
}

// mutateThread runs fn against the named thread. Archived threads are read-only.
func (s *Snapshot) mutateThread(id string, at time.Time, fn func(*Thread) error) error {
	for i := range s.Threads {
		t := &s.Threads[i]
		if t.ID != id {
			continue
		}
		if t.Status == enums.ThreadArchived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "thread is archived").
				WithDetails(map[string]any{"threadId": id})
		}
		if err := fn(t); err != nil {
			return err
		}
		t.UpdatedAt = at
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "thread not found").WithDetails(map[string]any{"threadId": id})
}

func transitionThread(t *Thread, to enums.ThreadStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid thread status %q", to))
	}
	for _, allowed := range threadTransitions[t.Status] {
		if allowed == to {
			t.Status = to
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "thread status transition not allowed").
		WithDetails(map[string]any{"from": t.Status, "to": to})
}

func addArtifact(t *Thread, c AddArtifact) error {
	if strings.TrimSpace(c.ArtifactID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "artifact id is required")
	}
	if !c.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid artifact kind %q", c.Kind))
	}
	for _, a := range t.Artifacts {
		if a.ID == c.ArtifactID {
			return pkgerrors.New(pkgerrors.CodeConflict, "artifact already exists")
		}
	}
	title, err := cleanTitle(c.Title)
	if err != nil {
		return err
	}
	if len(c.Body) > maxBodyLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "artifact body too long")
	}
	status := c.Status
	if status == "" {
		status = enums.ArtifactStatusDraft
	}
	if status != enums.ArtifactStatusDraft && status != enums.ArtifactStatusPendingReview {
		return pkgerrors.New(pkgerrors.CodeValidation, "new artifacts start as draft or pending_review")
	}
	t.Artifacts = append(t.Artifacts, Artifact{
		ID:        c.ArtifactID,
		ThreadID:  t.ID,
		Kind:      c.Kind,
		Title:     title,
		Body:      c.Body,
		Status:    status,
		CreatedAt: c.At,
		UpdatedAt: c.At,
	})
	return nil
}

func transitionArtifact(t *Thread, c SetArtifactStatus) error {
	if !c.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid artifact status %q", c.Status))
	}
	for i := range t.Artifacts {
		a := &t.Artifacts[i]
		if a.ID != c.ArtifactID {
			continue
		}
		for _, allowed := range artifactTransitions[a.Status] {
			if allowed == c.Status {
				a.Status = c.Status
				a.UpdatedAt = c.At
				return nil
			}
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "artifact status transition not allowed").
			WithDetails(map[string]any{"from": a.Status, "to": c.Status})
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "artifact not found").WithDetails(map[string]any{"artifactId": c.ArtifactID})
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if len(title) > maxTitleLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "title too long")
	}
	return title, nil
}

func commandTime(cmd Command) time.Time {
	switch c := cmd.(type) {
	case CreateThread:
		return c.At
	case RenameThread:
		return c.At
	case SetThreadStatus:
		return c.At
	case AddArtifact:
		return c.At
	case SetArtifactStatus:
		return c.At
	case ArchiveThread:
		return c.At
	}
	return time.Time{}
}
