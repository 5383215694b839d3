package enums

import (
	"fmt"
	"strings"
)

// ThreadStatus is the lifecycle state of an inbox thread.
type ThreadStatus string

const (
	ThreadOpen     ThreadStatus = "open"
	ThreadPending  ThreadStatus = "pending"
	ThreadResolved ThreadStatus = "resolved"
	ThreadArchived ThreadStatus = "archived"
)

var validThreadStatuses = []ThreadStatus{ThreadOpen, ThreadPending, ThreadResolved, ThreadArchived}

func (s ThreadStatus) IsValid() bool {
	for _, candidate := range validThreadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseThreadStatus(value string) (ThreadStatus, error) {
	normalized := ThreadStatus(strings.ToLower(strings.TrimSpace(value)))
	if !normalized.IsValid() {
		return "", fmt.Errorf("invalid thread status %q", value)
	}
	return normalized, nil
}

// ArtifactKind is the type of content attached to a thread.
type ArtifactKind string

const (
	ArtifactMessage ArtifactKind = "message"
	ArtifactDraft   ArtifactKind = "draft"
	ArtifactReport  ArtifactKind = "report"
	ArtifactImage   ArtifactKind = "image"
)

var validArtifactKinds = []ArtifactKind{ArtifactMessage, ArtifactDraft, ArtifactReport, ArtifactImage}

func (k ArtifactKind) IsValid() bool {
	for _, candidate := range validArtifactKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ArtifactStatus tracks review of an artifact.
type ArtifactStatus string

const (
	ArtifactStatusDraft         ArtifactStatus = "draft"
	ArtifactStatusPendingReview ArtifactStatus = "pending_review"
	ArtifactStatusApproved      ArtifactStatus = "approved"
	ArtifactStatusRejected      ArtifactStatus = "rejected"
	ArtifactStatusPublished     ArtifactStatus = "published"
)

var validArtifactStatuses = []ArtifactStatus{
	ArtifactStatusDraft,
	ArtifactStatusPendingReview,
	ArtifactStatusApproved,
	ArtifactStatusRejected,
	ArtifactStatusPublished,
}

func (s ArtifactStatus) IsValid() bool {
	for _, candidate := range validArtifactStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseArtifactStatus(value string) (ArtifactStatus, error) {
	normalized := ArtifactStatus(strings.ToLower(strings.TrimSpace(value)))
	if !normalized.IsValid() {
		return "", fmt.Errorf("invalid artifact status %q", value)
	}
	return normalized, nil
}
