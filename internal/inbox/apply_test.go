package inbox

import (
	"testing"
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispensary-crm/pkg/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

func seeded(t *testing.T) Snapshot {
	t.Helper()
	snap, err := Apply(Empty("org_1"), CreateThread{ThreadID: "th-1", Title: "Spring promo", Agent: "marketing", At: t0})
	require.NoError(t, err)
	snap, err = Apply(snap, AddArtifact{
		ThreadID: "th-1", ArtifactID: "ar-1", Kind: enums.ArtifactDraft,
		Title: "SMS copy", Body: "20% off edibles", Status: enums.ArtifactStatusPendingReview, At: t0.Add(time.Minute),
	})
	require.NoError(t, err)
	return snap
}

func TestApplyCreateThreadIncrementsVersion(t *testing.T) {
	empty := Empty("org_1")
	snap, err := Apply(empty, CreateThread{ThreadID: "th-1", Title: "  Spring promo ", Agent: "marketing", At: t0})
	require.NoError(t, err)

	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, t0, snap.UpdatedAt)
	thread, ok := snap.Thread("th-1")
	require.True(t, ok)
	assert.Equal(t, "Spring promo", thread.Title)
	assert.Equal(t, enums.ThreadOpen, thread.Status)
	assert.Empty(t, empty.Threads, "input snapshot must not change")
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	before := seeded(t)
	frozen := before.clone()

	_, err := Apply(before, SetArtifactStatus{ThreadID: "th-1", ArtifactID: "ar-1", Status: enums.ArtifactStatusApproved, At: t0.Add(time.Hour)})
	require.NoError(t, err)
	_, err = Apply(before, RenameThread{ThreadID: "th-1", Title: "Renamed", At: t0.Add(time.Hour)})
	require.NoError(t, err)

	if diff := cmp.Diff(frozen, before); diff != "" {
		t.Fatalf("snapshot mutated (-want +got):\n%s", diff)
	}
}

func TestApplyArtifactReviewFlow(t *testing.T) {
	snap := seeded(t)
	steps := []enums.ArtifactStatus{
		enums.ArtifactStatusApproved,
		enums.ArtifactStatusPublished,
	}
	for i, status := range steps {
		var err error
		snap, err = Apply(snap, SetArtifactStatus{ThreadID: "th-1", ArtifactID: "ar-1", Status: status, At: t0.Add(time.Duration(i+2) * time.Minute)})
		require.NoError(t, err)
	}
	thread, _ := snap.Thread("th-1")
	assert.Equal(t, enums.ArtifactStatusPublished, thread.Artifacts[0].Status)
	assert.Equal(t, int64(4), snap.Version)
}

func TestApplyRejectsInvalidTransitions(t *testing.T) {
	snap := seeded(t)
	draft, err := Apply(snap, AddArtifact{ThreadID: "th-1", ArtifactID: "ar-2", Kind: enums.ArtifactReport, Title: "Weekly", At: t0})
	require.NoError(t, err)

	cases := []struct {
		name string
		cmd  Command
		code pkgerrors.Code
	}{
		{"approve draft", SetArtifactStatus{ThreadID: "th-1", ArtifactID: "ar-2", Status: enums.ArtifactStatusApproved}, pkgerrors.CodeStateConflict},
		{"publish pending", SetArtifactStatus{ThreadID: "th-1", ArtifactID: "ar-1", Status: enums.ArtifactStatusPublished}, pkgerrors.CodeStateConflict},
		{"unknown artifact", SetArtifactStatus{ThreadID: "th-1", ArtifactID: "nope", Status: enums.ArtifactStatusApproved}, pkgerrors.CodeNotFound},
		{"unknown thread", RenameThread{ThreadID: "missing", Title: "x"}, pkgerrors.CodeNotFound},
		{"archive via status", SetThreadStatus{ThreadID: "th-1", Status: enums.ThreadArchived}, pkgerrors.CodeValidation},
		{"blank title", RenameThread{ThreadID: "th-1", Title: "  "}, pkgerrors.CodeValidation},
		{"bad kind", AddArtifact{ThreadID: "th-1", ArtifactID: "ar-9", Kind: "video", Title: "x"}, pkgerrors.CodeValidation},
		{"approved on create", AddArtifact{ThreadID: "th-1", ArtifactID: "ar-9", Kind: enums.ArtifactMessage, Title: "x", Status: enums.ArtifactStatusApproved}, pkgerrors.CodeValidation},
		{"duplicate thread", CreateThread{ThreadID: "th-1", Title: "again", Agent: "a"}, pkgerrors.CodeConflict},
		{"nil command", nil, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Apply(draft, tc.cmd)
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
			assert.Equal(t, draft.Version, out.Version)
		})
	}
}

func TestArchivedThreadsAreReadOnly(t *testing.T) {
	snap, err := Apply(seeded(t), ArchiveThread{ThreadID: "th-1", At: t0.Add(time.Hour)})
	require.NoError(t, err)
	thread, _ := snap.Thread("th-1")
	require.Equal(t, enums.ThreadArchived, thread.Status)

	for _, cmd := range []Command{
		RenameThread{ThreadID: "th-1", Title: "new"},
		SetThreadStatus{ThreadID: "th-1", Status: enums.ThreadOpen},
		AddArtifact{ThreadID: "th-1", ArtifactID: "ar-3", Kind: enums.ArtifactMessage, Title: "hi"},
		SetArtifactStatus{ThreadID: "th-1", ArtifactID: "ar-1", Status: enums.ArtifactStatusApproved},
		ArchiveThread{ThreadID: "th-1"},
	} {
		_, err := Apply(snap, cmd)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "%s: %v", cmd.Name(), err)
	}
}

func TestThreadStatusTransitions(t *testing.T) {
	snap := seeded(t)
	var err error
	for _, status := range []enums.ThreadStatus{enums.ThreadPending, enums.ThreadResolved, enums.ThreadOpen} {
		snap, err = Apply(snap, SetThreadStatus{ThreadID: "th-1", Status: status, At: t0})
		require.NoError(t, err, status)
	}
	snap, err = Apply(snap, SetThreadStatus{ThreadID: "th-1", Status: enums.ThreadResolved, At: t0})
	require.NoError(t, err)
	_, err = Apply(snap, SetThreadStatus{ThreadID: "th-1", Status: enums.ThreadPending, At: t0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestFilterByStatusAgentAndText(t *testing.T) {
	snap := seeded(t)
	snap, err := Apply(snap, CreateThread{ThreadID: "th-2", Title: "Inventory report", Agent: "ops", At: t0.Add(2 * time.Hour)})
	require.NoError(t, err)
	snap, err = Apply(snap, SetThreadStatus{ThreadID: "th-2", Status: enums.ThreadPending, At: t0.Add(3 * time.Hour)})
	require.NoError(t, err)

	all := Filter(snap, ThreadFilter{})
	require.Len(t, all, 2)
	assert.Equal(t, "th-2", all[0].ID, "most recently updated first")

	assert.Len(t, Filter(snap, ThreadFilter{Status: enums.ThreadPending}), 1)
	assert.Len(t, Filter(snap, ThreadFilter{Agent: "MARKETING"}), 1)
	byBody := Filter(snap, ThreadFilter{Query: "EDIBLES"})
	require.Len(t, byBody, 1)
	assert.Equal(t, "th-1", byBody[0].ID)
	assert.Empty(t, Filter(snap, ThreadFilter{Query: "flower"}))
}

func TestEnvelopeDecode(t *testing.T) {
	cmd, err := Envelope{Type: "add_artifact", Payload: []byte(`{"threadId":"th-1","kind":"report","title":"Weekly"}`)}.Decode()
	require.NoError(t, err)
	add, ok := cmd.(AddArtifact)
	require.True(t, ok)
	assert.Equal(t, enums.ArtifactReport, add.Kind)

	_, err = Envelope{Type: "delete_everything", Payload: []byte(`{}`)}.Decode()
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = Envelope{Type: "rename_thread", Payload: []byte(`{"threadId":`)}.Decode()
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
