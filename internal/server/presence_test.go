package server

import (
	"testing"

	"github.com/mpruett/studiohub/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPresenceRegistry_AddRemove(t *testing.T) {
	pr := NewPresenceRegistry()

	userA := types.User{Id: "A", Name: "Ada", Role: "EDITOR"}

	assert.True(t, pr.Add("studio-1", userA), "expected first add to report a new presence")
	assert.True(t, pr.Present("studio-1", "A"), "expected user to be present after add")
	assert.Equal(t, 1, pr.StudioCount(), "expected one active studio")

	// second connection for the same identity
	assert.False(t, pr.Add("studio-1", userA), "expected second add to report existing presence")
	assert.Len(t, pr.Snapshot("studio-1"), 1, "expected one snapshot entry for a refcounted identity")

	assert.False(t, pr.Remove("studio-1", "A"), "expected first remove to keep the identity present")
	assert.True(t, pr.Present("studio-1", "A"), "expected user still present with one connection left")

	assert.True(t, pr.Remove("studio-1", "A"), "expected last remove to report a full leave")
	assert.False(t, pr.Present("studio-1", "A"), "expected user absent after last remove")
	assert.Equal(t, 0, pr.StudioCount(), "expected empty studio to be evicted from the registry")
}

func TestPresenceRegistry_RemoveUnknown(t *testing.T) {
	pr := NewPresenceRegistry()

	assert.False(t, pr.Remove("studio-1", "A"), "expected remove on unknown studio to be a no-op")

	pr.Add("studio-1", types.User{Id: "A", Name: "Ada"})
	assert.False(t, pr.Remove("studio-1", "B"), "expected remove of unknown identity to be a no-op")
	assert.True(t, pr.Present("studio-1", "A"), "expected existing presence to be untouched")
}

func TestPresenceRegistry_Snapshot(t *testing.T) {
	pr := NewPresenceRegistry()

	pr.Add("studio-1", types.User{Id: "A", Name: "Ada", Role: "EDITOR"})
	pr.Add("studio-1", types.User{Id: "B", Name: "Ben"})
	pr.Add("studio-2", types.User{Id: "C", Name: "Cam"})

	snapshot := pr.Snapshot("studio-1")
	assert.Len(t, snapshot, 2, "expected snapshot to contain both occupants")
	assert.ElementsMatch(t, []types.User{
		{Id: "A", Name: "Ada"},
		{Id: "B", Name: "Ben"},
	}, snapshot, "expected snapshot entries without role claims")

	// snapshot is detached from later mutations
	pr.Remove("studio-1", "B")
	assert.Len(t, snapshot, 2, "expected snapshot to be unaffected by later removals")

	assert.Empty(t, pr.Snapshot("unknown-studio"), "expected empty snapshot for unknown studio")
}
