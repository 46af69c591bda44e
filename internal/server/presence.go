package server

import (
	"sync"

	"github.com/mpruett/studiohub/internal/types"
)

// presenceEntry tracks one identity inside a studio. conns counts the open
// connections held by that identity, so a user with two tabs appears once
// and only leaves when the last tab goes away.
type presenceEntry struct {
	user  types.User
	conns int
}

// PresenceRegistry is the process-wide mapping of studio id to the
// identities currently present in it. It holds no history and does not
// survive a restart. Studios exist implicitly: a studio key is created on
// the first Add and deleted when its last identity is removed.
//
// Membership mutations flow through the StudioServer's run loop, but
// Snapshot is also served to HTTP handlers, so the registry carries its own
// lock.
type PresenceRegistry struct {
	mu      sync.RWMutex
	studios map[string]map[string]*presenceEntry
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		studios: make(map[string]map[string]*presenceEntry),
	}
}

// Add records a connection for user in the studio. It reports whether the
// identity was not already present, i.e. whether this is the first
// connection the user holds in the studio.
func (pr *PresenceRegistry) Add(studioId string, user types.User) bool {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	studio, ok := pr.studios[studioId]
	if !ok {
		studio = make(map[string]*presenceEntry)
		pr.studios[studioId] = studio
	}

	if entry, ok := studio[user.Id]; ok {
		entry.conns++
		return false
	}

	studio[user.Id] = &presenceEntry{user: user.Presence(), conns: 1}
	return true
}

// Remove drops one connection for the identity in the studio. It reports
// whether the identity fully left, i.e. this was its last connection there.
// Removing an unknown identity or studio is a no-op.
func (pr *PresenceRegistry) Remove(studioId, userId string) bool {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	studio, ok := pr.studios[studioId]
	if !ok {
		return false
	}

	entry, ok := studio[userId]
	if !ok {
		return false
	}

	entry.conns--
	if entry.conns > 0 {
		return false
	}

	delete(studio, userId)
	if len(studio) == 0 {
		delete(pr.studios, studioId)
	}

	return true
}

// Snapshot returns a point-in-time copy of the studio's occupants. The
// returned slice is detached from the registry and never mutated by it.
func (pr *PresenceRegistry) Snapshot(studioId string) []types.User {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	users := make([]types.User, 0, len(pr.studios[studioId]))
	for _, entry := range pr.studios[studioId] {
		users = append(users, entry.user)
	}

	return users
}

// Present reports whether the identity currently holds at least one
// connection in the studio.
func (pr *PresenceRegistry) Present(studioId, userId string) bool {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	_, ok := pr.studios[studioId][userId]
	return ok
}

// StudioCount returns the number of studios with at least one occupant.
func (pr *PresenceRegistry) StudioCount() int {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return len(pr.studios)
}
