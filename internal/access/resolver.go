package access

import (
	"context"
	"log"
	"strings"
	"sync"

	"taskdeck-cli/internal/model"
)

// MembershipSource is the backend lookup the resolver depends on.
type MembershipSource interface {
	Membership(ctx context.Context, projectID, userID string) (model.Membership, error)
}

// Resolver decides whether the current user may observe a project's task
// events.
//
// Rules:
//   - The project owner always has access.
//   - Any membership row for (project, user) grants access, regardless of the
//     row's status. (A pending invite therefore grants live visibility; the
//     row status is kept on the record so tightening this is a local change.)
//   - A failed lookup denies access: fail closed, log, never error out.
//
// Results are cached per project. The cache is invalidated only explicitly —
// there is no TTL — so revocations take effect on Invalidate or on the next
// full refresh, which re-primes the cache.
type Resolver struct {
	src    MembershipSource
	userID string

	mu    sync.Mutex
	cache map[string]bool

	// Logf is the resolver's log sink; defaults to the standard logger.
	Logf func(format string, args ...any)
}

func NewResolver(src MembershipSource, userID string) *Resolver {
	return &Resolver{
		src:    src,
		userID: model.NormalizeID(userID),
		cache:  map[string]bool{},
		Logf:   log.Printf,
	}
}

// HasAccess reports whether the current user may see events for projectID.
func (r *Resolver) HasAccess(ctx context.Context, projectID string) bool {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" || r.userID == "" {
		return false
	}

	r.mu.Lock()
	if v, ok := r.cache[projectID]; ok {
		r.mu.Unlock()
		return v
	}
	r.mu.Unlock()

	// Lookup outside the lock; concurrent misses for the same project both
	// resolve and write the same answer.
	v := r.resolve(ctx, projectID)

	r.mu.Lock()
	r.cache[projectID] = v
	r.mu.Unlock()
	return v
}

func (r *Resolver) resolve(ctx context.Context, projectID string) bool {
	m, err := r.src.Membership(ctx, projectID, r.userID)
	if err != nil {
		r.Logf("access: membership lookup failed for %s: %v", projectID, err)
		return false
	}
	if model.NormalizeID(m.OwnerID) == r.userID {
		return true
	}
	for _, mem := range m.Members {
		if model.NormalizeID(mem.UserID) == r.userID {
			return true
		}
	}
	return false
}

// Invalidate drops the cached answer for one project.
func (r *Resolver) Invalidate(projectID string) {
	r.mu.Lock()
	delete(r.cache, strings.TrimSpace(projectID))
	r.mu.Unlock()
}

// InvalidateAll drops every cached answer.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = map[string]bool{}
	r.mu.Unlock()
}

// Prime replaces the cache with a known-accessible project set, marking every
// listed project accessible. Used after a full refresh, which already fetched
// the authoritative accessible-project list.
func (r *Resolver) Prime(projectIDs []string) {
	next := make(map[string]bool, len(projectIDs))
	for _, id := range projectIDs {
		if id = strings.TrimSpace(id); id != "" {
			next[id] = true
		}
	}
	r.mu.Lock()
	r.cache = next
	r.mu.Unlock()
}
