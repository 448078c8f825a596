package permissions

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Permission tokens are opaque strings checked by exact membership in a
// role's (or API key's) permission set. There is no hierarchy between them;
// the only special rule is the admin level bypass in the checker.
type Permission struct {
	ID          string
	Module      string
	Description string
}

type registry struct {
	mu          sync.RWMutex
	permissions map[string]Permission
}

var globalRegistry = &registry{permissions: make(map[string]Permission)}

var (
	errEmptyID     = errors.New("permission: id is required")
	errDuplicateID = errors.New("permission: already registered")
)

// Register adds a permission definition to the global registry.
func Register(perm Permission) error {
	id := strings.TrimSpace(perm.ID)
	if id == "" {
		return errEmptyID
	}
	perm.ID = id

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.permissions[id]; exists {
		return errDuplicateID
	}
	globalRegistry.permissions[id] = perm
	return nil
}

// Get returns a registered permission definition.
func Get(id string) (Permission, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	perm, ok := globalRegistry.permissions[strings.TrimSpace(id)]
	return perm, ok
}

// All returns every registered permission sorted by ID.
func All() []Permission {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make([]Permission, 0, len(globalRegistry.permissions))
	for _, perm := range globalRegistry.permissions {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func init() {
	builtin := []Permission{
		{ID: "post.read", Module: "blog", Description: "Read blog posts, including drafts owned by others"},
		{ID: "post.create", Module: "blog", Description: "Create blog posts"},
		{ID: "post.edit", Module: "blog", Description: "Edit any blog post"},
		{ID: "post.delete", Module: "blog", Description: "Delete blog posts"},
		{ID: "post.publish", Module: "blog", Description: "Publish or unpublish blog posts"},
		{ID: "post.moderate", Module: "blog", Description: "Moderate reported blog posts"},
		{ID: "comment.create", Module: "comments", Description: "Write comments"},
		{ID: "comment.like", Module: "comments", Description: "Like comments"},
		{ID: "comment.moderate", Module: "comments", Description: "Hide or edit comments"},
		{ID: "comment.delete", Module: "comments", Description: "Delete comments"},
		{ID: "profile.edit", Module: "users", Description: "Edit own profile"},
		{ID: "user.moderate", Module: "users", Description: "Warn or suspend users"},
		{ID: "user.manage", Module: "users", Description: "Manage user accounts"},
		{ID: "role.manage", Module: "users", Description: "Assign roles"},
		{ID: "apikey.manage", Module: "auth", Description: "Create and revoke API keys"},
		{ID: "system.admin", Module: "system", Description: "Full administrative access"},
	}

	for _, perm := range builtin {
		if err := Register(perm); err != nil {
			panic(err)
		}
	}
}
