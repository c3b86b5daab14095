package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnknownParticipant is returned by StaticResolver for IDs it does not
// know.
var ErrUnknownParticipant = errors.New("unknown participant")

// NameResolver maps a participant ID to a display name.
type NameResolver interface {
	ResolveName(ctx context.Context, id string) (string, error)
}

// StaticResolver resolves names from a fixed map, typically the names
// section of the config file.
type StaticResolver map[string]string

// ResolveName implements NameResolver.
func (r StaticResolver) ResolveName(_ context.Context, id string) (string, error) {
	if name, ok := r[id]; ok && name != "" {
		return name, nil
	}
	return "", fmt.Errorf("resolve %s: %w", id, ErrUnknownParticipant)
}

// nameCache resolves each ID at most once per render. Failures fall back
// to the raw ID.
type nameCache struct {
	ctx      context.Context
	resolver NameResolver
	names    map[string]string
}

func newNameCache(ctx context.Context, resolver NameResolver) *nameCache {
	return &nameCache{ctx: ctx, resolver: resolver, names: make(map[string]string)}
}

func (c *nameCache) name(id string) string {
	if name, ok := c.names[id]; ok {
		return name
	}
	name := id
	if c.resolver != nil {
		resolved, err := c.resolver.ResolveName(c.ctx, id)
		switch {
		case err != nil:
			slog.Debug("name lookup failed", "participant", id, "error", err)
		case resolved != "":
			name = resolved
		}
	}
	c.names[id] = name
	return name
}
