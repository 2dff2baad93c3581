package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/iconidentify/groupgrab/internal/domain"
)

// Directory resolves a group jid to its current subject. It is kept current
// by groups.update events, so a rename takes effect on the next message.
type Directory struct {
	mu       sync.RWMutex
	subjects map[string]string
}

// NewDirectory creates a directory seeded with known jid -> subject pairs.
func NewDirectory(seed map[string]string) *Directory {
	d := &Directory{subjects: make(map[string]string, len(seed))}
	for jid, subject := range seed {
		d.subjects[jid] = subject
	}
	return d
}

// GroupName returns the current subject of a group.
func (d *Directory) GroupName(ctx context.Context, jid string) (string, error) {
	d.mu.RLock()
	subject, ok := d.subjects[jid]
	d.mu.RUnlock()

	if !ok || subject == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrGroupNotFound, jid)
	}
	return subject, nil
}

// Apply records subject changes. Entries without an id are ignored, and an
// entry without a subject leaves the current name alone.
func (d *Directory) Apply(groups []GroupInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, g := range groups {
		if g.ID == "" || g.Subject == "" {
			continue
		}
		d.subjects[g.ID] = g.Subject
	}
}

// Len returns the number of known groups.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subjects)
}
