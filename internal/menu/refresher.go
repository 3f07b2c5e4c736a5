// Package menu keeps an in-memory copy of the storefront catalog and
// modifiers, refreshed in the background within the POS rate limit.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/imrishuroy/pos-orderflow/internal/pos"
)

// DefaultInterval keeps the refresher at two POS calls per pass, six per
// hour, under the vendor quota of ten.
const DefaultInterval = 20 * time.Minute

// ErrGroupNotFound is returned when the configured catalog group is absent.
var ErrGroupNotFound = errors.New("menu: catalog group not found")

// Catalog is the part of the POS client the refresher needs.
type Catalog interface {
	MenuItems(ctx context.Context) ([]pos.MenuGroup, error)
	Supplements(ctx context.Context) ([]pos.SupplementCategory, error)
}

// Snapshot is one consistent catalog/modifier pair.
type Snapshot struct {
	Group       pos.MenuGroup
	Supplements []pos.SupplementCategory
	RefreshedAt time.Time
}

// Refresher owns the current Snapshot.
type Refresher struct {
	catalog   Catalog
	groupName string
	interval  time.Duration
	nowFunc   func() time.Time

	mu      sync.Mutex // serializes passes
	current atomic.Pointer[Snapshot]
}

// NewRefresher returns a Refresher. An empty groupName selects the first
// catalog group; a zero interval selects DefaultInterval.
func NewRefresher(catalog Catalog, groupName string, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{
		catalog:   catalog,
		groupName: groupName,
		interval:  interval,
		nowFunc:   time.Now,
	}
}

// Snapshot returns the latest successful snapshot, or false before the
// first successful pass. It never blocks.
func (r *Refresher) Snapshot() (*Snapshot, bool) {
	s := r.current.Load()
	return s, s != nil
}

// Refresh runs one pass. The snapshot is replaced only when both fetches
// succeed; on error the previous snapshot stays in place.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups, err := r.catalog.MenuItems(ctx)
	if err != nil {
		return fmt.Errorf("fetch menu items: %w", err)
	}
	group, err := r.selectGroup(groups)
	if err != nil {
		return err
	}
	supplements, err := r.catalog.Supplements(ctx)
	if err != nil {
		return fmt.Errorf("fetch supplements: %w", err)
	}

	r.current.Store(&Snapshot{
		Group:       group,
		Supplements: supplements,
		RefreshedAt: r.nowFunc().UTC(),
	})
	return nil
}

func (r *Refresher) selectGroup(groups []pos.MenuGroup) (pos.MenuGroup, error) {
	if r.groupName == "" {
		if len(groups) == 0 {
			return pos.MenuGroup{}, ErrGroupNotFound
		}
		return groups[0], nil
	}
	for _, g := range groups {
		if g.Name == r.groupName {
			return g, nil
		}
	}
	return pos.MenuGroup{}, fmt.Errorf("%w: %q", ErrGroupNotFound, r.groupName)
}

// Run refreshes immediately and then every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[menu] refresh failed, keeping previous snapshot: %v", err)
		} else {
			log.Printf("[menu] snapshot refreshed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
