package tray

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRoleTaken indicates another item already occupies the role.
var ErrRoleTaken = errors.New("status area role taken")

// Item is anything placed in the status area.
type Item interface {
	Destroy()
}

// StatusArea keeps one item per role.
type StatusArea struct {
	mu    sync.Mutex
	items map[string]Item
}

// NewStatusArea returns an empty status area.
func NewStatusArea() *StatusArea {
	return &StatusArea{items: make(map[string]Item)}
}

// Add places item under role.
func (area *StatusArea) Add(role string, item Item) error {
	area.mu.Lock()
	defer area.mu.Unlock()
	if _, ok := area.items[role]; ok {
		return fmt.Errorf("add %q: %w", role, ErrRoleTaken)
	}
	area.items[role] = item
	return nil
}

// Remove frees role if item still holds it.
func (area *StatusArea) Remove(role string, item Item) {
	area.mu.Lock()
	defer area.mu.Unlock()
	if area.items[role] == item {
		delete(area.items, role)
	}
}

// Lookup returns the item under role.
func (area *StatusArea) Lookup(role string) (Item, bool) {
	area.mu.Lock()
	defer area.mu.Unlock()
	item, ok := area.items[role]
	return item, ok
}
