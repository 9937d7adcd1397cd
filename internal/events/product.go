// Package events defines the catalog change events published after a committed mutation.
package events

import (
	"encoding/json"
	"time"

	"github.com/cartcraft/storefront/pkg/messaging"
)

const (
	// SubjectPrefix is the root of every catalog subject; streams subscribe to SubjectPrefix + ">".
	SubjectPrefix = "catalog.products."

	ActionCreated = "created"
	ActionUpdated = "updated"
)

var _ messaging.Event = ProductChangedEvent{}

// ProductChangedEvent announces that a product was created or updated.
// PreviousPath is set only when an update moved the product to a new slug.
type ProductChangedEvent struct {
	ProductID    string    `json:"product_id"`
	Slug         string    `json:"slug"`
	Action       string    `json:"action"`
	Path         string    `json:"path"`
	PreviousPath string    `json:"previous_path,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Paths lists every page the change makes stale.
func (e ProductChangedEvent) Paths() []string {
	if e.PreviousPath == "" || e.PreviousPath == e.Path {
		return []string{e.Path}
	}
	return []string{e.Path, e.PreviousPath}
}

func (e ProductChangedEvent) Subject() string {
	return SubjectPrefix + e.Action
}

func (e ProductChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
