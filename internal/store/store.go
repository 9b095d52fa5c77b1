package store

import "time"

// Badge is the storage representation of the latest rendered badge.
//
// Badge is optimised for JSON serialisation (used by the REST API and SSE)
// and decoupled from the netbadge package's types.
type Badge struct {
	// ID is the badge element identifier, "network-badge".
	ID string `json:"id"`

	// Variant is the visual state: "normal", "warning" or "error".
	Variant string `json:"variant"`

	// Class is the CSS class string for the variant.
	Class string `json:"class"`

	// Text is the visible badge text.
	Text string `json:"text"`

	// RenderedAt is when the badge was rendered.
	RenderedAt time.Time `json:"rendered_at"`
}

// Store defines the interface for holding the latest badge and
// subscribing to renders.
//
// Store implementations must be safe for concurrent access. Only the most
// recent render is kept; there is no history.
type Store interface {
	// Update replaces the current badge and notifies all subscribers.
	Update(b Badge)

	// Latest returns the current badge, or false if nothing was rendered yet.
	Latest() (Badge, bool)

	// Subscribe returns a channel that receives badge renders.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Badge

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Badge)
}
