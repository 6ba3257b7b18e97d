package port

import "github.com/gridpool/market-engine/internal/domain"

// Notifier hands engine events to external collaborators. Publish must not
// block: the clearing loop treats delivery as fire-and-forget.
type Notifier interface {
	Publish(ev domain.Event)
}
