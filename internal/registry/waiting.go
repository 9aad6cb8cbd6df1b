package registry

import (
	"context"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// WaitingRegistry manages WaitingTicket lifecycle: enqueue, candidate
// lookup, removal. One active ticket per user at any instant.
type WaitingRegistry struct {
	store storage.Store
	log   *logrus.Entry
}

func NewWaitingRegistry(store storage.Store) *WaitingRegistry {
	return &WaitingRegistry{
		store: store,
		log:   logrus.WithField("component", "waiting_registry"),
	}
}

// Enqueue registers the user as waiting. Delete-then-insert: re-entering
// the queue replaces any stale ticket, so a retrying client always ends up
// with exactly one fresh ticket.
func (w *WaitingRegistry) Enqueue(ctx context.Context, userID string) error {
	if err := w.store.DeleteTicketsForUsers(ctx, []string{userID}); err != nil {
		return err
	}
	ticket := &models.WaitingTicket{UserID: userID}
	if err := w.store.InsertTicket(ctx, ticket); err != nil {
		return err
	}
	w.log.WithField("user_id", userID).Debug("user enqueued")
	return nil
}

// FindCandidate returns the earliest ticket not owned by userID, or nil
// when nobody else is waiting. Side-effect free; the caller pairs and then
// removes both tickets itself.
func (w *WaitingRegistry) FindCandidate(ctx context.Context, userID string) (*models.WaitingTicket, error) {
	return w.store.EarliestTicketExcluding(ctx, userID)
}

// Remove deletes the tickets for the given users. Best-effort: failures are
// logged and swallowed, cleanup must never block navigation or retries.
func (w *WaitingRegistry) Remove(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	if err := w.store.DeleteTicketsForUsers(ctx, userIDs); err != nil {
		w.log.WithError(err).WithField("user_ids", userIDs).Warn("ticket cleanup failed")
	}
}
