package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
	"github.com/timboisvert/cocoscout-sub005/internal/queue"
	queue_publisher "github.com/timboisvert/cocoscout-sub005/internal/service"
)

// CancelNotifier publishes cancellation notifications after an engine
// operation commits. Publishing is best-effort: a broker outage must
// never roll back or fail the request that caused the cancellations.
type CancelNotifier interface {
	NotifyCancelled(ctx context.Context, f model.Form, instanceID uint64, reason string, regs []model.Registration)
}

// QueueNotifier publishes to RabbitMQ in a goroutine per call.
type QueueNotifier struct{}

func (QueueNotifier) NotifyCancelled(ctx context.Context, f model.Form, instanceID uint64, reason string, regs []model.Registration) {
	if len(regs) == 0 {
		return
	}
	ids := make([]uint64, 0, len(regs))
	names := make([]string, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.ID)
		names = append(names, claimantName(r))
	}
	ev := queue.RegistrationsCancelledEvent{
		FormID:          f.ID,
		FormName:        f.Name,
		InstanceID:      instanceID,
		Reason:          reason,
		RegistrationIDs: ids,
		Names:           names,
		CancelledAt:     time.Now().UTC().Format(time.RFC3339),
	}
	// Detached from the request lifecycle on purpose.
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishRegistrationsCancelled(pubCtx, ev)
	}()
}

func claimantName(r model.Registration) string {
	if r.GuestName != nil && *r.GuestName != "" {
		return *r.GuestName
	}
	if r.UserID != nil {
		return "user " + strconv.FormatUint(*r.UserID, 10)
	}
	return "unknown"
}
