package service

import (
	"context"

	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/model"
)

// Notifier 事务提交后交付已落库的通知：推送 + 变更事件
type Notifier struct {
	dispatcher *Dispatcher
	bus        events.Bus
}

func NewNotifier(dispatcher *Dispatcher, bus events.Bus) *Notifier {
	return &Notifier{dispatcher: dispatcher, bus: bus}
}

func (n *Notifier) Deliver(ctx context.Context, notes ...*model.Notification) {
	if n == nil {
		return
	}
	for _, note := range notes {
		if note == nil {
			continue
		}
		if n.dispatcher != nil {
			n.dispatcher.Enqueue(note)
		}
		publish(ctx, n.bus, events.Event{
			Type:     events.NotificationCreated,
			EntityID: note.ID,
			ActorID:  note.SenderID,
			Data:     map[string]any{"receiver_id": note.ReceiverID, "type": string(note.Type)},
		})
	}
}
