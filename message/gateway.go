package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"stock/entities"

	"github.com/ThreeDotsLabs/watermill/message"
)

// ErrMalformedPayload marks a message that can never be decoded; the
// poison queue middleware routes it to the dead-letter topic instead of
// retrying it forever.
var ErrMalformedPayload = errors.New("malformed event payload")

type Reconciler interface {
	ApplyOrderCreated(ctx context.Context, event entities.OrderEvent) error
	ApplyOrderCancelled(ctx context.Context, event entities.OrderEvent) error
	ApplyProductCreated(ctx context.Context, event entities.ProductCreated) error
	ApplyProductDeleted(ctx context.Context, event entities.ProductDeleted) error
}

// Gateway decodes raw bus messages topic by topic and hands the typed
// events to the reconciler. Each topic has its own schema, there is no
// reflective dispatch.
type Gateway struct {
	reconciler Reconciler
}

func NewGateway(reconciler Reconciler) Gateway {
	if reconciler == nil {
		panic("missing reconciler")
	}
	return Gateway{
		reconciler: reconciler,
	}
}

func (g Gateway) HandleOrderCreated(msg *message.Message) error {
	event, err := decodeOrderEvent(msg.Payload)
	if err != nil {
		return err
	}
	return g.reconciler.ApplyOrderCreated(msg.Context(), event)
}

func (g Gateway) HandleOrderCancelled(msg *message.Message) error {
	event, err := decodeOrderEvent(msg.Payload)
	if err != nil {
		return err
	}
	return g.reconciler.ApplyOrderCancelled(msg.Context(), event)
}

func (g Gateway) HandleProductCreated(msg *message.Message) error {
	var event entities.ProductCreated
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}
	if event.ProductID == "" {
		return fmt.Errorf("%w: missing productId", ErrMalformedPayload)
	}
	if event.InitialStock < 0 {
		return fmt.Errorf("%w: negative initialStock", ErrMalformedPayload)
	}

	return g.reconciler.ApplyProductCreated(msg.Context(), event)
}

// HandleProductDeleted consumes the one topic that carries a bare
// productId string instead of a JSON document. Some producers quote
// the id, so a quoted payload is unwrapped as a JSON string.
func (g Gateway) HandleProductDeleted(msg *message.Message) error {
	productID := strings.TrimSpace(string(msg.Payload))
	if strings.HasPrefix(productID, `"`) {
		if err := json.Unmarshal(msg.Payload, &productID); err != nil {
			return fmt.Errorf("%w: %s", ErrMalformedPayload, err)
		}
	}
	if productID == "" {
		return fmt.Errorf("%w: empty productId", ErrMalformedPayload)
	}

	return g.reconciler.ApplyProductDeleted(msg.Context(), entities.ProductDeleted{ProductID: productID})
}

func decodeOrderEvent(payload []byte) (entities.OrderEvent, error) {
	var event entities.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return entities.OrderEvent{}, fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}
	if event.OrderID == "" {
		return entities.OrderEvent{}, fmt.Errorf("%w: missing orderId", ErrMalformedPayload)
	}
	for _, item := range event.Items {
		if item.ProductID == "" {
			return entities.OrderEvent{}, fmt.Errorf("%w: item without productId", ErrMalformedPayload)
		}
	}

	return event, nil
}
