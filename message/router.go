package message

import (
	"stock/message/outbox"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Inbound topics. Each gets its own handler and consumer group so one
// product's contention never blocks the other streams.
const (
	TopicOrderCreated   = "order-created"
	TopicOrderCancelled = "order-cancelled"
	TopicProductCreated = "product-created"
	TopicProductDeleted = "product-deleted"
)

func NewWatermillRouter(
	pgSubscriber message.Subscriber,
	publisher message.Publisher,
	subscriberFor func(consumerGroup string) message.Subscriber,
	gateway Gateway,
	watermillLogger watermill.LoggerAdapter,
) *message.Router {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		panic(err)
	}

	useMiddlewares(router, publisher, watermillLogger)

	_, err = outbox.NewForwarder(pgSubscriber, publisher, watermillLogger, router)
	if err != nil {
		panic(err)
	}

	router.AddNoPublisherHandler(
		"OnOrderCreated",
		TopicOrderCreated,
		subscriberFor("svc-stock."+TopicOrderCreated),
		gateway.HandleOrderCreated,
	)
	router.AddNoPublisherHandler(
		"OnOrderCancelled",
		TopicOrderCancelled,
		subscriberFor("svc-stock."+TopicOrderCancelled),
		gateway.HandleOrderCancelled,
	)
	router.AddNoPublisherHandler(
		"OnProductCreated",
		TopicProductCreated,
		subscriberFor("svc-stock."+TopicProductCreated),
		gateway.HandleProductCreated,
	)
	router.AddNoPublisherHandler(
		"OnProductDeleted",
		TopicProductDeleted,
		subscriberFor("svc-stock."+TopicProductDeleted),
		gateway.HandleProductDeleted,
	)

	return router
}
