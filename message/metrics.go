package message

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stock_messages_processed_total",
		Help: "Messages handled by the stock consumer, by handler and outcome.",
	},
	[]string{"handler", "outcome"},
)

func countMessages(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		handlerName := message.HandlerNameFromCtx(msg.Context())

		msgs, err := next(msg)

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		messagesProcessed.WithLabelValues(handlerName, outcome).Inc()

		return msgs, err
	}
}
