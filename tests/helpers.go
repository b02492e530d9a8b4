package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderItem struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
}

type orderEvent struct {
	OrderID    string      `json:"orderId"`
	UserID     int64       `json:"userId"`
	TotalPrice int64       `json:"totalPrice"`
	CreatedAt  time.Time   `json:"createdAt"`
	Items      []orderItem `json:"items"`
}

type productCreated struct {
	ProductID    string `json:"productId"`
	InitialStock int64  `json:"initialStock"`
}

func newBusPublisher(t *testing.T, rdb *redis.Client) message.Publisher {
	t.Helper()

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, watermill.NopLogger{})
	require.NoError(t, err)

	return publisher
}

func publishJSON(t *testing.T, publisher message.Publisher, topic string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	err = publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), raw))
	require.NoError(t, err)
}

func publishRaw(t *testing.T, publisher message.Publisher, topic string, payload string) {
	t.Helper()

	err := publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), []byte(payload)))
	require.NoError(t, err)
}

func getStockQuantity(productID string) (int64, int, error) {
	resp, err := http.Get(fmt.Sprintf("http://localhost:8080/stocks/%s", productID))
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, resp.StatusCode, nil
	}

	var record struct {
		Quantity int64 `json:"quantity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return 0, 0, err
	}

	return record.Quantity, resp.StatusCode, nil
}

func assertStockQuantity(t *testing.T, productID string, expected int64) {
	t.Helper()

	assert.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			quantity, status, err := getStockQuantity(productID)
			if !assert.NoError(t, err) {
				return
			}
			if !assert.Equal(t, http.StatusOK, status) {
				return
			}
			assert.Equal(t, expected, quantity)
		},
		10*time.Second,
		100*time.Millisecond,
	)
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get("http://localhost:8080/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode)
		},
		time.Second*10,
		time.Millisecond*50,
	)
}
