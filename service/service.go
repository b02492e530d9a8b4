package service

import (
	"context"

	"stock/db"
	stockHttp "stock/http"
	"stock/inventory"
	"stock/message"
	"stock/message/outbox"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	watermillMessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Service struct {
	watermillRouter *watermillMessage.Router
	echoRouter      *echo.Echo
}

func New(
	redisClient *redis.Client,
	conn db.DB,
) Service {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	redisPublisher := message.NewRedisPublisher(redisClient, watermillLogger)

	stockRepo := db.NewStockRepository(&conn)
	processedRepo := db.NewProcessedEventRepository(&conn)

	reconciler := inventory.NewReconciler(stockRepo, processedRepo)
	gateway := message.NewGateway(reconciler)

	pgSubscriber := outbox.SubscribeForPGMessages(conn.Conn, watermillLogger)
	subscriberFor := func(consumerGroup string) watermillMessage.Subscriber {
		return message.NewRedisSubscriber(redisClient, consumerGroup, watermillLogger)
	}

	watermillRouter := message.NewWatermillRouter(
		pgSubscriber,
		redisPublisher,
		subscriberFor,
		gateway,
		watermillLogger,
	)

	echoRouter := stockHttp.NewHttpRouter(stockRepo)

	return Service{
		watermillRouter,
		echoRouter,
	}
}

func (s Service) Run(
	ctx context.Context,
) error {
	errgrp, ctx := errgroup.WithContext(ctx)

	errgrp.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	errgrp.Go(func() error {
		// the HTTP server must not report healthy before the consumer runs,
		// otherwise events could pile up behind a "ready" instance
		<-s.watermillRouter.Running()

		err := s.echoRouter.Start(":8080")
		if err != nil {
			return err
		}

		return nil
	})

	errgrp.Go(func() error {
		<-ctx.Done()
		return s.echoRouter.Shutdown(context.Background())
	})

	return errgrp.Wait()
}
