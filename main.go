package main

import (
	"context"
	"os"
	"os/signal"

	"stock/db"
	"stock/service"
	observability "stock/trace"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	tp := observability.ConfigureTraceProvider()
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	conn, err := db.NewDBConn(os.Getenv("POSTGRES_URL"))
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	conn.MigrateSchema()

	rdb := redis.NewClient(&redis.Options{
		Addr: os.Getenv("REDIS_ADDR"),
	})
	defer rdb.Close()

	logrus.Info("Starting stock service...")

	svc := service.New(rdb, conn)
	if err := svc.Run(ctx); err != nil {
		panic(err)
	}
}
