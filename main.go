package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/grimstore/grimstore/app/controllers"
	"github.com/grimstore/grimstore/app/models"
	"github.com/grimstore/grimstore/app/repository"
	"github.com/grimstore/grimstore/internal/pkg/cache"
	"github.com/grimstore/grimstore/internal/pkg/chat"
	"github.com/grimstore/grimstore/internal/pkg/commerce"
	"github.com/grimstore/grimstore/internal/pkg/constants"
	"github.com/grimstore/grimstore/internal/pkg/database"
	"github.com/grimstore/grimstore/internal/pkg/env"
	"github.com/grimstore/grimstore/internal/pkg/metrics/counter"
	"github.com/grimstore/grimstore/internal/pkg/orderwatch"
	"github.com/grimstore/grimstore/internal/pkg/push"
	"github.com/grimstore/grimstore/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "3000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	core := commerce.NewClientFromEnv()
	controllers.SetCoreClient(core)

	pushClient := push.NewClientFromEnv()
	go connectPush(pushClient)

	manager := orderwatch.SetupManager(core, pushClient, orderRecorder())
	manager.Start()

	chatSvc := chat.NewService(core, pushClient)
	controllers.SetChatService(chatSvc, chat.NewHub(pushClient))

	flusher := counter.NewFlusher(repository.GetGlobalFactory().GetStatsRepository(), time.Minute)
	flusher.Start()

	app := fiber.New(fiber.Config{
		AppName: "GrimStore",
	})
	app.Use(recover.New(), logger.New())
	app.Static("/", "./public/assets")
	app.Get(constants.MetricsRoute, monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: constants.DocsRoute,
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}

// connectPush keeps trying the first connect. Once connected the client
// handles reconnects itself.
func connectPush(client *push.Client) {
	delay := time.Second
	for {
		if err := client.Connect(); err == nil {
			return
		}
		time.Sleep(delay)
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}

// orderRecorder persists confirmed status transitions into the ledger, the
// status cache and the daily counters.
func orderRecorder() orderwatch.Recorder {
	return func(trxID string, snapshot *commerce.Transaction, status string) {
		repo := repository.GetGlobalFactory().GetOrderRefRepository()
		if err := repo.RecordStatus(trxID, status); err != nil {
			log.Printf("ledger status write for %s failed: %v", trxID, err)
		}
		if snapshot != nil && snapshot.SN != "" {
			if err := repo.RecordSerialNumber(trxID, snapshot.SN); err != nil {
				log.Printf("ledger serial write for %s failed: %v", trxID, err)
			}
		}
		if err := cache.Set(cache.OrderStatusKey(trxID), status, cache.OrderStatusTTL); err != nil {
			log.Printf("status cache write for %s failed: %v", trxID, err)
		}

		switch status {
		case models.ORDER_STATUS_SUCCESS:
			counter.Incr(counter.KeyOrdersSuccess)
		case models.ORDER_STATUS_FAILED:
			counter.Incr(counter.KeyOrdersFailed)
		}
	}
}
