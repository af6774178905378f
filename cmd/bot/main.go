package main

import (
	"context"
	"log"

	"github.com/mymmrac/telego"

	"github.com/kkamota/tvbot/internal/admin"
	"github.com/kkamota/tvbot/internal/bot"
	"github.com/kkamota/tvbot/internal/config"
	"github.com/kkamota/tvbot/internal/database"
	"github.com/kkamota/tvbot/internal/membership"
	"github.com/kkamota/tvbot/internal/notify"
	"github.com/kkamota/tvbot/internal/rewards"
	"github.com/kkamota/tvbot/internal/session"
	"github.com/kkamota/tvbot/internal/store"
	"github.com/kkamota/tvbot/internal/withdrawal"
	"github.com/kkamota/tvbot/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}

	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		log.Fatalf("Could not create bot: %v", err)
	}

	st := store.NewGorm(db)
	locks := store.NewKeyedMutex()
	sessions := session.NewManager()
	notifier := notify.NewTelegram(tgBot)
	members := membership.NewTelegram(tgBot, cfg.ChannelUsername)

	ledger := rewards.NewLedger(st, locks, notifier, cfg)
	verifier := rewards.NewVerifier(members, st, locks, ledger, sessions)
	workflow := withdrawal.New(st, locks, sessions, notifier, cfg)
	moderation := admin.New(st, locks, sessions, notifier, workflow, ledger)

	checker := worker.NewChecker(st, rdb, members, verifier, notifier)
	go checker.Start(context.Background())

	b := bot.New(tgBot, st, sessions, verifier, ledger, workflow, moderation, cfg)

	log.Println("Service started successfully")
	b.Start()
}
