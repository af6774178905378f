package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kkamota/tvbot/internal/membership"
	"github.com/kkamota/tvbot/internal/notify"
	"github.com/kkamota/tvbot/internal/rewards"
	"github.com/kkamota/tvbot/internal/store"
)

const (
	checkInterval = 1 * time.Hour
	noticeTTL     = 48 * time.Hour
)

// Checker periodically re-verifies the channel subscription of every
// subscribed account and lets the verifier reverse referral bonuses for
// accounts that left.
type Checker struct {
	Store    store.Store
	Redis    *redis.Client
	Members  membership.Checker
	Verifier *rewards.Verifier
	Notifier notify.Notifier
}

func NewChecker(st store.Store, rdb *redis.Client, members membership.Checker, verifier *rewards.Verifier, notifier notify.Notifier) *Checker {
	return &Checker{
		Store:    st,
		Redis:    rdb,
		Members:  members,
		Verifier: verifier,
		Notifier: notifier,
	}
}

func (c *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	log.Println("Background subscription worker started")

	// Run once at start
	c.reconcileSubscriptions(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reconcileSubscriptions(ctx)
		}
	}
}

func (c *Checker) reconcileSubscriptions(ctx context.Context) {
	log.Println("Running subscription reconcile cycle...")

	accounts, err := c.Store.ListAccounts(ctx)
	if err != nil {
		log.Printf("Error listing accounts: %v", err)
		return
	}

	for _, acc := range accounts {
		if !acc.IsSubscribed {
			continue
		}

		status := c.Members.Status(ctx, acc.TelegramID)
		if status == membership.StatusUnknown {
			// A Bot API outage must not mass-reverse bonuses.
			continue
		}
		if status.Subscribed() {
			continue
		}

		res, err := c.Verifier.Apply(ctx, acc.TelegramID, status)
		if err != nil {
			log.Printf("Failed to reconcile account %d: %v", acc.TelegramID, err)
			continue
		}
		if res.Member {
			continue
		}
		log.Printf("Account %d left the channel (bonus reversed: %v)", acc.TelegramID, res.Reversed)

		key := fmt.Sprintf("unsub_notice_%d", acc.TelegramID)
		exists, _ := c.Redis.Exists(ctx, key).Result()
		if exists != 0 {
			continue
		}
		err = c.Notifier.Send(ctx, acc.TelegramID,
			"⚠️ Вы отписались от канала, бонусы приостановлены. Подпишитесь снова, чтобы вернуть доступ.")
		if err == nil {
			c.Redis.Set(ctx, key, "true", noticeTTL)
		} else {
			log.Printf("Failed to send unsubscribe notice to %d: %v", acc.TelegramID, err)
		}
	}
}
