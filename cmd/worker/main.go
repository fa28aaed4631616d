package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/attendance"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/config"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/notifier"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/queue"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/store"
)

// Worker consumes recorded-attendance messages and delivers them to
// the notification webhook.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:recorded")
	}

	repo := attendance.NewRepository(db.Client)
	notify := notifier.New(cfg.NotifyURL, cfg.NotifySkip)

	// Check notification service health on startup
	if !cfg.NotifySkip {
		if err := notify.Health(ctx); err != nil {
			log.Printf("WARNING: notification service not available: %v", err)
			log.Println("worker will retry delivery when messages arrive")
		} else {
			log.Println("notification service connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "attendance" {
			continue
		}

		log.Printf("processing record %s", msg.RecordID)

		rec, err := repo.Get(ctx, msg.RecordID)
		if err != nil {
			log.Printf("fetch record %s failed: %v", msg.RecordID, err)
			continue
		}

		deliverCtx, cancelDeliver := context.WithTimeout(ctx, 15*time.Second)
		err = notify.AttendanceRecorded(deliverCtx, rec)
		cancelDeliver()
		if err != nil {
			log.Printf("notify for record %s failed: %v", rec.ID, err)
			continue
		}
		log.Printf("record %s delivered", rec.ID)
	}

	log.Println("worker exited")
}
