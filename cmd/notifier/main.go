package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"wishlist/config"
	"wishlist/db"
	"wishlist/logging"
	"wishlist/services"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Планировщик нотификационных сканов. Сканы только ставят задачи
// доставки в Redis, сами пуши отправляют воркеры API-сервера.
func main() {
	var configPath string
	var once string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.StringVar(&once, "once", "", "Run a single job and exit: reservations, creations, self_birthdays, follower_birthdays")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	logging.Setup(config.AppConfig.Logs.Level)

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}
	if err := services.InitRedis(); err != nil {
		log.Printf("Redis unavailable, pushes will not be enqueued: %v", err)
	}

	services.InitPushQueue(nil)
	ns := services.NewNotificationService(services.PushQueueInstance)

	jobs := map[string]func(context.Context) error{
		"reservations":       ns.SendReservationNotifications,
		"creations":          ns.SendWishCreationNotifications,
		"self_birthdays":     ns.SendUpcomingSelfBirthdayNotifications,
		"follower_birthdays": ns.SendUpcomingFollowedBirthdayNotifications,
	}

	ctx := context.Background()

	if once != "" {
		job, ok := jobs[once]
		if !ok {
			log.Fatalf("Unknown job: %s", once)
		}
		if err := job(ctx); err != nil {
			log.Fatalf("Job %s failed: %v", once, err)
		}
		return
	}

	runJob := func(name string) {
		log.Printf("Running notification job: %s", name)
		if err := jobs[name](ctx); err != nil {
			log.Printf("Notification job %s failed: %v", name, err)
		}
	}

	scheduler := cron.New()
	// Ежечасно: резервации и новые хотелки
	_, _ = scheduler.AddFunc("0 * * * *", func() {
		runJob("reservations")
		runJob("creations")
	})
	// Ежедневно в полдень: дни рождения
	_, _ = scheduler.AddFunc("0 12 * * *", func() {
		runJob("self_birthdays")
		runJob("follower_birthdays")
	})
	scheduler.Start()
	log.Println("Notification scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	scheduler.Stop()
	log.Println("Notification scheduler stopped")
}
