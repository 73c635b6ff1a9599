package api

import (
	"time"

	"firestocks/conf"
	"firestocks/internal/dao"
	"firestocks/internal/dao/query"
	"firestocks/internal/handler/billing"
	"firestocks/internal/handler/broadcast"
	"firestocks/internal/handler/check"
	"firestocks/internal/handler/post"
	"firestocks/internal/handler/webhook"
	"firestocks/internal/router"
	"firestocks/internal/service"
	"firestocks/pkg/kafka"
	"firestocks/pkg/logger"
	"firestocks/pkg/mail"
	"firestocks/pkg/paypal"
	"firestocks/pkg/push/apns"
	"firestocks/pkg/quote"
	"firestocks/pkg/telegram"
	"firestocks/pkg/whatsapp"
	"firestocks/utils/uuid"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// App 组装后的应用，持有需要在关停时收尾的组件
type App struct {
	Router *router.ApiRouter
	Tasks  *service.TaskTracker
	Cron   *cron.Cron

	producer kafka.ProducerService
}

// InitApp 组装依赖：dao -> 外部客户端 -> service -> handler -> router
func InitApp(db *gorm.DB) *App {
	appCfg := conf.AppConfig

	postDao := query.NewPostDao(db)
	runDao := query.NewRunDao(db)
	broadcastDao := query.NewBroadcastDao(db)
	subscriberDao := query.NewSubscriberDao(db)
	notificationDao := query.NewNotificationDao(db)
	userDao := query.NewUserDao(db)

	quotaStore := dao.NewQuotaStore()
	runLock := dao.NewRunLock()

	// 外部客户端
	quoteClient := quote.NewClient(appCfg.Quote)
	telegramClient := telegram.NewClient(appCfg.Telegram.ApiBase)
	whatsappClient := whatsapp.NewClient(appCfg.WhatsApp)
	paypalClient := paypal.NewClient(appCfg.PayPal)
	mailSender := mail.NewSender(appCfg.Email)

	var pusher service.Pusher
	if appCfg.Apns.KeyFile != "" {
		pusher = apns.NewTokenApns()
	}

	var producer kafka.ProducerService = kafka.NopProducer{}
	if appCfg.Kafka.Broker != "" && appCfg.Kafka.EventTopic != "" {
		producer = kafka.NewKafkaProducer(appCfg.Kafka.Broker, appCfg.Kafka.EventTopic)
	}

	tasks := service.NewTaskTracker()
	snow := uuid.NewNode(1)

	// service
	notifier := service.NewNotifierService(userDao, subscriberDao, notificationDao,
		telegramClient, whatsappClient, mailSender, pusher)
	checkService := service.NewCheckService(postDao, runDao, quotaStore, runLock,
		quoteClient, notifier, producer, tasks, snow)
	historyService := service.NewHistoryService(runDao)
	broadcastService := service.NewBroadcastService(broadcastDao, subscriberDao, postDao,
		notifier, tasks, snow)
	postService := service.NewPostService(postDao, notifier, tasks, snow)
	botService := service.NewBotService(subscriberDao, telegramClient)
	billingService := service.NewBillingService(userDao, paypalClient, tasks)

	// handler
	checkHandler := check.NewCheckHandler(checkService, historyService)
	postHandler := post.NewPostHandler(postService)
	broadcastHandler := broadcast.NewBroadcastHandler(broadcastService)
	billingHandler := billing.NewBillingHandler(billingService)
	telegramHandler := webhook.NewTelegramHandler(botService, tasks)
	paypalHandler := webhook.NewPayPalHandler(billingService, paypalClient, tasks)

	app := &App{
		Router: router.NewApiRouter(checkHandler, postHandler, broadcastHandler,
			billingHandler, telegramHandler, paypalHandler),
		Tasks:    tasks,
		producer: producer,
	}

	// 后台巡检：给所有还有未关闭预测的用户定时跑检查
	if spec := appCfg.Check.SweepSpec; spec != "" {
		c := cron.New()
		if _, err := c.AddFunc(spec, func() {
			tasks.Go("sweep", checkService.SweepAll)
		}); err != nil {
			logger.Fatalf("invalid sweep cron spec %q: %v", spec, err)
		}
		c.Start()
		app.Cron = c
	}

	return app
}

// Close 收尾顺序：停巡检 -> 等后台任务 -> 关kafka
func (a *App) Close() {
	if a.Cron != nil {
		a.Cron.Stop()
	}
	a.Tasks.Shutdown(30 * time.Second)
	a.producer.Close()
}
