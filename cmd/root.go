package cmd

import (
	"context"
	"os"
	"time"

	contentPkg "github.com/contentops/scheduler/content"
	contentRepo "github.com/contentops/scheduler/content/repository"
	coreConfig "github.com/contentops/scheduler/core/config"
	coreDB "github.com/contentops/scheduler/core/database"
	"github.com/contentops/scheduler/infrastructure/valkey"
	"github.com/contentops/scheduler/notify"
	"github.com/contentops/scheduler/pkg/clock"
	"github.com/contentops/scheduler/scheduling/application"
	schedDomain "github.com/contentops/scheduler/scheduling/domain"
	schedRepo "github.com/contentops/scheduler/scheduling/repository"
	"github.com/contentops/scheduler/ui/websocket"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	appConfig *coreConfig.Config

	schedulingRepo  *schedRepo.SchedulingGormRepository
	contentsRepo    *contentRepo.ContentGormRepository
	valkeyClient    *valkey.Client
	notificationOut schedDomain.NotificationSink

	schedulerService *application.SchedulingService
	templateService  *application.TemplateService
	statsService     *application.StatsService
	pollers          *application.Pollers
)

var rootCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Content scheduling engine",
	Long:  "Schedules publication and expiry of videos, banners, announcements and recommendation slots, with bounded retries, recurrence and a full audit trail.",
}

func init() {
	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	initFlags()
	cobra.OnInitialize(initApp)
}

func initFlags() {
	rootCmd.PersistentFlags().StringP("port", "p", "3000", "HTTP port | example: --port=8080")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging | example: --debug=true")
	rootCmd.PersistentFlags().String("db-driver", "sqlite", `database driver, "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("db-name", "", "SQLite file path or Postgres database name")

	_ = viper.BindPFlag("app_port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("app_debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("db_driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	_ = viper.BindPFlag("db_name", rootCmd.PersistentFlags().Lookup("db-name"))
}

func initApp() {
	var err error
	appConfig, err = coreConfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// Flags override environment.
	if rootCmd.PersistentFlags().Changed("port") {
		appConfig.App.Port = viper.GetString("app_port")
	}
	if viper.GetBool("app_debug") {
		appConfig.App.Debug = true
	}
	if rootCmd.PersistentFlags().Changed("db-driver") {
		appConfig.Database.Driver = viper.GetString("db_driver")
	}
	if v := viper.GetString("db_name"); v != "" {
		appConfig.Database.Name = v
	}

	if appConfig.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := os.MkdirAll(appConfig.Paths.BaseDir, 0o755); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	db, err := coreDB.NewDatabase(appConfig)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	schedulingRepo = schedRepo.NewSchedulingGormRepository(db)
	if err := schedulingRepo.Init(ctx); err != nil {
		logrus.Fatalf("failed to init scheduling repo: %v", err)
	}
	contentsRepo = contentRepo.NewContentGormRepository(db)
	if err := contentsRepo.Init(ctx); err != nil {
		logrus.Fatalf("failed to init content repo: %v", err)
	}

	if appConfig.Database.ValkeyEnabled {
		valkeyClient, err = valkey.NewClient(valkey.Config{
			Address:   appConfig.Database.ValkeyAddress,
			Password:  appConfig.Database.ValkeyPassword,
			DB:        appConfig.Database.ValkeyDB,
			KeyPrefix: appConfig.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[APP] Valkey unavailable, running without cross-node locks")
			valkeyClient = nil
		}
	}
	if valkeyClient != nil {
		websocket.SetValkeyClient(valkeyClient, uuid.NewString())
	}

	sinks := []schedDomain.NotificationSink{notify.NewLogSink(), websocket.NewSink()}
	if appConfig.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(appConfig.Notify.WebhookURL))
	}
	notificationOut = notify.NewFanout(sinks...)

	clk := clock.System()
	registry := contentPkg.NewRegistry(contentsRepo, clk)

	schedulerService = application.NewSchedulingService(schedulingRepo, contentsRepo, registry, notificationOut, clk)
	templateService = application.NewTemplateService(schedulingRepo, schedulerService, clk)
	statsService = application.NewStatsService(schedulingRepo, clk)

	var lockFunc application.LockFunc
	if valkeyClient != nil {
		lockFunc = func(key string, ttl time.Duration) bool {
			return valkeyClient.TryLock(context.Background(), key, ttl)
		}
	}

	pollers = application.NewPollers(schedulerService, schedulingRepo, notificationOut, clk, application.PollerConfig{
		DueInterval:      appConfig.Scheduler.DueInterval,
		ExpiryInterval:   appConfig.Scheduler.ExpiryInterval,
		ReminderInterval: appConfig.Scheduler.ReminderInterval,
		HistoryRetention: appConfig.Scheduler.HistoryRetention,
		CleanupCronSpec:  appConfig.Scheduler.CleanupCronSpec,
	}, lockFunc)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the shared clients.
func StopApp() {
	logrus.Info("[APP] Stopping application...")
	if valkeyClient != nil {
		valkeyClient.Close()
	}
	logrus.Info("[APP] Application stopped cleanly.")
}
