package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/achievements"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/config"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/gateway"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/goals"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/localstore"
	syncengine "github.com/zy0x1337/health-tracker-pwa-sub000/internal/sync"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/tracker"
	httptransport "github.com/zy0x1337/health-tracker-pwa-sub000/internal/transport/http"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadClient()

	logger := log.New(os.Stdout, "[trackerd] ", log.LstdFlags)

	store, err := localstore.Open(filepath.Join(cfg.DataDir, "tracker.db"))
	if err != nil {
		logger.Fatalf("failed to open local store: %v", err)
	}
	defer store.Close()

	client := gateway.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	engine := syncengine.NewEngine(store, client, cfg.SyncInterval,
		syncengine.WithLogger(log.New(os.Stdout, "[sync] ", log.LstdFlags)))
	goalStore := goals.NewStore(cfg.UserID, store, client, logger)
	core := tracker.NewCore(cfg.UserID, store, client, engine, goalStore, logger)
	notifier := achievements.NewNotifier(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go engine.Start(ctx)
	engine.TriggerNow()

	d := &daemon{
		core:     core,
		store:    store,
		engine:   engine,
		notifier: notifier,
		logger:   logger,
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.StatsInterval), func() {
		d.refreshStats(ctx)
	}); err != nil {
		logger.Fatalf("failed to schedule stats refresh: %v", err)
	}
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * *", cfg.ReminderHour), func() {
		d.remindIfIdle()
	}); err != nil {
		logger.Fatalf("failed to schedule daily reminder: %v", err)
	}
	c.Start()

	control := &controlAPI{core: core, goals: goalStore, logger: logger}
	mux := http.NewServeMux()
	control.register(mux)
	server := httptransport.NewServer(httptransport.ServerConfig{
		Address: cfg.ControlAddress,
	}, mux)

	go func() {
		logger.Printf("control surface listening on %s", cfg.ControlAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("control server error: %v", err)
		}
	}()

	logger.Printf("tracker daemon started, data dir %s, api %s", cfg.DataDir, cfg.APIBaseURL)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownCh

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("control shutdown failed: %v", err)
	}
	<-c.Stop().Done()
	engine.Wait()
	logger.Printf("tracker daemon stopped")
}

type daemon struct {
	core     *tracker.Core
	store    *localstore.Store
	engine   *syncengine.Engine
	notifier *achievements.Notifier
	logger   *log.Logger

	online bool
}

// refreshStats recomputes the dashboard numbers from the merged local and
// remote history and logs newly unlocked achievements.
func (d *daemon) refreshStats(ctx context.Context) {
	dash, err := d.core.Dashboard(ctx)
	if err != nil {
		d.logger.Printf("stats: %v", err)
		return
	}

	if dash.Online && !d.online {
		// Back online after an outage, flush anything queued offline.
		d.engine.TriggerNow()
	}
	d.online = dash.Online

	d.logger.Printf("stats: today %d entries, streak %dd, goals %d/%d, weekly avg %.0f steps, trend %+.1f%%",
		dash.Today.EntryCount, dash.Streak, dash.Completion.Achieved, dash.Completion.Total,
		dash.WeeklyAvg.Steps, dash.Improvement)

	fresh, err := d.notifier.Unseen(dash.Achievements)
	if err != nil {
		d.logger.Printf("stats: achievement bookkeeping failed: %v", err)
		return
	}
	for _, a := range fresh {
		d.logger.Printf("achievement unlocked: %s (+%d XP)", a.Title, a.XP)
	}
}

// remindIfIdle nudges the user in the evening when nothing was logged today.
func (d *daemon) remindIfIdle() {
	records, err := d.store.ListAll()
	if err != nil {
		d.logger.Printf("reminder: local read failed: %v", err)
		return
	}
	today := domain.Day(time.Now())
	for _, r := range records {
		if r.Date == today {
			return
		}
	}
	d.logger.Printf("reminder: no entries logged today yet")
}
