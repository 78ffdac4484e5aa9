package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"

	"github.com/daysync/daysync/calendar/google"
	"github.com/daysync/daysync/internal/classify"
	"github.com/daysync/daysync/internal/feedtoken"
	"github.com/daysync/daysync/internal/httpapi"
	"github.com/daysync/daysync/internal/ics"
	"github.com/daysync/daysync/internal/oauth"
	"github.com/daysync/daysync/internal/sqlite"
	"github.com/daysync/daysync/internal/syncer"
)

var cfg struct {
	DBPath    string
	Addr      string
	CredsFile string
	Authorize string
	Calendars string
	Sync      string
	CronSpec  string
	Push      string
	CalName   string
	TitleTmpl string
}

func init() {
	flag.StringVar(&cfg.DBPath, "db", "daysync.db", "path to the sqlite database")
	flag.StringVar(&cfg.Addr, "addr", ":8080", "listen address for webhook and feed endpoints")
	flag.StringVar(&cfg.CredsFile, "google-cred", "credentials.json", "credentials file for google")
	flag.StringVar(&cfg.Authorize, "authorize", "", "run the consent flow and store a credential for this user id")
	flag.StringVar(&cfg.Calendars, "calendars", "", "list the calendars visible to this user id")
	flag.StringVar(&cfg.Sync, "sync", "", "one-shot import: user:group:calendarID")
	flag.StringVar(&cfg.CronSpec, "cron", "", "cron spec for periodic imports of the -sync target, e.g. @hourly")
	flag.StringVar(&cfg.Push, "push", "", "one-shot push: user:eventID:calendarID")
	flag.StringVar(&cfg.CalName, "feed-name", "Special days", "calendar name on the exported feed")
	flag.StringVar(&cfg.TitleTmpl, "feed-title", "", "feed summary template, may use {title} {person} {group}")
}

// groupLocks serializes imports per group: the engine has no internal
// mutex, so concurrent imports for the same group could race on creation.
type groupLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (g *groupLocks) lock(groupID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.m == nil {
		g.m = make(map[string]*sync.Mutex)
	}
	l, ok := g.m[groupID]
	if !ok {
		l = &sync.Mutex{}
		g.m[groupID] = l
	}
	return l
}

func main() {
	_ = godotenv.Load()
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		<-ch
		cancel()
	}()

	credFile, err := os.ReadFile(cfg.CredsFile)
	if err != nil {
		fatal("Unable to read credentials file:", err)
	}
	provider, err := google.NewClient(credFile, logger)
	if err != nil {
		fatal("Unable to create google client:", err)
	}

	db, err := sql.Open(sqlite.DriverName, cfg.DBPath)
	if err != nil {
		fatal("Unable to open database:", err)
	}
	defer db.Close()
	storage := sqlite.NewStorage(db)

	accounts := oauth.NewManager(storage, provider, logger)
	engine := syncer.New(provider, storage, accounts, classify.DefaultConfig(), logger)
	exporter := syncer.NewExporter(provider, storage, accounts, logger)

	switch {
	case cfg.Authorize != "":
		cred, err := provider.Authorize(ctx, ":8080")
		if err != nil {
			fatal("Authorization failed:", err)
		}
		if err := storage.SaveCredential(ctx, cfg.Authorize, cred); err != nil {
			fatal("Unable to store credential:", err)
		}
		fmt.Fprintln(os.Stdout, "Credential stored for", cfg.Authorize)
		return

	case cfg.Calendars != "":
		acc, err := accounts.Account(ctx, cfg.Calendars)
		if err != nil {
			fatal("Unable to load account:", err)
		}
		cals, err := provider.Calendars(ctx, acc)
		if err != nil {
			fatal("Unable to list calendars:", err)
		}
		for _, cal := range cals {
			marker := " "
			if cal.Primary {
				marker = "*"
			}
			fmt.Fprintf(os.Stdout, "%s %s\t%s\n", marker, cal.ID, cal.Name)
		}
		return

	case cfg.Push != "":
		userID, eventID, calID, err := splitTarget(cfg.Push)
		if err != nil {
			fatal("Invalid -push target:", err)
		}
		res, err := exporter.PushEvent(ctx, userID, eventID, calID)
		if err != nil {
			fatal("Push failed:", err)
		}
		fmt.Fprintf(os.Stdout, "pushed=%v reason=%s\n", res.Pushed, res.Reason)
		return

	case cfg.Sync != "" && cfg.CronSpec == "":
		userID, groupID, calID, err := splitTarget(cfg.Sync)
		if err != nil {
			fatal("Invalid -sync target:", err)
		}
		res, err := engine.ImportEvents(ctx, userID, groupID, []string{calID}, syncer.DefaultOptions())
		if err != nil {
			fatal("Import failed:", err)
		}
		fmt.Fprintf(os.Stdout, "created=%d updated=%d skipped=%d\n", res.Created, res.Updated, res.Skipped)
		return
	}

	locks := &groupLocks{}

	if cfg.Sync != "" {
		userID, groupID, calID, err := splitTarget(cfg.Sync)
		if err != nil {
			fatal("Invalid -sync target:", err)
		}
		c := cron.New()
		_, err = c.AddFunc(cfg.CronSpec, func() {
			l := locks.lock(groupID)
			l.Lock()
			defer l.Unlock()
			if _, err := engine.ImportEvents(ctx, userID, groupID, []string{calID}, syncer.DefaultOptions()); err != nil {
				logger.Error("scheduled import failed", "group_id", groupID, "err", err)
			}
		})
		if err != nil {
			fatal("Invalid -cron spec:", err)
		}
		c.Start()
		defer c.Stop()
	}

	tokens := feedtoken.New([]byte(os.Getenv("DAYSYNC_FEED_SECRET")))
	feedOpts := ics.FeedOptions{CalendarName: cfg.CalName, TitleTemplate: cfg.TitleTmpl}

	watches := httpapi.NewWatchRegistry()
	if cfg.Sync != "" {
		// The watch itself is registered with the provider out of band; the
		// channel id and token printed here go into that registration.
		userID, groupID, calID, _ := splitTarget(cfg.Sync)
		w := watches.Register(userID, groupID, calID, "")
		logger.Info("notification channel ready", "channel_id", w.ChannelID, "token", w.Token)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /notifications", httpapi.NewWebhookHandler(watches, lockedImporter{engine, locks}, logger))
	mux.Handle("GET /feeds/{group}", httpapi.NewFeedHandler(tokens, storage, feedOpts, logger))

	server := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	logger.Info("listening", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fatal("Server failed:", err)
	}
}

// lockedImporter wraps the engine with the per-group serialization the
// engine requires of its callers.
type lockedImporter struct {
	engine *syncer.Syncer
	locks  *groupLocks
}

func (li lockedImporter) ImportEvents(ctx context.Context, userID, groupID string, calendarIDs []string, opts syncer.Options) (*syncer.Result, error) {
	l := li.locks.lock(groupID)
	l.Lock()
	defer l.Unlock()
	return li.engine.ImportEvents(ctx, userID, groupID, calendarIDs, opts)
}

func splitTarget(v string) (string, string, string, error) {
	parts := strings.SplitN(v, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("expected user:id:calendar, got %q", v)
	}
	return parts[0], parts[1], parts[2], nil
}

func fatal(msg string, err error) {
	fmt.Fprintln(os.Stderr, msg, err)
	os.Exit(1)
}
