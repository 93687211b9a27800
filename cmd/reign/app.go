package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"reign/internal/cloudsync"
	"reign/internal/config"
	"reign/internal/focus"
	"reign/internal/logging"
	"reign/internal/notify"
	"reign/internal/remote"
	"reign/internal/session"
	"reign/internal/storage"
	"reign/internal/store"
)

const unloadGrace = 5 * time.Second

type cli struct {
	cfgPath string
	out     io.Writer
	in      *bufio.Reader
	app     *app
}

type app struct {
	cfg     config.Client
	log     *zap.Logger
	data    *storage.SQLite
	sess    *storage.SQLite
	session *session.Session
	api     *remote.Client
	store   *store.Store
	engine  *cloudsync.Engine
	timer   *focus.Timer
}

func (c *cli) open() error {
	if c.app != nil {
		return nil
	}
	cfg, err := config.LoadClient(c.cfgPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := storage.OpenSQLite(cfg.DataPath(), cfg.StorageQuota)
	if err != nil {
		return err
	}
	sess, err := storage.OpenSQLite(cfg.SessionPath(), cfg.StorageQuota)
	if err != nil {
		_ = data.Close()
		return err
	}

	toasts := notify.NewConsole(c.out)
	// Token and profile persist with the journal; sess only holds per-device
	// scratch state such as the focus timer.
	ses := session.New(data, log, toasts)
	api := remote.NewClient(cfg.BaseURL(), ses,
		remote.WithTimeout(cfg.RequestTimeout),
		remote.WithLogger(log),
	)
	st := store.New(data, ses, store.WithLogger(log), store.WithNotifier(toasts))
	eng := cloudsync.New(st, ses, api, cloudsync.Config{
		Debounce:  cfg.SyncDebounce,
		InitDelay: cfg.SyncInitDelay,
		Logger:    log,
		Notifier:  toasts,
	})
	st.AttachScheduler(eng)

	c.app = &app{
		cfg:     cfg,
		log:     log,
		data:    data,
		sess:    sess,
		session: ses,
		api:     api,
		store:   st,
		engine:  eng,
		timer:   focus.New(sess, focus.WithLogger(log)),
	}
	return nil
}

// close hands any unsent edits to a beacon and gives it a moment to land
// before the process exits.
func (c *cli) close() {
	a := c.app
	if a == nil {
		return
	}
	c.app = nil

	if a.engine.Unload() {
		ctx, cancel := context.WithTimeout(context.Background(), unloadGrace)
		a.api.WaitBeacons(ctx)
		cancel()
	}
	a.engine.Stop()
	if err := a.data.Close(); err != nil {
		a.log.Warn("close data store", zap.Error(err))
	}
	if err := a.sess.Close(); err != nil {
		a.log.Warn("close session store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// pull runs the start-up download and waits for it.
func (a *app) pull(ctx context.Context) {
	select {
	case <-a.engine.Init(ctx):
	case <-ctx.Done():
	}
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label+": ")
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}
