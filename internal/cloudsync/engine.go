// Package cloudsync keeps the local journal document and the server copy in
// step: debounced uploads after local saves, a conditional last-write-wins
// download, and a best-effort send when the client goes away.
package cloudsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"reign/internal/journal"
	"reign/internal/logging"
	"reign/internal/notify"
)

const (
	SyncEndpoint     = "/sync"
	DefaultDebounce  = 2 * time.Second
	DefaultInitDelay = time.Second
)

type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
)

var (
	errNotSignedIn = errors.New("not signed in")
	errMergeSave   = errors.New("merged document could not be saved")
)

type LocalStore interface {
	GetData() *journal.Document
	SaveData(doc *journal.Document, skipSync bool) bool
}

type LoginState interface {
	IsLoggedIn() bool
}

// Remote is the subset of the API client the engine talks through.
type Remote interface {
	Get(ctx context.Context, endpoint string, out any) error
	Post(ctx context.Context, endpoint string, body, out any) error
	Beacon(endpoint string, body any) bool
}

type Config struct {
	Debounce  time.Duration
	InitDelay time.Duration
	Clock     clockwork.Clock
	Logger    *zap.Logger
	Notifier  notify.Notifier
}

type Engine struct {
	store    LocalStore
	session  LoginState
	remote   Remote
	clock    clockwork.Clock
	logger   *zap.Logger
	notifier notify.Notifier

	initDelay time.Duration
	debouncer *Debouncer
	syncing   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	lastSync time.Time
	onSynced []func()
}

func New(store LocalStore, session LoginState, remote Remote, cfg Config) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.InitDelay <= 0 {
		cfg.InitDelay = DefaultInitDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:     store,
		session:   session,
		remote:    remote,
		clock:     cfg.Clock,
		logger:    logging.OrNop(cfg.Logger).Named("sync"),
		notifier:  cfg.Notifier,
		initDelay: cfg.InitDelay,
		ctx:       ctx,
		cancel:    cancel,
	}
	e.debouncer = NewDebouncer(cfg.Clock, cfg.Debounce, func() {
		e.Upload(e.ctx)
	})
	return e
}

func (e *Engine) State() State {
	if e.syncing.Load() {
		return StateSyncing
	}
	return StateIdle
}

// LastSyncAt returns when an upload or download last succeeded.
func (e *Engine) LastSyncAt() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync, !e.lastSync.IsZero()
}

// OnSynced registers fn to run after Init adopted remote content.
func (e *Engine) OnSynced(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSynced = append(e.onSynced, fn)
}

// ScheduleUpload asks for an upload once local edits settle. Calls within
// the debounce window collapse into a single upload.
func (e *Engine) ScheduleUpload() {
	e.debouncer.Trigger()
}

// UploadPending reports whether a debounced upload is waiting to fire.
func (e *Engine) UploadPending() bool {
	return e.debouncer.Pending()
}

// Upload sends the whole local document. It reports false when signed out,
// when another sync is in flight, or when the request failed.
func (e *Engine) Upload(ctx context.Context) bool {
	ok, _ := e.upload(ctx)
	return ok
}

// Download fetches the server copy and adopts it when it is strictly newer.
// It reports whether local data changed.
func (e *Engine) Download(ctx context.Context) bool {
	ok, _ := e.download(ctx)
	return ok
}

// FullSync downloads then uploads. It reports false if either leg failed and,
// when showToast is set, tells the user how it went.
func (e *Engine) FullSync(ctx context.Context, showToast bool) bool {
	if !e.session.IsLoggedIn() {
		if showToast {
			e.notifier.Notify(notify.Warning, "Sign in to sync your data")
		}
		return false
	}

	_, derr := e.download(ctx)
	_, uerr := e.upload(ctx)
	if err := errors.Join(derr, uerr); err != nil {
		e.logger.Warn("full sync failed", zap.Error(err))
		if showToast {
			e.notifier.Notify(notify.Error, "Sync failed. Your data is safe on this device.")
		}
		return false
	}

	if showToast {
		e.notifier.Notify(notify.Success, "Synced with the cloud")
	}
	return true
}

// Init schedules the start-up download after the configured delay. The
// returned channel is closed once that attempt finished or was abandoned.
func (e *Engine) Init(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if !e.session.IsLoggedIn() {
		close(done)
		return done
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(done)

		timer := e.clock.NewTimer(e.initDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-e.ctx.Done():
			return
		case <-timer.Chan():
		}

		if e.Download(ctx) {
			e.emitSynced()
		}
	}()
	return done
}

// Unload is called when the client is going away. A pending debounced
// upload is cancelled and its payload handed to a fire-and-forget beacon.
// It reports whether a beacon was sent.
func (e *Engine) Unload() bool {
	if !e.debouncer.Cancel() {
		return false
	}
	if !e.session.IsLoggedIn() {
		return false
	}
	sent := e.remote.Beacon(SyncEndpoint, e.envelope(e.store.GetData()))
	e.logger.Debug("unload beacon", zap.Bool("sent", sent))
	return sent
}

// Stop abandons pending work and waits for background goroutines.
func (e *Engine) Stop() {
	e.cancel()
	e.debouncer.Stop()
	e.wg.Wait()
}

func (e *Engine) upload(ctx context.Context) (bool, error) {
	if !e.session.IsLoggedIn() {
		return false, errNotSignedIn
	}
	if !e.syncing.CompareAndSwap(false, true) {
		e.logger.Debug("upload skipped, sync in flight")
		return false, nil
	}
	defer e.syncing.Store(false)

	doc := e.store.GetData()
	if err := e.remote.Post(ctx, SyncEndpoint, e.envelope(doc), nil); err != nil {
		e.logger.Warn("upload failed", zap.Error(err))
		return false, err
	}

	e.markSynced()
	e.logger.Debug("uploaded document")
	return true, nil
}

func (e *Engine) download(ctx context.Context) (bool, error) {
	if !e.session.IsLoggedIn() {
		return false, errNotSignedIn
	}
	if !e.syncing.CompareAndSwap(false, true) {
		e.logger.Debug("download skipped, sync in flight")
		return false, nil
	}
	defer e.syncing.Store(false)

	var resp journal.DownloadResponse
	if err := e.remote.Get(ctx, SyncEndpoint, &resp); err != nil {
		e.logger.Warn("download failed", zap.Error(err))
		return false, err
	}
	if resp.AppData == nil {
		return false, nil
	}
	journal.Normalize(resp.AppData)

	local := e.store.GetData()
	if !journal.RemoteIsNewer(resp.AppData.LastUpdated, local.LastUpdated) {
		return false, nil
	}

	if e.hasUnsyncedEdits(local) {
		e.logger.Warn("lost local edits: adopting newer remote document over unsynced local changes",
			zap.Timep("localUpdated", local.LastUpdated),
			zap.Timep("remoteUpdated", resp.AppData.LastUpdated))
	}

	merged := journal.MergeRemote(local, resp.AppData)
	if !e.store.SaveData(merged, true) {
		return false, errMergeSave
	}

	e.markSynced()
	e.logger.Info("adopted remote document", zap.Timep("remoteUpdated", resp.AppData.LastUpdated))
	return true, nil
}

// hasUnsyncedEdits reports whether local was saved after the last sync this
// engine saw. A never-saved document has nothing to lose.
func (e *Engine) hasUnsyncedEdits(local *journal.Document) bool {
	if local.LastUpdated == nil {
		return false
	}
	last, ok := e.LastSyncAt()
	return !ok || local.LastUpdated.After(last)
}

func (e *Engine) envelope(doc *journal.Document) journal.SyncEnvelope {
	return journal.SyncEnvelope{
		AppData:        doc,
		LocalTimestamp: journal.FormatISO(e.clock.Now()),
	}
}

func (e *Engine) markSynced() {
	e.mu.Lock()
	e.lastSync = e.clock.Now()
	e.mu.Unlock()
}

func (e *Engine) emitSynced() {
	e.mu.Lock()
	fns := append([]func(){}, e.onSynced...)
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
