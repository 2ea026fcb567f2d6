package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipebook/internal/buildinfo"
	"github.com/dmitrijs2005/recipebook/internal/client/api"
	"github.com/dmitrijs2005/recipebook/internal/client/async"
	"github.com/dmitrijs2005/recipebook/internal/client/client"
	"github.com/dmitrijs2005/recipebook/internal/client/config"
	"github.com/dmitrijs2005/recipebook/internal/client/lists"
	"github.com/dmitrijs2005/recipebook/internal/client/repositories/siteconfig"
	"github.com/dmitrijs2005/recipebook/internal/client/session"
	"github.com/dmitrijs2005/recipebook/internal/client/transport"
	"github.com/dmitrijs2005/recipebook/internal/filex"
	"github.com/dmitrijs2005/recipebook/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const pingTimeout = 3 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	api     client.Client
	session *session.Store
	recipes *lists.Recipes
	siteCfg *client.ConfigCache

	// comments belong to the recipe last opened with "comments <id>".
	comments *lists.Comments
	listOpts []async.Option

	mu   sync.Mutex
	mode Mode

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local database and wires transport, session and lists.
// The lists stop fetching once ctx is done.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	dbPath, err := filex.EnsureParentDir(c.DatabasePath)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, dbPath, logger.With("component", "db"))
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	tr, err := transport.New(c.ServerBaseURL,
		transport.WithLogger(logger.With("component", "transport")),
		transport.WithRateLimit(c.RequestsPerSecond, 1),
		transport.WithUserAgent(buildinfo.UserAgent()),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	rc := client.NewRESTClient(tr)
	store := session.New(rc, session.NewSQLitePersistence(db), session.WithLogger(logger.With("component", "session")))
	tr.SetAuth(store, store)

	listOpts := []async.Option{async.WithContext(ctx), async.WithLogger(logger.With("component", "lists"))}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		api:      rc,
		session:  store,
		recipes:  lists.NewRecipes(rc, store, listOpts...),
		siteCfg:  client.NewConfigCache(rc, siteconfig.NewSQLiteRepository(db), logger.With("component", "siteconfig")),
		listOpts: listOpts,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

// Run restores the stored session, starts the connectivity watcher and
// blocks in the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.println("Welcome to RecipeBook CLI (type 'help' for commands)")

	if err := a.session.Initialize(ctx); err != nil {
		a.report(err)
	}
	if u := a.session.User(); u != nil {
		a.printf("Logged in as %s\n", u.DisplayName())
	}
	a.checkOnline(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close stops list fetches and closes the database.
func (a *App) Close() {
	a.recipes.Close()
	if a.comments != nil {
		a.comments.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn(context.Background(), "close database", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

func (a *App) getStatus() string {
	s := ""
	if u := a.session.User(); u != nil {
		s = u.Username + " "
	}
	if m := a.currentMode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := a.api.Ping(ctx); err != nil {
		if api.IsCanceled(err) {
			return
		}
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// StartOnlineStatusWatcher pings the server every interval until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// report prints err the way the user should see it. Cancellations print
// nothing.
func (a *App) report(err error) {
	msg := api.UserMessage(err)
	if msg == "" {
		return
	}
	a.printf("Error: %s\n", msg)
}
