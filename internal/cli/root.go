package cli

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"taskdeck-cli/internal/access"
	"taskdeck-cli/internal/store"
	"taskdeck-cli/internal/sync"
)

type App struct {
	DBPath string
	UserID string
	Feed   string

	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskdeck",
		Short:        "Team task client with live sync",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Seed a local demo database
  taskdeck init --user u1 --demo

  # Scriptable commands
  taskdeck today
  taskdeck project tasks p-launch

  # Live view against a change feed
  taskdeck devfeed --events feed.jsonl &
  taskdeck watch --feed ws://localhost:8791/feed
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.DBPath, "db", envOr("TASKDECK_DB", ""), "Path to the sqlite database (default: ./.taskdeck/taskdeck.sqlite)")
	cmd.PersistentFlags().StringVar(&app.UserID, "user", envOr("TASKDECK_USER", ""), "User id (overrides current_user recorded in the database)")
	cmd.PersistentFlags().StringVar(&app.Feed, "feed", envOr("TASKDECK_FEED", ""), "Websocket change-feed URL (empty: polling only)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TASKDECK_FORMAT", "json"), "Output format (json)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newTodayCmd(app))
	cmd.AddCommand(newProjectCmd(app))
	cmd.AddCommand(newTaskCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newDevfeedCmd(app))

	return cmd
}

func envOr(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func openStore(ctx context.Context, app *App) (*store.Store, error) {
	path := strings.TrimSpace(app.DBPath)
	if path == "" {
		var err error
		path, err = store.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(ctx, path)
}

// resolveUser picks the session user: the --user flag wins, then the
// current_user recorded in the database.
func resolveUser(ctx context.Context, st *store.Store, app *App) (string, error) {
	if u := strings.TrimSpace(app.UserID); u != "" {
		return u, nil
	}
	u, err := st.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if u == "" {
		return "", errors.New("no user configured; run `taskdeck init --user <id>` or pass --user")
	}
	return u, nil
}

// newEngine wires a session engine over the local store. The caller owns
// Close. channelURL may be empty for polling-only sessions.
func newEngine(ctx context.Context, app *App) (*sync.Engine, *store.Store, error) {
	st, err := openStore(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	user, err := resolveUser(ctx, st, app)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	resolver := access.NewResolver(st, user)
	engine := sync.New(sync.DefaultConfig(), st, resolver, feedChannel(app), user)
	return engine, st, nil
}
