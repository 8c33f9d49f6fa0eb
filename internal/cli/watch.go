package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"taskdeck-cli/internal/realtime"
	"taskdeck-cli/internal/tui"
)

// feedChannel builds the push channel for the session, or nil when no feed
// is configured (the engine then runs on polling alone).
func feedChannel(app *App) realtime.Channel {
	if u := strings.TrimSpace(app.Feed); u != "" {
		return realtime.NewWSChannel(u)
	}
	return nil
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of your tasks (push feed + polling backstop)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, st, err := newEngine(ctx, app)
			if err != nil {
				return err
			}
			defer st.Close()
			defer engine.Close()

			if err := engine.Start(ctx); err != nil {
				return err
			}
			return tui.Run(engine)
		},
	}
}
