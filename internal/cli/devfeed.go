package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskdeck-cli/internal/devfeed"
)

func newDevfeedCmd(app *App) *cobra.Command {
	srv := &devfeed.Server{}
	var intervalMS int

	cmd := &cobra.Command{
		Use:   "devfeed",
		Short: "Serve a websocket change feed from a JSONL file (dev fixture)",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate up front so a bad path fails before binding the port.
			if _, err := devfeed.LoadEvents(srv.EventsPath); err != nil {
				return err
			}
			srv.Interval = time.Duration(intervalMS) * time.Millisecond
			fmt.Fprintf(cmd.ErrOrStderr(), "serving %s on ws://%s/feed\n", srv.EventsPath, srv.Addr)
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&srv.Addr, "addr", "localhost:8791", "Listen address")
	cmd.Flags().StringVar(&srv.EventsPath, "events", "feed.jsonl", "JSONL file of change events")
	cmd.Flags().IntVar(&intervalMS, "interval", 1000, "Milliseconds between replayed events")
	cmd.Flags().BoolVar(&srv.Loop, "loop", false, "Replay the file forever")
	return cmd
}
