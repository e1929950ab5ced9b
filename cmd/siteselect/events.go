package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Siteselect/internal/hermes"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print scoring events as they are published",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		subject, _ := cmd.Flags().GetString("subject")
		if cfg.Hermes.URL == "" {
			return eris.New("hermes.url is not configured")
		}

		client, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			return eris.Wrap(err, "connect to hermes")
		}
		defer client.Close()

		out := cmd.OutOrStdout()
		msgs := make(chan string, 64)
		err = client.Subscribe(subject, func(subj string, data []byte) {
			select {
			case msgs <- fmt.Sprintf("%s %s", subj, data):
			default:
				logger.Warn("dropping event, output too slow", "subject", subj)
			}
		})
		if err != nil {
			return eris.Wrapf(err, "subscribe %s", subject)
		}
		logger.Info("listening for events", "subject", subject)

		for {
			select {
			case <-ctx.Done():
				return nil
			case m := <-msgs:
				fmt.Fprintln(out, m)
			}
		}
	},
}

func init() {
	eventsCmd.Flags().String("subject", hermes.SubjectAll, "subject filter")
	rootCmd.AddCommand(eventsCmd)
}
