package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/pkg/events"
	pktNats "hmo-assistant-be/pkg/nats"
)

var tailDurable string

var tailCmd = &cobra.Command{
	Use:   "tail [event-type]",
	Short: "Stream conversation events from NATS",
	Long: `Print conversation events as the server forwards them to JetStream.

Without an argument every event is shown; pass a type such as
TURN_COMPLETED to filter. With --durable the consumer survives restarts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringVar(&tailDurable, "durable", "", "Durable consumer name")
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := pktNats.NewSubscriber(natsURL, logger.NewNopLogger())
	if err != nil {
		return err
	}
	defer sub.Close()

	subject := pktNats.SubjectPrefix + ">"
	if len(args) == 1 {
		subject = pktNats.Subject(args[0])
	}

	out := cmd.OutOrStdout()
	typeColor := color.New(color.FgYellow, color.Bold)
	return sub.Subscribe(ctx, subject, tailDurable, func(ctx context.Context, event events.Event) error {
		data, err := json.Marshal(event.Payload())
		if err != nil {
			return err
		}
		typeColor.Fprintf(out, "%s %s ", event.Timestamp().Format("15:04:05"), event.EventType())
		_, err = out.Write(append(data, '\n'))
		return err
	})
}
