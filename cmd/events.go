/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/assignhub/apiserver/config"
	"github.com/assignhub/apiserver/internal/events"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with assignment lifecycle events",
}

// eventsListenCmd consumes the assignment events channel and logs each
// event. It is the hook point for notification workers.
var eventsListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Consume and log assignment events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		bus, err := newEventBus(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer bus.Close()

		err = bus.Subscribe(cmd.Context(), func(ctx context.Context, event events.Event) error {
			slog.Info("assignment event",
				"type", event.Type,
				"assignment_id", event.AssignmentID,
				"user_id", event.UserID,
				"admin_id", event.AdminID,
				"status", event.Status,
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListenCmd)
}

func newEventBus(ctx context.Context, cfg config.Config) (events.Bus, error) {
	switch cfg.MQ.Backend {
	case config.MQBackendRabbitMQ:
		return events.NewRabbitMQBus(cfg.MQ.RabbitMQ)
	case config.MQBackendPubSub:
		return events.NewPubSubBus(ctx, cfg.MQ.PubSub)
	default:
		return nil, fmt.Errorf("MQ_BACKEND must be %q or %q", config.MQBackendRabbitMQ, config.MQBackendPubSub)
	}
}
