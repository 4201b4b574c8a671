package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajanata/hym8563/hym8563"
	"github.com/ajanata/hym8563/internal/mqttbridge"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Attach the chip, service wake events and run the MQTT bridge",
	Long: `Runs the attach-time bring-up, then polls the chip for latched alarm and timer
flags and acknowledges them. With mqtt.broker configured, alarms can be set and
cancelled over MQTT and every wake is published. On exit the interrupt enables
are left set when an alarm is pending, so the chip can wake the system.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var bridge *mqttbridge.Bridge
		if s.cfg.MQTT.Broker != "" {
			bridge = mqttbridge.New(s.dev, s.cfg.MQTT)
			if err := bridge.Connect(); err != nil {
				return err
			}
			defer bridge.Close()
			log.Printf("mqtt bridge connected to %s", s.cfg.MQTT.Broker)
		}

		events := make(chan struct{}, 1)
		go func() {
			if err := s.dev.PollWake(ctx, s.cfg.PollInterval(), events); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("wake poll: %v", err)
			}
		}()

		log.Printf("servicing wake events every %s", s.cfg.PollInterval())
		err = s.dev.ServeWake(ctx, events, func(ev hym8563.WakeEvent) {
			if ev.Err != nil {
				return
			}
			log.Printf("wake: %s", ev.Flags)
			if bridge != nil {
				bridge.PublishWake(ev)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		log.Print("shutting down")
		return s.dev.Shutdown()
	},
}
