package display

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/arrivalsign/pkg/consumer"
	"github.com/travigo/arrivalsign/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "sign",
		Usage: "Remote sign fed from the predictions frame queue",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "show queued frames for a stop until stopped",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "stop",
						Usage:    "stop code whose frames should be shown",
						EnvVars:  []string{"ARRIVALSIGN_STOP_CODE"},
						Required: true,
					},
					&cli.IntFlag{
						Name:    "slots",
						Value:   4,
						EnvVars: []string{"ARRIVALSIGN_SIGN_SLOTS"},
					},
					&cli.IntFlag{
						Name:    "width",
						Value:   12,
						EnvVars: []string{"ARRIVALSIGN_SIGN_WIDTH"},
					},
					&cli.StringFlag{
						Name:  "stats-address",
						Usage: "listen address for the queue stats and health endpoints",
						Value: ":3333",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					stopCode := c.String("stop")
					sign := NewSign(&TerminalPanel{Out: os.Stdout, Width: c.Int("width")}, c.Int("slots"), c.Int("width"))

					frameCache := NewFrameCache(redis_client.Client)
					if frame, err := frameCache.Latest(c.Context, stopCode); err == nil {
						if err := sign.Show(frame.Lines); err != nil {
							log.Error().Err(err).Msg("Failed to show cached frame")
						}
					} else {
						log.Info().Str("stopcode", stopCode).Msg("No cached frame, waiting for the next poll")
					}

					frameConsumer := &consumer.RedisConsumer{
						QueueName:       FrameQueueName(stopCode),
						NumberConsumers: 1,
						BatchSize:       10,
						Timeout:         1 * time.Second,
						Consumer:        &FrameConsumer{Sink: sign, StopCode: stopCode},
						StatsAddress:    c.String("stats-address"),
					}
					if err := frameConsumer.Setup(redis_client.QueueConnection); err != nil {
						return err
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					frameConsumer.Stop()

					return nil
				},
			},
		},
	}
}
