package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/arrivalsign/pkg/config"
	"github.com/travigo/arrivalsign/pkg/display"
	"github.com/travigo/arrivalsign/pkg/elastic_client"
	"github.com/travigo/arrivalsign/pkg/predictions"
	"github.com/travigo/arrivalsign/pkg/redis_client"
	"github.com/travigo/arrivalsign/pkg/siri_sm"
	"github.com/travigo/arrivalsign/pkg/transit511"
	"github.com/travigo/arrivalsign/pkg/util"
	"github.com/urfave/cli/v2"
)

const eventIndexPrefix = "arrivalsign-polls"

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "optional YAML config file, ARRIVALSIGN_* environment variables take precedence",
	EnvVars: []string{"ARRIVALSIGN_CONFIG"},
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "predictions",
		Usage: "Poll the 511.org stop monitoring API and show arrival predictions",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "poll and display predictions until stopped",
				Flags: []cli.Flag{configFlag},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}

					if err := elastic_client.Connect(false); err != nil {
						log.Error().Err(err).Msg("Failed to connect to Elasticsearch, poll events will not be indexed")
					}
					defer elastic_client.WaitUntilQueueEmpty()

					sink, err := buildSink(cfg)
					if err != nil {
						return err
					}

					ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					if err := sink.Show(display.Banner(cfg.Agency)); err != nil {
						log.Error().Err(err).Msg("Failed to show banner")
					}

					client := transit511.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Format)

					err = Supervise(ctx, cfg.RunDelay, cfg.ResetDelay, func(ctx context.Context) error {
						controller := New(cfg, client, sink)
						controller.Events = &ElasticEventRecorder{IndexPrefix: eventIndexPrefix}

						app := &App{Controller: controller}
						return app.Run(ctx)
					})

					if errors.Is(err, context.Canceled) {
						log.Info().Msg("Shutting down")
						return nil
					}

					return err
				},
			},
			{
				Name:  "once",
				Usage: "run a single poll cycle and print the lines",
				Flags: []cli.Flag{configFlag},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}

					client := transit511.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Format)
					controller := New(cfg, client, display.NewConsole())

					refresh := controller.Update(c.Context)
					fmt.Printf("Next refresh in %d seconds\n", int(refresh/time.Second))

					return nil
				},
			},
			{
				Name:  "inspect",
				Usage: "decode a captured response body and show what would be displayed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "response body as returned by the API, compressed or not",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Value: config.DefaultFormat,
					},
					&cli.StringFlag{
						Name:     "routes",
						Usage:    "comma separated route codes",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "direction",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max-predictions",
						Value: config.DefaultMaxPredictions,
					},
				},
				Action: func(c *cli.Context) error {
					body, err := os.ReadFile(c.String("file"))
					if err != nil {
						return err
					}

					document, err := siri_sm.DecodeResponseBody(body, siri_sm.Format(c.String("format")))
					if err != nil {
						return err
					}

					routeCodes := util.SplitList(c.String("routes"))
					direction := c.String("direction")

					routes := predictions.PredictionsForRouteCodes(document, routeCodes, direction)
					pretty.Println(routes)

					if seconds, ok := predictions.PredictionSecondsSoonest(document, routeCodes, direction); ok {
						fmt.Printf("Soonest arrival in %d seconds\n", seconds)
					} else {
						fmt.Println("No predictions available")
					}

					return display.NewConsole().Show(predictions.FormatRoutes(routes, routeCodes, c.Int("max-predictions")))
				},
			},
		},
	}
}

func buildSink(cfg *config.Config) (display.Sink, error) {
	switch cfg.Display {
	case "sign":
		panel := &display.TerminalPanel{Out: os.Stdout, Width: cfg.SignWidth}
		return display.NewSign(panel, cfg.SignSlots, cfg.SignWidth), nil
	case "queue":
		if err := redis_client.Connect(); err != nil {
			return nil, err
		}

		queue, err := redis_client.QueueConnection.OpenQueue(display.FrameQueueName(cfg.StopCode))
		if err != nil {
			return nil, err
		}

		return display.MultiSink{
			&display.QueueSink{
				Queue:    queue,
				Cache:    display.NewFrameCache(redis_client.Client),
				StopCode: cfg.StopCode,
			},
			display.NewConsole(),
		}, nil
	default:
		return display.NewConsole(), nil
	}
}
