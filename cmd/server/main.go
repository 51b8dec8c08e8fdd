package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/urfave/cli/v2"

	"github.com/isqad/livecam-gateway/internal/api"
	"github.com/isqad/livecam-gateway/internal/config"
	"github.com/isqad/livecam-gateway/internal/core"
	"github.com/isqad/livecam-gateway/internal/eventbus"
)

func main() {
	app := &cli.App{
		Name:        "livecam-gateway",
		Usage:       "Live-video gateway for RTSP cameras",
		Description: "Exposes one RTSP camera feed to browsers over WHEP, HLS and MJPEG",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "env",
				Usage:    "environment: either 'development' or 'production'",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "listen IP and port, example: ':80' (default value) for listen on 0.0.0.0:80",
				Value: ":80",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a config file, optional",
			},
		},
		Action: startServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}

func startServer(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	var events eventbus.Publisher = eventbus.Noop{}
	if cfg.NatsAddr != "" {
		natsPublisher, err := eventbus.NewNatsPublisher(cfg.NatsAddr)
		if err != nil {
			return err
		}
		defer natsPublisher.Close()
		events = natsPublisher
	}

	gatewayApp := api.New(api.AppOptions{
		Env:             core.ParseEnvironment(c.String("env")),
		Address:         c.String("address"),
		Config:          cfg,
		EventsPublisher: events,
	})

	return gatewayApp.Start()
}
