package controller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// App drives the controller forever, one cycle at a time.
type App struct {
	Controller *Controller
}

// Run only returns once ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	log.Info().
		Str("agency", a.Controller.Agency).
		Str("stopcode", a.Controller.StopCode).
		Strs("routecodes", a.Controller.RouteCodes).
		Str("direction", a.Controller.Direction).
		Msg("Starting transit predictions app")

	for {
		wait := a.Controller.Update(ctx)

		log.Info().Dur("refresh", wait).Msgf("Refreshing predictions in %d seconds", int(wait/time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
