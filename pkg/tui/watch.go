package tui

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/studioctl/pkg/console"
	"github.com/go-go-golems/studioctl/pkg/derive"
	"github.com/rs/zerolog/log"
)

// WatchProjections runs a console watch for project and publishes every
// derived projection set as a domain event.
func WatchProjections(ctx context.Context, pub message.Publisher, c *console.Console, project string) error {
	return c.Watch(ctx, project, func(p derive.Projections) {
		ev := ProjectionsUpdated{At: time.Now(), Projections: p}
		if err := Publish(pub, TopicStudioEvents, DomainTypeProjectionsUpdated, ev); err != nil {
			log.Warn().Err(err).Str("project", project).Msg("publish projections")
		}
	})
}
