package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"birdbot/internal/db"
	"birdbot/internal/slack"
	"birdbot/internal/utils"
)

// Processing failures. These never reach the webhook caller; the supervisor
// logs them and drops the event.
var (
	ErrTeamNotInstalled = errors.New("app not installed for team")
	ErrUnsupportedEvent = errors.New("unsupported event callback type")
	ErrFeedFetch        = errors.New("error retrieving random image")
	ErrPost             = errors.New("error posting response to slack")
)

// maxFeedAttempts bounds the hunt for an image with a qualifying extension.
// The feed returns arbitrary submissions, so a run of non-image posts is
// normal; a run this long means the subreddit is a bad fit.
const maxFeedAttempts = 25

// InstanceStore is the per-team credential lookup the processor depends on.
type InstanceStore interface {
	FindInstance(ctx context.Context, teamID string) (db.Instance, bool, error)
	DeleteInstance(ctx context.Context, teamID string) error
}

// ChatClient posts replies on behalf of an installed team.
type ChatClient interface {
	PostMessage(ctx context.Context, botToken, channel, text string) error
}

// ImageFeed returns the content URL of one random feed item per call.
type ImageFeed interface {
	RandomPost(ctx context.Context) (string, error)
}

// Processor holds the business logic for one dequeued event: team lookup,
// trigger matching, image selection, reply posting.
type Processor struct {
	Store      InstanceStore
	Chat       ChatClient
	Feed       ImageFeed
	Triggers   []string
	Extensions []string
}

// Process handles a single event_callback envelope. The installation is
// looked up fresh on every event so uninstalled teams are rejected promptly.
func (p *Processor) Process(ctx context.Context, env slack.Envelope) error {
	inst, found, err := p.Store.FindInstance(ctx, env.TeamID)
	if err != nil {
		return fmt.Errorf("find instance for team %q: %w", env.TeamID, err)
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrTeamNotInstalled, env.TeamID)
	}

	switch env.Event.Type {
	case "app_uninstalled":
		return p.Store.DeleteInstance(ctx, env.TeamID)
	case "message":
		return p.processMessage(ctx, env.Event, inst)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedEvent, env.Event.Type)
	}
}

func (p *Processor) processMessage(ctx context.Context, event slack.Event, inst db.Instance) error {
	// Messages with a subtype are system notices (edits, joins, bot posts),
	// not authored user text.
	if event.Subtype != "" {
		return nil
	}
	if !p.hasTrigger(event.Text) {
		return nil
	}

	imageURL, err := p.randomImageURL(ctx)
	if err != nil {
		return err
	}

	utils.Info("posting image", "team_id", inst.TeamID, "channel", event.Channel, "url", imageURL)
	if err := p.Chat.PostMessage(ctx, inst.AccessToken, event.Channel, imageURL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrPost, err)
	}
	return nil
}

func (p *Processor) hasTrigger(text string) bool {
	lower := strings.ToLower(text)
	for _, trigger := range p.Triggers {
		if strings.Contains(lower, strings.ToLower(trigger)) {
			return true
		}
	}
	return false
}

// randomImageURL polls the feed until a URL carries one of the allowed
// extensions. Only the wrong-extension case loops; any fetch failure fails
// the whole operation.
func (p *Processor) randomImageURL(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= maxFeedAttempts; attempt++ {
		url, err := p.Feed.RandomPost(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: %v", ErrFeedFetch, err)
		}
		if p.hasImageExtension(url) {
			return url, nil
		}
		utils.Debug("feed item skipped", "attempt", attempt, "url", url)
	}
	return "", fmt.Errorf("%w: no qualifying image after %d attempts", ErrFeedFetch, maxFeedAttempts)
}

func (p *Processor) hasImageExtension(url string) bool {
	for _, ext := range p.Extensions {
		if strings.HasSuffix(url, "."+ext) {
			return true
		}
	}
	return false
}
