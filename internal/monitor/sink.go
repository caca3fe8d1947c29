package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrMessageGone means the destination message no longer exists.
var ErrMessageGone = errors.New("message no longer exists")

// ErrRateLimited is a transient destination rate limit.
var ErrRateLimited = errors.New("destination rate limited")

// ErrPayloadRejected means the destination refused the content itself.
var ErrPayloadRejected = errors.New("payload rejected")

// ChannelMessenger is the sink's view of one destination channel.
type ChannelMessenger interface {
	// FetchMessage reports whether a message is still live. Returns
	// ErrMessageGone when it is not.
	FetchMessage(messageID string) error
	CreateMessage(embed *discordgo.MessageEmbed) (string, error)
	EditMessage(messageID string, embed *discordgo.MessageEmbed) error
	DeleteMessage(messageID string) error
}

// Sink reconciles a channel's monitor messages with a set of pages. It
// holds no monitor state of its own; the caller owns the message id list
// and its persistence.
type Sink struct {
	channel ChannelMessenger

	// creations paces message creation to stay clear of destination
	// rate limits.
	creations    *rate.Limiter
	retryBackoff time.Duration
	maxAttempts  int
}

func NewSink(channel ChannelMessenger) *Sink {
	return &Sink{
		channel:      channel,
		creations:    rate.NewLimiter(rate.Every(750*time.Millisecond), 1),
		retryBackoff: 2 * time.Second,
		maxAttempts:  3,
	}
}

var placeholderPage = Page{Title: "Server status", Body: "Initializing...", Color: colorOffline}

// Apply brings the channel's messages in line with pages and returns the
// ordered ids actually in use. A partial render returns the ids that are
// valid so far together with the error; the next cycle self-heals.
func (s *Sink) Apply(ctx context.Context, messageIDs []string, pages []Page) ([]string, error) {
	working := s.pruneStale(messageIDs)

	// Guarantee at least one slot so the channel never shows nothing.
	if len(working) == 0 && len(pages) > 0 {
		id, err := s.createWithRetry(ctx, renderPage(placeholderPage))
		if err != nil {
			return nil, err
		}
		working = append(working, id)
	}

	working, growErr := s.resize(ctx, working, len(pages))

	final, editErr := s.editAll(ctx, working, pages)

	if growErr != nil {
		return final, growErr
	}
	return final, editErr
}

// pruneStale drops ids that no longer resolve to a live message. Ids
// that cannot be verified are kept; a later edit failure self-heals.
func (s *Sink) pruneStale(messageIDs []string) []string {
	working := make([]string, 0, len(messageIDs))
	for _, id := range messageIDs {
		err := s.channel.FetchMessage(id)
		if errors.Is(err, ErrMessageGone) {
			log.Debug().Str("message", id).Msg("Dropping stale monitor message")
			continue
		}
		working = append(working, id)
	}
	return working
}

// resize grows or shrinks the working set to count slots. Growth failures
// are reported but leave the partial set usable; shrink deletes the
// highest-index messages first and ignores already-gone ones.
func (s *Sink) resize(ctx context.Context, working []string, count int) ([]string, error) {
	for len(working) < count {
		id, err := s.createWithRetry(ctx, renderPage(placeholderPage))
		if err != nil {
			log.Warn().Err(err).Msg("Could not create monitor message, rendering partially")
			return working, err
		}
		working = append(working, id)
	}

	for len(working) > count && len(working) > 0 {
		last := working[len(working)-1]
		if err := s.channel.DeleteMessage(last); err != nil && !errors.Is(err, ErrMessageGone) {
			log.Warn().Err(err).Str("message", last).Msg("Could not delete excess monitor message")
		}
		working = working[:len(working)-1]
	}
	return working, nil
}

func (s *Sink) editAll(ctx context.Context, working []string, pages []Page) ([]string, error) {
	final := make([]string, 0, len(pages))
	var firstErr error

	slot := 0
	for pi := 0; pi < len(pages) && slot < len(working); {
		id := working[slot]
		err := s.editWithRetry(ctx, id, renderPage(pages[pi]))
		switch {
		case err == nil:
			final = append(final, id)
			pi++
			slot++
		case errors.Is(err, ErrMessageGone):
			// Drop the slot; the current page shifts to the next one.
			log.Debug().Str("message", id).Msg("Monitor message disappeared mid-cycle")
			slot++
		case errors.Is(err, ErrPayloadRejected):
			newID, createErr := s.createWithRetry(ctx, renderPage(pages[pi]))
			if createErr != nil {
				if firstErr == nil {
					firstErr = createErr
				}
				final = append(final, id)
			} else {
				if delErr := s.channel.DeleteMessage(id); delErr != nil && !errors.Is(delErr, ErrMessageGone) {
					log.Warn().Err(delErr).Str("message", id).Msg("Could not delete rejected monitor message")
				}
				final = append(final, newID)
			}
			pi++
			slot++
		default:
			// Transient failure: keep the slot and move on.
			if firstErr == nil {
				firstErr = err
			}
			final = append(final, id)
			pi++
			slot++
		}
	}
	return final, firstErr
}

func (s *Sink) createWithRetry(ctx context.Context, embed *discordgo.MessageEmbed) (string, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if err := s.creations.Wait(ctx); err != nil {
			return "", err
		}
		id, err := s.channel.CreateMessage(embed)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !errors.Is(err, ErrRateLimited) {
			return "", err
		}
		if err := sleepCtx(ctx, s.retryBackoff); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (s *Sink) editWithRetry(ctx context.Context, messageID string, embed *discordgo.MessageEmbed) error {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := s.channel.EditMessage(messageID, embed)
		if err == nil || !errors.Is(err, ErrRateLimited) {
			return err
		}
		lastErr = err
		if err := sleepCtx(ctx, s.retryBackoff); err != nil {
			return err
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func renderPage(page Page) *discordgo.MessageEmbed {
	now := time.Now().Format(time.RFC3339)
	return &discordgo.MessageEmbed{
		Title:       page.Title,
		Description: page.Body,
		Color:       page.Color,
		Timestamp:   now,
	}
}
