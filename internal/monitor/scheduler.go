package monitor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/legacyrp/legacybot/internal/fivem"
)

// Kind distinguishes the two monitor pipelines.
type Kind int

const (
	// KindStatus polls info.json and renders the aggregate status embed.
	KindStatus Kind = iota
	// KindPlayers polls players.json and renders the paginated roster.
	KindPlayers
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindPlayers:
		return "players"
	default:
		return "unknown"
	}
}

type Options struct {
	StatusInterval  time.Duration
	PlayersInterval time.Duration
	PageCapacity    int
	MaxFailures     int
}

// SinkFactory builds the sink for one destination channel. Called once
// per monitor so the sink's pacing state survives across ticks.
type SinkFactory func(channelID string) *Sink

type monitorKey struct {
	kind      Kind
	channelID string
}

// state is one running monitor. The pipeline fields below cancel are
// only touched by the tick pipeline, which inFlight serializes.
type state struct {
	kind      Kind
	channelID string
	url       string
	sink      *Sink
	cancel    context.CancelFunc

	inFlight atomic.Bool

	failures    int
	messageIDs  []string
	lastName    string
	onlineSince time.Time
}

// Scheduler owns the process-wide set of active monitors and runs each
// one's fetch, present, apply, persist pipeline on its own timer.
type Scheduler struct {
	client    *fivem.Client
	sinks     SinkFactory
	stores    map[Kind]*Store
	presenter Presenter
	opts      Options

	mu       sync.Mutex
	monitors map[monitorKey]*state
}

func NewScheduler(client *fivem.Client, sinks SinkFactory, statusStore, playersStore *Store, opts Options) *Scheduler {
	return &Scheduler{
		client: client,
		sinks:  sinks,
		stores: map[Kind]*Store{
			KindStatus:  statusStore,
			KindPlayers: playersStore,
		},
		presenter: NewPresenter(opts.PageCapacity),
		opts:      opts,
		monitors:  map[monitorKey]*state{},
	}
}

// Configure validates url, persists it for channelID and (re)starts the
// monitor. Previously persisted message ids are reused so a reconfigure
// or restart does not orphan the old messages.
func (s *Scheduler) Configure(kind Kind, channelID, url string) error {
	var err error
	switch kind {
	case KindStatus:
		err = fivem.ValidateInfoURL(url)
	case KindPlayers:
		err = fivem.ValidatePlayersURL(url)
	default:
		err = fmt.Errorf("unknown monitor kind %d", kind)
	}
	if err != nil {
		return err
	}

	s.Stop(kind, channelID)

	store := s.stores[kind]
	urlCopy := url
	if err := store.Save(channelID, Patch{URL: &urlCopy}); err != nil {
		return err
	}
	cfg, _, err := store.Load(channelID)
	if err != nil {
		return err
	}

	s.launch(kind, channelID, url, cfg.MessageIDs)
	return nil
}

// ResumeFromStorage restarts every persisted monitor. Stale message ids
// are reconciled by the sink on the first tick.
func (s *Scheduler) ResumeFromStorage() error {
	for kind, store := range s.stores {
		all, err := store.LoadAll()
		if err != nil {
			return fmt.Errorf("could not resume %s monitors: %w", kind, err)
		}
		for channelID, cfg := range all {
			if cfg.URL == "" {
				continue
			}
			log.Info().Str("kind", kind.String()).Str("channel", channelID).Msg("Resuming monitor from storage")
			s.launch(kind, channelID, cfg.URL, cfg.MessageIDs)
		}
	}
	return nil
}

// Stop cancels the monitor's timer and removes it from the active set.
// Persisted configuration is kept so a restart resumes the monitor; use
// StopAndForget to drop it for good. An in-flight tick finishes.
func (s *Scheduler) Stop(kind Kind, channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(kind, channelID)
}

// StopAndForget stops the monitor and deletes its persisted config.
func (s *Scheduler) StopAndForget(kind Kind, channelID string) (bool, error) {
	stopped := s.Stop(kind, channelID)
	if err := s.stores[kind].Delete(channelID); err != nil {
		return stopped, err
	}
	return stopped, nil
}

// Active reports whether a monitor is currently running.
func (s *Scheduler) Active(kind Kind, channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.monitors[monitorKey{kind, channelID}]
	return ok
}

// Update runs one immediate tick for the monitor, outside its timer.
func (s *Scheduler) Update(ctx context.Context, kind Kind, channelID string) error {
	s.mu.Lock()
	st, ok := s.monitors[monitorKey{kind, channelID}]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no active %s monitor for channel %s", kind, channelID)
	}
	s.tickGuarded(ctx, st)
	return nil
}

// Close stops all monitors.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.monitors {
		s.stopLocked(key.kind, key.channelID)
	}
}

func (s *Scheduler) stopLocked(kind Kind, channelID string) bool {
	key := monitorKey{kind, channelID}
	st, ok := s.monitors[key]
	if !ok {
		return false
	}
	st.cancel()
	delete(s.monitors, key)
	log.Info().Str("kind", kind.String()).Str("channel", channelID).Msg("Monitor stopped")
	return true
}

func (s *Scheduler) launch(kind Kind, channelID, url string, messageIDs []string) {
	ctx, cancel := context.WithCancel(context.Background())
	st := &state{
		kind:       kind,
		channelID:  channelID,
		url:        url,
		sink:       s.sinks(channelID),
		cancel:     cancel,
		messageIDs: slices.Clone(messageIDs),
	}

	s.mu.Lock()
	s.monitors[monitorKey{kind, channelID}] = st
	s.mu.Unlock()

	go s.run(ctx, st)
}

func (s *Scheduler) interval(kind Kind) time.Duration {
	if kind == KindPlayers {
		return s.opts.PlayersInterval
	}
	return s.opts.StatusInterval
}

func (s *Scheduler) run(ctx context.Context, st *state) {
	ticker := time.NewTicker(s.interval(st.kind))
	defer ticker.Stop()

	// First render straight away so the channel is never stale for a
	// whole interval after configure or resume.
	s.tickGuarded(ctx, st)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickGuarded(ctx, st)
		}
	}
}

// tickGuarded skips the tick entirely when a previous one for the same
// monitor is still running.
func (s *Scheduler) tickGuarded(ctx context.Context, st *state) {
	if !st.inFlight.CompareAndSwap(false, true) {
		log.Debug().Str("kind", st.kind.String()).Str("channel", st.channelID).Msg("Skipping tick, previous one still running")
		return
	}
	defer st.inFlight.Store(false)
	s.tick(ctx, st)
}

func (s *Scheduler) tick(ctx context.Context, st *state) {
	snapshot, fetchErr := s.observe(ctx, st)
	if fetchErr != nil {
		log.Warn().Err(fetchErr).Str("kind", st.kind.String()).Str("channel", st.channelID).Msg("Fetch failed, presenting offline state")
		snapshot = fivem.Snapshot{}
	}

	if snapshot.Online {
		if snapshot.ServerName != "" {
			st.lastName = snapshot.ServerName
		}
		if st.onlineSince.IsZero() {
			st.onlineSince = time.Now()
		}
	} else {
		st.onlineSince = time.Time{}
	}

	now := time.Now()
	var pages []Page
	switch st.kind {
	case KindStatus:
		uptime := "0m"
		if !st.onlineSince.IsZero() {
			uptime = FormatDuration(now.Sub(st.onlineSince))
		}
		pages = s.presenter.StatusPages(snapshot, st.lastName, uptime, now)
	case KindPlayers:
		pages = s.presenter.PlayerPages(snapshot, st.lastName, now)
	}

	newIDs, sinkErr := st.sink.Apply(ctx, st.messageIDs, pages)
	if sinkErr != nil {
		log.Warn().Err(sinkErr).Str("kind", st.kind.String()).Str("channel", st.channelID).Msg("Render cycle incomplete")
	}

	if !slices.Equal(newIDs, st.messageIDs) {
		st.messageIDs = slices.Clone(newIDs)
		ids := slices.Clone(newIDs)
		if err := s.stores[st.kind].Save(st.channelID, Patch{MessageIDs: &ids}); err != nil {
			// In-memory ids stay authoritative for this process.
			log.Error().Err(err).Str("channel", st.channelID).Msg("Could not persist monitor message ids")
		}
	}

	if fetchErr == nil && sinkErr == nil {
		st.failures = 0
		return
	}

	st.failures++
	if st.failures >= s.opts.MaxFailures {
		log.Error().
			Str("kind", st.kind.String()).
			Str("channel", st.channelID).
			Int("failures", st.failures).
			Msg("Monitor reached consecutive failure limit, stopping")
		s.stopIfCurrent(st)
	}
}

// stopIfCurrent removes st from the active set only if it is still the
// registered monitor for its key. A tick that outlived a reconfigure
// must not take down its replacement.
func (s *Scheduler) stopIfCurrent(st *state) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := monitorKey{st.kind, st.channelID}
	if s.monitors[key] != st {
		return
	}
	st.cancel()
	delete(s.monitors, key)
	log.Info().Str("kind", st.kind.String()).Str("channel", st.channelID).Msg("Monitor stopped")
}

// observe fetches the snapshot for the monitor, retrying exactly once
// after a rate-limited response. A failed retry still counts as a single
// tick failure.
func (s *Scheduler) observe(ctx context.Context, st *state) (fivem.Snapshot, error) {
	snapshot, err := s.fetchOnce(ctx, st)

	var rateErr *fivem.RateLimitError
	if errors.As(err, &rateErr) {
		wait := rateErr.RetryAfter
		if wait <= 0 {
			wait = time.Second
		}
		log.Warn().Dur("wait", wait).Str("channel", st.channelID).Msg("Source rate limited, retrying once")
		if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
			return snapshot, err
		}
		snapshot, err = s.fetchOnce(ctx, st)
	}
	return snapshot, err
}

func (s *Scheduler) fetchOnce(ctx context.Context, st *state) (fivem.Snapshot, error) {
	switch st.kind {
	case KindStatus:
		base := strings.TrimSuffix(st.url, fivem.InfoSuffix)
		return s.client.FetchStatus(ctx, base)
	case KindPlayers:
		players, err := s.client.FetchPlayers(ctx, st.url)
		if err != nil {
			return fivem.Snapshot{}, err
		}
		return fivem.Snapshot{
			Online:         true,
			CurrentPlayers: len(players),
			Players:        players,
		}, nil
	default:
		return fivem.Snapshot{}, fmt.Errorf("unknown monitor kind %d", st.kind)
	}
}

// FormatDuration renders an uptime as "2d 5h 3m", always showing at
// least the minutes.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", minutes))
	return strings.Join(parts, " ")
}
