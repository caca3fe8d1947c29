package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legacyrp/legacybot/internal/fivem"
)

type schedulerFixture struct {
	scheduler    *Scheduler
	channel      *fakeChannel
	statusStore  *Store
	playersStore *Store
}

func newSchedulerFixture(t *testing.T, opts Options) *schedulerFixture {
	t.Helper()
	dir := t.TempDir()
	channel := newFakeChannel()

	statusStore := NewStore(filepath.Join(dir, "status.json"))
	playersStore := NewStore(filepath.Join(dir, "players.json"))

	sinks := func(string) *Sink { return newTestSink(channel) }
	scheduler := NewScheduler(fivem.NewClient(time.Second), sinks, statusStore, playersStore, opts)
	t.Cleanup(scheduler.Close)

	return &schedulerFixture{
		scheduler:    scheduler,
		channel:      channel,
		statusStore:  statusStore,
		playersStore: playersStore,
	}
}

func defaultOptions() Options {
	return Options{
		StatusInterval:  time.Hour, // only the immediate tick fires
		PlayersInterval: time.Hour,
		PageCapacity:    40,
		MaxFailures:     5,
	}
}

func playersServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/players.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConfigureRejectsBadURL(t *testing.T) {
	f := newSchedulerFixture(t, defaultOptions())

	assert.Error(t, f.scheduler.Configure(KindPlayers, "chan-1", "http://game:30120/info.json"))
	assert.Error(t, f.scheduler.Configure(KindStatus, "chan-1", "http://game:30120/players.json"))
	assert.Error(t, f.scheduler.Configure(KindPlayers, "chan-1", "not a url at all %"))
	assert.False(t, f.scheduler.Active(KindPlayers, "chan-1"))
}

func TestConfigureRendersAndPersists(t *testing.T) {
	srv := playersServer(t, `[{"id": 1, "name": "Alice"}, {"id": 2, "name": "Bob"}]`)
	f := newSchedulerFixture(t, defaultOptions())

	require.NoError(t, f.scheduler.Configure(KindPlayers, "chan-1", srv.URL+"/players.json"))
	assert.True(t, f.scheduler.Active(KindPlayers, "chan-1"))

	require.Eventually(t, func() bool { return f.channel.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		cfg, ok, err := f.playersStore.Load("chan-1")
		return err == nil && ok && len(cfg.MessageIDs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cfg, _, err := f.playersStore.Load("chan-1")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/players.json", cfg.URL)

	bodies := f.channel.bodies()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "Alice")
	assert.Contains(t, bodies[0], "Bob")
}

func TestResumeReusesExistingMessage(t *testing.T) {
	srv := playersServer(t, `[{"id": 1, "name": "Alice"}]`)
	f := newSchedulerFixture(t, defaultOptions())

	// State left behind by a previous process.
	f.channel.put("msg-old", &discordgo.MessageEmbed{Description: "stale"})
	require.NoError(t, f.playersStore.Save("chan-1", Patch{
		URL:        strPtr(srv.URL + "/players.json"),
		MessageIDs: idsPtr("msg-old"),
	}))

	require.NoError(t, f.scheduler.ResumeFromStorage())
	assert.True(t, f.scheduler.Active(KindPlayers, "chan-1"))

	require.Eventually(t, func() bool {
		bodies := f.channel.bodies()
		return len(bodies) == 1 && strings.Contains(bodies[0], "Alice")
	}, 2*time.Second, 10*time.Millisecond)

	assert.Zero(t, f.channel.createCount(), "the surviving message must be reused, not recreated")
}

func TestOfflineSourceRendersOfflinePage(t *testing.T) {
	srv := playersServer(t, `[]`)
	srv.Close() // permanently gone

	f := newSchedulerFixture(t, defaultOptions())
	require.NoError(t, f.scheduler.Configure(KindPlayers, "chan-1", srv.URL+"/players.json"))

	require.Eventually(t, func() bool {
		bodies := f.channel.bodies()
		return len(bodies) == 1 && strings.Contains(bodies[0], OfflineMarker)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitorSelfStopsAfterConsecutiveFailures(t *testing.T) {
	srv := playersServer(t, `[]`)
	srv.Close()

	opts := defaultOptions()
	opts.PlayersInterval = 10 * time.Millisecond
	opts.MaxFailures = 3

	f := newSchedulerFixture(t, opts)
	require.NoError(t, f.scheduler.Configure(KindPlayers, "chan-1", srv.URL+"/players.json"))

	require.Eventually(t, func() bool {
		return !f.scheduler.Active(KindPlayers, "chan-1")
	}, 5*time.Second, 10*time.Millisecond)

	// Self-stop keeps persisted config; an operator restart resumes it.
	_, ok, err := f.playersStore.Load("chan-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStopKeepsConfigForgetDeletesIt(t *testing.T) {
	srv := playersServer(t, `[]`)
	f := newSchedulerFixture(t, defaultOptions())

	require.NoError(t, f.scheduler.Configure(KindPlayers, "chan-1", srv.URL+"/players.json"))

	assert.True(t, f.scheduler.Stop(KindPlayers, "chan-1"))
	assert.False(t, f.scheduler.Active(KindPlayers, "chan-1"))
	_, ok, err := f.playersStore.Load("chan-1")
	require.NoError(t, err)
	assert.True(t, ok, "plain stop keeps the persisted config")

	require.NoError(t, f.scheduler.Configure(KindPlayers, "chan-1", srv.URL+"/players.json"))
	stopped, err := f.scheduler.StopAndForget(KindPlayers, "chan-1")
	require.NoError(t, err)
	assert.True(t, stopped)
	_, ok, err = f.playersStore.Load("chan-1")
	require.NoError(t, err)
	assert.False(t, ok, "stop-and-forget drops the persisted config")
}

func TestTickRetriesRateLimitedFetchOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	f := newSchedulerFixture(t, defaultOptions())
	st := &state{
		kind:      KindPlayers,
		channelID: "chan-1",
		url:       srv.URL + "/players.json",
		sink:      newTestSink(f.channel),
		cancel:    func() {},
	}

	start := time.Now()
	f.scheduler.tick(context.Background(), st)

	assert.Equal(t, int32(2), hits.Load(), "a rate limited fetch is retried exactly once")
	assert.GreaterOrEqual(t, time.Since(start), time.Second, "the retry waits out Retry-After")
	assert.Equal(t, 1, st.failures, "a failed retry counts as one failure")
}

func TestTickRateLimitRetryRecovers(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[{"id": 1, "name": "Alice"}]`))
	}))
	t.Cleanup(srv.Close)

	f := newSchedulerFixture(t, defaultOptions())
	st := &state{
		kind:      KindPlayers,
		channelID: "chan-1",
		url:       srv.URL + "/players.json",
		sink:      newTestSink(f.channel),
		cancel:    func() {},
		failures:  2,
	}

	f.scheduler.tick(context.Background(), st)

	assert.Equal(t, int32(2), hits.Load())
	assert.Zero(t, st.failures, "a successful retry resets the failure streak")
	bodies := f.channel.bodies()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "Alice")
}

func TestTickGuardSkipsOverlappingTick(t *testing.T) {
	var hits atomic.Int32
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }
	t.Cleanup(unblock)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		started <- struct{}{}
		<-release
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	channel := newFakeChannel()
	dir := t.TempDir()
	scheduler := NewScheduler(fivem.NewClient(10*time.Second),
		func(string) *Sink { return newTestSink(channel) },
		NewStore(filepath.Join(dir, "status.json")),
		NewStore(filepath.Join(dir, "players.json")),
		defaultOptions())
	t.Cleanup(scheduler.Close)

	st := &state{
		kind:      KindPlayers,
		channelID: "chan-1",
		url:       srv.URL + "/players.json",
		sink:      newTestSink(channel),
		cancel:    func() {},
	}

	done := make(chan struct{})
	go func() {
		scheduler.tickGuarded(context.Background(), st)
		close(done)
	}()
	<-started

	// Second tick while the first is still mid-fetch.
	scheduler.tickGuarded(context.Background(), st)
	assert.Equal(t, int32(1), hits.Load(), "an overlapping tick is skipped")

	unblock()
	<-done

	scheduler.tickGuarded(context.Background(), st)
	assert.Equal(t, int32(2), hits.Load(), "the guard clears once the tick finishes")
}

func TestStaleTickSelfStopKeepsReplacement(t *testing.T) {
	srv := playersServer(t, `[]`)
	dead := playersServer(t, `[]`)
	dead.Close()

	opts := defaultOptions()
	opts.MaxFailures = 1
	f := newSchedulerFixture(t, opts)

	require.NoError(t, f.scheduler.Configure(KindPlayers, "chan-1", srv.URL+"/players.json"))
	require.True(t, f.scheduler.Active(KindPlayers, "chan-1"))

	// A tick from a monitor that was replaced under the same key and
	// now hits the failure limit.
	stale := &state{
		kind:      KindPlayers,
		channelID: "chan-1",
		url:       dead.URL + "/players.json",
		sink:      newTestSink(f.channel),
		cancel:    func() {},
	}
	f.scheduler.tick(context.Background(), stale)

	require.Equal(t, 1, stale.failures)
	assert.True(t, f.scheduler.Active(KindPlayers, "chan-1"),
		"a replaced monitor's self-stop must not remove the current one")
}

func TestStopUnknownMonitor(t *testing.T) {
	f := newSchedulerFixture(t, defaultOptions())
	assert.False(t, f.scheduler.Stop(KindPlayers, "nope"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "status", KindStatus.String())
	assert.Equal(t, "players", KindPlayers.String())
}
