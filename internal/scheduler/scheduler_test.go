package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/attune/internal/checkin"
	"github.com/chris/attune/internal/db"
	"github.com/chris/attune/internal/insight"
	"github.com/chris/attune/internal/prompts"
	"github.com/chris/attune/internal/tracking"
)

type fakeDM struct {
	mu   sync.Mutex
	sent []Message
	to   []string
	err  error
}

func (f *fakeDM) SendDM(_ context.Context, userID string, m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, userID)
	f.sent = append(f.sent, m)
	return nil
}

type webhookSink struct {
	mu     sync.Mutex
	bodies []string
	status int
}

func (w *webhookSink) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.mu.Lock()
		w.bodies = append(w.bodies, payload["content"])
		status := w.status
		w.mu.Unlock()
		if status != 0 {
			rw.WriteHeader(status)
			return
		}
		rw.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	db        *db.DB
	svc       *checkin.Service
	lib       *prompts.Loader
	trackPath string
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	path := filepath.Join(t.TempDir(), "tracking.json")
	store := tracking.NewStore(path,
		tracking.WithClock(func() time.Time { return now }),
		tracking.WithLocation(time.UTC),
	)
	lib, err := prompts.NewLoader("", nil)
	require.NoError(t, err)
	return &fixture{db: database, svc: checkin.New(store), lib: lib, trackPath: path}
}

func (f *fixture) dispatcher(opts ...DispatcherOption) *Dispatcher {
	opts = append([]DispatcherOption{WithFormPacing(0)}, opts...)
	return NewDispatcher(f.db, f.svc, f.lib, opts...)
}

var morning = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func TestSendPrompt_DM(t *testing.T) {
	f := newFixture(t, morning)
	require.NoError(t, f.db.SetNote(NoteDiscordUser, "u-1"))
	dm := &fakeDM{}

	require.NoError(t, f.dispatcher(WithDM(dm)).SendPrompt(context.Background()))

	require.Len(t, dm.sent, 1)
	assert.Equal(t, "u-1", dm.to[0])
	assert.Equal(t, f.lib.Library().Morning[0], dm.sent[0].Text)

	deliveries, err := f.db.ListDeliveries(db.KindPrompt, 5)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, db.ChannelDM, deliveries[0].Channel)
	assert.Equal(t, db.StatusSent, deliveries[0].Status)
}

func TestSendPrompt_OutsideHours(t *testing.T) {
	f := newFixture(t, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC))
	dm := &fakeDM{}

	err := f.dispatcher(WithDM(dm)).SendPrompt(context.Background())
	assert.ErrorIs(t, err, ErrOutsideHours)
	assert.Empty(t, dm.sent)
}

func TestDeliver_FallsBackToWebhook(t *testing.T) {
	f := newFixture(t, morning)
	require.NoError(t, f.db.SetNote(NoteDiscordUser, "u-1"))
	sink := &webhookSink{}
	srv := sink.server(t)

	d := f.dispatcher(WithDM(&fakeDM{err: errors.New("gateway down")}), WithWebhook(srv.URL, srv.Client()))
	require.NoError(t, d.SendVoice(context.Background(), "evening_sats"))

	require.Len(t, sink.bodies, 1)
	assert.Contains(t, sink.bodies[0], "Evening SATS Practice")

	deliveries, err := f.db.ListDeliveries(db.KindVoice, 5)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, db.ChannelWebhook, deliveries[0].Channel)
}

func TestDeliver_WebhookWithoutDMUser(t *testing.T) {
	f := newFixture(t, morning)
	sink := &webhookSink{}
	srv := sink.server(t)
	dm := &fakeDM{}

	d := f.dispatcher(WithDM(dm), WithWebhook(srv.URL, srv.Client()))
	require.NoError(t, d.SendPrompt(context.Background()))

	assert.Empty(t, dm.sent, "no DM user recorded yet")
	assert.Len(t, sink.bodies, 1)
}

func TestDeliver_FailureIsRecordedAndTrackingUntouched(t *testing.T) {
	f := newFixture(t, morning)
	sink := &webhookSink{status: http.StatusInternalServerError}
	srv := sink.server(t)

	err := f.dispatcher(WithWebhook(srv.URL, srv.Client())).SendForm(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	deliveries, err := f.db.ListDeliveries(db.KindForm, 5)
	require.NoError(t, err)
	require.Len(t, deliveries, 1, "form stops at the first failed question")
	assert.Equal(t, db.StatusFailed, deliveries[0].Status)

	_, statErr := os.Stat(f.trackPath)
	assert.True(t, os.IsNotExist(statErr), "failed delivery must not touch tracking state")
}

func TestDeliver_NoChannel(t *testing.T) {
	f := newFixture(t, morning)

	err := f.dispatcher().SendPrompt(context.Background())
	assert.ErrorIs(t, err, ErrNoChannel)

	deliveries, err := f.db.ListDeliveries("", 5)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, db.ChannelNone, deliveries[0].Channel)
}

func TestSendForm_AllQuestionsInOrder(t *testing.T) {
	f := newFixture(t, morning)
	require.NoError(t, f.db.SetNote(NoteDiscordUser, "u-1"))
	dm := &fakeDM{}

	require.NoError(t, f.dispatcher(WithDM(dm), WithUserName("Sam")).SendForm(context.Background()))

	form := prompts.EveningForm("Sam")
	require.Len(t, dm.sent, len(form))
	for i, q := range form {
		assert.Equal(t, q.Text, dm.sent[i].Text)
		assert.Equal(t, q.Buttons, dm.sent[i].Buttons)
		assert.Equal(t, "2026-03-10", dm.sent[i].Date)
	}

	for _, want := range []string{"gratitudes", "insights"} {
		p, err := f.db.PopPending("u-1")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, db.Pending{Field: want, Date: "2026-03-10"}, *p)
	}
}

func TestSendForm_Paced(t *testing.T) {
	f := newFixture(t, morning)
	require.NoError(t, f.db.SetNote(NoteDiscordUser, "u-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := f.dispatcher(WithDM(&fakeDM{}), WithFormPacing(time.Hour)).SendForm(ctx)
	assert.Error(t, err, "the second question waits far longer than the deadline")
}

func TestSendWeekly_EmptyWeek(t *testing.T) {
	f := newFixture(t, morning)
	require.NoError(t, f.db.SetNote(NoteDiscordUser, "u-1"))
	dm := &fakeDM{}

	require.NoError(t, f.dispatcher(WithDM(dm)).Run(context.Background(), db.KindWeekly, ""))
	require.Len(t, dm.sent, 1)
	assert.Equal(t, insight.NotEnoughData, dm.sent[0].Text)
}

func TestRun_UnknownKindAndMoment(t *testing.T) {
	f := newFixture(t, morning)
	d := f.dispatcher()

	assert.Error(t, d.Run(context.Background(), "sms", ""))
	assert.Error(t, d.Run(context.Background(), db.KindVoice, "midnight"))
}

type fakeRunner struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (r *fakeRunner) Run(_ context.Context, kind, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	return r.err
}

func TestScheduler_ReloadSkipsInvalidCron(t *testing.T) {
	f := newFixture(t, morning)
	s := New(f.db, &fakeRunner{}, time.UTC, nil)

	s.Seed(Defaults("0 10 * * *", "30 20 * * *", ""))
	_, err := f.db.CreateSchedule("broken", db.KindPrompt, "not a cron", "")
	require.NoError(t, err)

	s.Reload()
	assert.Equal(t, 2, s.Entries())

	s.Seed(Defaults("0 9 * * *", "", ""))
	all, err := f.db.ListSchedules(false)
	require.NoError(t, err)
	assert.Len(t, all, 3, "seeding never adds to a populated table")
}

func TestScheduler_RunScheduleRecordsRun(t *testing.T) {
	f := newFixture(t, morning)
	runner := &fakeRunner{}
	s := New(f.db, runner, time.UTC, nil)

	_, err := f.db.CreateSchedule("evening-form", db.KindForm, "30 20 * * *", "")
	require.NoError(t, err)
	sched, err := f.db.GetSchedule("evening-form")
	require.NoError(t, err)

	s.runSchedule(*sched)
	assert.Equal(t, []string{db.KindForm}, runner.kinds)
	sched, _ = f.db.GetSchedule("evening-form")
	assert.NotEmpty(t, sched.LastRun)

	_, err = f.db.CreateSchedule("prompts", db.KindPrompt, "0 * * * *", "")
	require.NoError(t, err)
	runner.err = ErrOutsideHours
	skipped, _ := f.db.GetSchedule("prompts")
	s.runSchedule(*skipped)
	skipped, _ = f.db.GetSchedule("prompts")
	assert.Empty(t, skipped.LastRun, "a skipped run is not recorded")
}
