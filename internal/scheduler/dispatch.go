package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/chris/attune/internal/checkin"
	"github.com/chris/attune/internal/db"
	"github.com/chris/attune/internal/prompts"
	"github.com/chris/attune/internal/tracking"
)

// NoteDiscordUser is the notes key holding the Discord user to DM.
const NoteDiscordUser = db.InternalNotePrefix + "discord_user_id"

// ErrOutsideHours is returned when a prompt is requested outside every slot.
var ErrOutsideHours = errors.New("outside active hours (9am-8pm)")

// ErrNoChannel means neither a DM recipient nor a webhook is configured.
var ErrNoChannel = errors.New("no delivery method available (no DM user and no webhook)")

// Message is a single outgoing message. Buttons only survive DM delivery;
// Date, when set, is the day their answers are recorded against.
type Message struct {
	Text    string
	Buttons [][]prompts.Button
	Date    string
}

// DM sends direct messages. The Discord bot implements it.
type DM interface {
	SendDM(ctx context.Context, userID string, m Message) error
}

// Dispatcher builds each kind of outgoing message and delivers it.
type Dispatcher struct {
	db         *db.DB
	checkin    *checkin.Service
	prompts    *prompts.Loader
	dm         DM
	webhookURL string
	client     *http.Client
	pace       time.Duration
	name       string
	log        *zap.Logger
}

type DispatcherOption func(*Dispatcher)

// WithDM enables direct-message delivery.
func WithDM(dm DM) DispatcherOption {
	return func(d *Dispatcher) { d.dm = dm }
}

// WithWebhook enables the webhook fallback.
func WithWebhook(url string, client *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		d.webhookURL = url
		if client != nil {
			d.client = client
		}
	}
}

// WithFormPacing sets the gap between form questions. Zero sends them back
// to back.
func WithFormPacing(gap time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.pace = gap }
}

// WithUserName personalises the form sign-off.
func WithUserName(name string) DispatcherOption {
	return func(d *Dispatcher) { d.name = name }
}

func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

func NewDispatcher(database *db.DB, svc *checkin.Service, lib *prompts.Loader, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		db:      database,
		checkin: svc,
		prompts: lib,
		client:  &http.Client{Timeout: 15 * time.Second},
		pace:    2 * time.Second,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run sends the message for a schedule kind. arg is only used by voice
// moments.
func (d *Dispatcher) Run(ctx context.Context, kind, arg string) error {
	switch kind {
	case db.KindPrompt:
		return d.SendPrompt(ctx)
	case db.KindForm:
		return d.SendForm(ctx)
	case db.KindWeekly:
		return d.SendWeekly(ctx)
	case db.KindVoice:
		return d.SendVoice(ctx, arg)
	}
	return fmt.Errorf("unknown schedule kind %q", kind)
}

// SendPrompt sends the library prompt for the current time slot.
func (d *Dispatcher) SendPrompt(ctx context.Context) error {
	now := d.checkin.Store().Today()
	pick, ok := d.prompts.Library().Pick(now)
	if !ok {
		return ErrOutsideHours
	}
	d.log.Info("sending prompt",
		zap.String("slot", string(pick.Slot)),
		zap.Int("index", pick.Index+1),
		zap.Int("of", pick.Total),
	)
	return d.deliver(ctx, db.KindPrompt, Message{Text: pick.Prompt})
}

// SendForm sends the evening form one question at a time, paced so the
// questions arrive in order.
func (d *Dispatcher) SendForm(ctx context.Context) error {
	limit := rate.Inf
	if d.pace > 0 {
		limit = rate.Every(d.pace)
	}
	limiter := rate.NewLimiter(limit, 1)
	date := tracking.DateString(d.checkin.Store().Today())
	form := prompts.EveningForm(d.name)
	d.expectReplies(date, form)

	for _, q := range form {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := d.deliver(ctx, db.KindForm, Message{Text: q.Text, Buttons: q.Buttons, Date: date}); err != nil {
			return fmt.Errorf("sending form question %s: %w", q.Field, err)
		}
	}
	d.log.Info("evening form sent")
	return nil
}

// expectReplies queues the free-text questions of the form so the next DMs
// from the user are recorded as their answers.
func (d *Dispatcher) expectReplies(date string, form []prompts.Question) {
	if d.dm == nil {
		return
	}
	userID, err := d.db.GetNote(NoteDiscordUser)
	if err != nil || userID == "" {
		return
	}
	var pending []db.Pending
	for _, q := range form {
		if q.FreeText() {
			pending = append(pending, db.Pending{Field: q.Field.String(), Date: date})
		}
	}
	if err := d.db.ReplacePending(userID, pending); err != nil {
		d.log.Error("queueing form replies", zap.Error(err))
	}
}

// SendWeekly sends the weekly summary.
func (d *Dispatcher) SendWeekly(ctx context.Context) error {
	report, err := d.checkin.Weekly(ctx)
	if err != nil {
		return err
	}
	return d.deliver(ctx, db.KindWeekly, Message{Text: report.Text()})
}

// SendVoice sends a voice moment as text.
func (d *Dispatcher) SendVoice(ctx context.Context, moment string) error {
	text, err := d.prompts.Library().VoiceMoment(moment)
	if err != nil {
		return err
	}
	return d.deliver(ctx, db.KindVoice, Message{Text: text})
}

// deliver tries a DM first and falls back to the webhook. Every attempt is
// recorded; a failed delivery never touches tracking state.
func (d *Dispatcher) deliver(ctx context.Context, kind string, m Message) error {
	channel, err := d.send(ctx, m)
	if _, recErr := d.db.RecordDelivery(kind, channel, m.Text, err); recErr != nil {
		d.log.Error("recording delivery", zap.String("kind", kind), zap.Error(recErr))
	}
	if err != nil {
		d.log.Warn("delivery failed", zap.String("kind", kind), zap.String("channel", channel), zap.Error(err))
		return err
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, m Message) (string, error) {
	if d.dm != nil {
		userID, err := d.db.GetNote(NoteDiscordUser)
		if err == nil && userID != "" {
			err := d.dm.SendDM(ctx, userID, m)
			if err == nil {
				return db.ChannelDM, nil
			}
			if d.webhookURL == "" {
				return db.ChannelDM, err
			}
			d.log.Warn("DM send failed, falling back to webhook", zap.Error(err))
		}
	}
	if d.webhookURL != "" {
		return db.ChannelWebhook, postWebhook(ctx, d.client, d.webhookURL, m.Text)
	}
	return db.ChannelNone, ErrNoChannel
}
