package db

// Schedule kinds. Each maps to one kind of outgoing message.
const (
	KindPrompt = "prompt" // time-slot prompt from the library
	KindForm   = "form"   // evening reflection form
	KindWeekly = "weekly" // weekly summary
	KindVoice  = "voice"  // voice moment, sent as text; Arg is the moment name
)

// Kinds lists every schedule kind.
func Kinds() []string {
	return []string{KindPrompt, KindForm, KindWeekly, KindVoice}
}

type Schedule struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	CronExpr  string `json:"cron_expr"`
	Arg       string `json:"arg,omitempty"`
	Enabled   bool   `json:"enabled"`
	LastRun   string `json:"last_run,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Delivery channels and statuses.
const (
	ChannelDM      = "dm"
	ChannelWebhook = "webhook"
	ChannelNone    = "none"

	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Delivery is one attempt to send a message to the user.
type Delivery struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Channel   string `json:"channel"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Pending is a free-text form answer the user has been asked for but has not
// sent yet.
type Pending struct {
	Field string `json:"field"`
	Date  string `json:"date"`
}

// Note is a small piece of free-form memory, such as a standing intention.
type Note struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at"`
}
