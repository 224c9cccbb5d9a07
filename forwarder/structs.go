package forwarder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/rules"
	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/stats"
)

// Chat is one conversation as the messaging backend reports it.
type Chat struct {
	Id    int64
	Title string
	Kind  string
}

// Message is one inbound message event.
type Message struct {
	ChatId int64
	Id     int64
	Text   string
}

// Messenger is the slice of the messaging backend the forwarder needs.
// The telegram package provides the production implementation.
type Messenger interface {
	Chats(limit int32) ([]Chat, error)
	Entity(chatId int64) (Chat, error)
	Messages() <-chan Message
	SendText(chatId int64, text string) error
	Close()
}

// DialFunc connects and authorizes a Messenger.
type DialFunc func(ctx context.Context) (Messenger, error)

// FloodWaitError carries a server-imposed wait before the next attempt.
type FloodWaitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait %s: %v", e.RetryAfter, e.Err)
}

func (e *FloodWaitError) Unwrap() error {
	return e.Err
}

const (
	defaultConnectBackoff = 5 * time.Second
	defaultRelayGap       = time.Second
	defaultChatsLimit     = 1000

	// DefaultFloodWait applies when the server does not say how long to wait.
	DefaultFloodWait = 60 * time.Second
)

// Options configures a Forwarder. Zero-value durations and limits fall back
// to the defaults above.
type Options struct {
	PhoneNumber string
	OutputDir   string // chat listings land here; "" means the working directory

	Stats *stats.Store
	Rules func() *rules.Rules // current rule set; nil disables gating and reports

	ConnectBackoff time.Duration
	RelayGap       time.Duration
	ChatsLimit     int32
}

// Forwarder watches a set of source chats and relays token addresses to a
// destination chat. The names and lastSent maps are only touched from the
// menu/run goroutine; client is also read by the admin server, so it sits
// behind mu.
type Forwarder struct {
	dial DialFunc
	opts Options

	mu     sync.Mutex
	client Messenger

	names    map[int64]string
	lastSent map[int64]time.Time
}

func New(dial DialFunc, opts Options) *Forwarder {
	if opts.ConnectBackoff == 0 {
		opts.ConnectBackoff = defaultConnectBackoff
	}
	if opts.RelayGap == 0 {
		opts.RelayGap = defaultRelayGap
	}
	if opts.ChatsLimit == 0 {
		opts.ChatsLimit = defaultChatsLimit
	}
	return &Forwarder{
		dial:     dial,
		opts:     opts,
		names:    make(map[int64]string),
		lastSent: make(map[int64]time.Time),
	}
}
