package forwarder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"
)

// ErrNotConnected is returned by operations that need a live connection but
// refuse to dial one.
var ErrNotConnected = errors.New("not connected to Telegram")

func (f *Forwarder) messenger() Messenger {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client
}

func (f *Forwarder) setMessenger(m Messenger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.client = m
}

// EnsureConnected dials the backend unless a connection is already up. It
// returns false after a failed attempt and the caller decides whether to try
// again: a flood wait sleeps for the duration the server demanded, any other
// failure for a fixed backoff, both cut short when ctx is cancelled.
func (f *Forwarder) EnsureConnected(ctx context.Context) bool {
	if f.messenger() != nil {
		return true
	}
	log.Print("Connecting to Telegram...")
	m, err := f.dial(ctx)
	if err == nil {
		f.setMessenger(m)
		log.Print("Connected to Telegram")
		return true
	}
	var flood *FloodWaitError
	if errors.As(err, &flood) {
		wait := flood.RetryAfter
		if wait <= 0 {
			wait = DefaultFloodWait
		}
		log.Printf("EnsureConnected() flood wait %s: %s", wait, err)
		sleep(ctx, wait)
		return false
	}
	log.Printf("EnsureConnected() %s", err)
	sleep(ctx, f.opts.ConnectBackoff)
	return false
}

// ChatName resolves a display name for chatId, remembering the answer for the
// life of the process. A failed lookup is remembered too, as the synthetic
// "Chat <id>" label, so each chat costs at most one round-trip.
func (f *Forwarder) ChatName(chatId int64) string {
	if name, ok := f.names[chatId]; ok {
		return name
	}
	name := fmt.Sprintf("Chat %d", chatId)
	m := f.messenger()
	if m == nil {
		return name
	}
	chat, err := m.Entity(chatId)
	if err != nil {
		log.Printf("ChatName() %d %s", chatId, err)
	} else if chat.Title != "" {
		name = chat.Title
	}
	f.names[chatId] = name
	return name
}

// ListChats writes every visible conversation to a timestamped text file in
// the output directory and returns how many lines it wrote.
func (f *Forwarder) ListChats(ctx context.Context) (int, error) {
	for !f.EnsureConnected(ctx) {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
	}
	chats, err := f.messenger().Chats(f.opts.ChatsLimit)
	if err != nil {
		return 0, err
	}
	name := fmt.Sprintf("chats_of_%s_%s.txt", f.opts.PhoneNumber, time.Now().Format("20060102_150405"))
	path := filepath.Join(f.opts.OutputDir, name)
	var sb strings.Builder
	for _, chat := range chats {
		line := fmt.Sprintf("Chat ID: %d, Title: %s, Type: %s", chat.Id, chat.Title, chat.Kind)
		log.Print(line)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return 0, err
	}
	log.Printf("Saved %d chats to %s", len(chats), path)
	return len(chats), nil
}

func (f *Forwarder) Connected() bool {
	return f.messenger() != nil
}

// Chats returns up to limit conversations. It never dials, so the admin
// server cannot trip an interactive login.
func (f *Forwarder) Chats(limit int32) ([]Chat, error) {
	m := f.messenger()
	if m == nil {
		return nil, ErrNotConnected
	}
	return m.Chats(limit)
}

// Run relays token addresses from the source chats to destChatId until ctx is
// cancelled. A cancelled context is a clean shutdown and returns nil.
func (f *Forwarder) Run(ctx context.Context, sourceChatIds []int64, destChatId int64) error {
	for !f.EnsureConnected(ctx) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	sources := make(map[int64]bool, len(sourceChatIds))
	for _, chatId := range sourceChatIds {
		sources[chatId] = true
		log.Printf("Monitoring: %s (%d)", f.ChatName(chatId), chatId)
	}
	log.Printf("Forwarding to: %s (%d)", f.ChatName(destChatId), destChatId)

	messages := f.messenger().Messages()
	go f.runReports(ctx, destChatId)
	log.Print("Token forwarding is active. Press Ctrl+C to stop.")

	for {
		select {
		case <-ctx.Done():
			log.Print("Stopping token forwarding")
			return nil
		case message, ok := <-messages:
			if !ok {
				return errors.New("message stream closed")
			}
			if !sources[message.ChatId] {
				continue
			}
			f.handleMessage(ctx, message, destChatId)
		}
	}
}

// handleMessage scans one inbound message and relays the first token address
// it carries. Nothing here may take the run loop down: errors are logged and
// panics recovered.
func (f *Forwarder) handleMessage(ctx context.Context, message Message, destChatId int64) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("handleMessage() recovered: %v\n%s", r, debug.Stack())
		}
	}()
	if f.opts.Stats != nil {
		f.opts.Stats.IncrementScanned(destChatId)
	}
	if message.Text == "" {
		return
	}
	if f.opts.Rules != nil {
		if ruleSet := f.opts.Rules(); !ruleSet.FilterFor(message.ChatId).Allows(message.Text) {
			log.Printf("Message %d from %s dropped by rules", message.Id, f.ChatName(message.ChatId))
			return
		}
	}
	token := ExtractToken(message.Text)
	if token == "" {
		return
	}
	log.Printf("Found token in %s: %s", f.ChatName(message.ChatId), token)
	f.pace(ctx, destChatId)
	if err := f.messenger().SendText(destChatId, token); err != nil {
		log.Printf("handleMessage() send to %d: %s", destChatId, err)
		return
	}
	if f.opts.Stats != nil {
		f.opts.Stats.IncrementRelayed(destChatId)
	}
	log.Printf("Forwarded token to %s", f.ChatName(destChatId))
}

// pace keeps a minimum gap between consecutive sends to one destination so a
// burst of tokens does not trip the server rate limit.
func (f *Forwarder) pace(ctx context.Context, chatId int64) {
	if gap := f.opts.RelayGap - time.Since(f.lastSent[chatId]); gap > 0 {
		sleep(ctx, gap)
	}
	f.lastSent[chatId] = time.Now()
}

// runReports posts yesterday's totals to the configured report chats once a
// day, just past UTC midnight.
func (f *Forwarder) runReports(ctx context.Context, destChatId int64) {
	if f.opts.Rules == nil || f.opts.Stats == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			utc := time.Now().UTC()
			if utc.Hour() != 0 || utc.Minute() != 0 {
				continue
			}
			f.sendReports(utc.Add(-time.Minute), destChatId)
		}
	}
}

func (f *Forwarder) sendReports(day time.Time, destChatId int64) {
	ruleSet := f.opts.Rules()
	if ruleSet == nil || len(ruleSet.Reports.For) == 0 {
		return
	}
	m := f.messenger()
	if m == nil {
		return
	}
	relayed := f.opts.Stats.RelayedOn(destChatId, day)
	scanned := f.opts.Stats.ScannedOn(destChatId, day)
	text := fmt.Sprintf(ruleSet.Reports.Template, relayed, scanned)
	for _, chatId := range ruleSet.Reports.For {
		if err := m.SendText(chatId, text); err != nil {
			log.Printf("sendReports() to %d: %s", chatId, err)
		}
	}
}

// Close disconnects from the backend. Safe to call more than once.
func (f *Forwarder) Close() {
	f.mu.Lock()
	m := f.client
	f.client = nil
	f.mu.Unlock()
	if m != nil {
		m.Close()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
