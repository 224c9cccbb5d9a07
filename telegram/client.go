package telegram

import (
	"container/list"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/zelenin/go-tdlib/client"

	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/forwarder"
)

// Options carries everything Connect needs to bring a session up.
type Options struct {
	ApiId       string
	ApiHash     string
	PhoneNumber string
	DataDir     string
	Prompter    CredentialPrompter
}

// Telegram adapts the TDLib client to the forwarder.Messenger interface.
type Telegram struct {
	tdlibClient *client.Client
	listener    *client.Listener
	messages    chan forwarder.Message

	mu    sync.Mutex
	queue *list.List
	done  bool
	wake  chan struct{}
}

// Connect starts TDLib, drives its authorization state machine to completion
// and returns a live Messenger. Interactive answers (login code, two-step
// password) come from opts.Prompter; the phone number is answered from opts.
func Connect(ctx context.Context, opts Options) (forwarder.Messenger, error) {
	apiId, err := strconv.ParseInt(opts.ApiId, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("api_id %q is not numeric: %w", opts.ApiId, err)
	}
	dbDir := filepath.Join(opts.DataDir, "db")
	filesDir := filepath.Join(opts.DataDir, "files")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		return nil, err
	}

	if _, err := client.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{
		NewVerbosityLevel: 1,
	}); err != nil {
		log.Printf("SetLogVerbosityLevel() %s", err)
	}

	authorizer := client.ClientAuthorizer(&client.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   dbDir,
		FilesDirectory:      filesDir,
		UseFileDatabase:     false,
		UseChatInfoDatabase: false,
		UseMessageDatabase:  true,
		UseSecretChats:      false,
		ApiId:               int32(apiId),
		ApiHash:             opts.ApiHash,
		SystemLanguageCode:  "en",
		DeviceModel:         "Server",
		SystemVersion:       "1.0.0",
		ApplicationVersion:  "1.0.0",
	})

	go func() {
		for {
			state, ok := <-authorizer.State
			if !ok {
				return
			}
			switch state.AuthorizationStateType() {
			case client.TypeAuthorizationStateWaitPhoneNumber:
				authorizer.PhoneNumber <- opts.PhoneNumber
			case client.TypeAuthorizationStateWaitCode:
				authorizer.Code <- opts.Prompter.LoginCode(opts.PhoneNumber)
			case client.TypeAuthorizationStateWaitPassword:
				authorizer.Password <- opts.Prompter.Password(opts.PhoneNumber)
			case client.TypeAuthorizationStateReady:
				return
			}
		}
	}()

	type clientResult struct {
		tdlibClient *client.Client
		err         error
	}
	// NewClient blocks until the state machine reaches Ready. A cancelled
	// wait leaves TDLib to wind down on its own; the process is exiting.
	resultCh := make(chan clientResult, 1)
	go func() {
		tdlibClient, err := client.NewClient(authorizer)
		resultCh <- clientResult{tdlibClient, err}
	}()

	var tdlibClient *client.Client
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultCh:
		if result.err != nil {
			return nil, classifyError(result.err)
		}
		tdlibClient = result.tdlibClient
	}

	if optionValue, err := tdlibClient.GetOption(&client.GetOptionRequest{
		Name: "version",
	}); err != nil {
		log.Printf("GetOption() %s", err)
	} else if version, ok := optionValue.(*client.OptionValueString); ok {
		log.Printf("TDLib version: %s", version.Value)
	}

	me, err := tdlibClient.GetMe()
	if err != nil {
		tdlibClient.Close()
		return nil, classifyError(err)
	}
	log.Printf("Me: %s [%d]", me.FirstName, me.Id)

	t := &Telegram{
		tdlibClient: tdlibClient,
		listener:    tdlibClient.GetListener(),
		messages:    make(chan forwarder.Message),
		queue:       list.New(),
		wake:        make(chan struct{}, 1),
	}
	go t.pump()
	go t.feed()
	return t, nil
}

// pump moves inbound messages off the TDLib update stream onto an unbounded
// queue, so a slow consumer can never back up the TDLib receive loop.
// Outgoing messages are skipped: a relayed token must not feed back in.
func (t *Telegram) pump() {
	for update := range t.listener.Updates {
		updateNewMessage, ok := update.(*client.UpdateNewMessage)
		if !ok {
			continue
		}
		src := updateNewMessage.Message
		if src.IsOutgoing {
			continue
		}
		t.mu.Lock()
		t.queue.PushBack(forwarder.Message{
			ChatId: src.ChatId,
			Id:     src.Id,
			Text:   messageText(src.Content),
		})
		t.mu.Unlock()
		t.signal()
	}
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()
	t.signal()
}

func (t *Telegram) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// feed drains the queue into the messages channel in arrival order and
// closes it once the listener is gone and the queue is empty.
func (t *Telegram) feed() {
	defer close(t.messages)
	for {
		t.mu.Lock()
		e := t.queue.Front()
		if e != nil {
			t.queue.Remove(e)
		}
		done := t.done
		t.mu.Unlock()
		if e != nil {
			t.messages <- e.Value.(forwarder.Message)
			continue
		}
		if done {
			return
		}
		<-t.wake
	}
}

func (t *Telegram) Chats(limit int32) ([]forwarder.Chat, error) {
	chats, err := t.tdlibClient.GetChats(&client.GetChatsRequest{
		ChatList: &client.ChatListMain{},
		Limit:    limit,
	})
	if err != nil {
		return nil, classifyError(err)
	}
	result := make([]forwarder.Chat, 0, len(chats.ChatIds))
	for _, chatId := range chats.ChatIds {
		chat, err := t.Entity(chatId)
		if err != nil {
			log.Printf("Chats() %d %s", chatId, err)
			continue
		}
		result = append(result, chat)
	}
	return result, nil
}

func (t *Telegram) Entity(chatId int64) (forwarder.Chat, error) {
	chat, err := t.tdlibClient.GetChat(&client.GetChatRequest{ChatId: chatId})
	if err != nil {
		return forwarder.Chat{}, classifyError(err)
	}
	return forwarder.Chat{Id: chat.Id, Title: chat.Title, Kind: chatKind(chat.Type)}, nil
}

func (t *Telegram) Messages() <-chan forwarder.Message {
	return t.messages
}

func (t *Telegram) SendText(chatId int64, text string) error {
	_, err := t.tdlibClient.SendMessage(&client.SendMessageRequest{
		ChatId: chatId,
		InputMessageContent: &client.InputMessageText{
			Text:       &client.FormattedText{Text: text},
			ClearDraft: true,
		},
	})
	return classifyError(err)
}

func (t *Telegram) Close() {
	t.listener.Close()
	t.tdlibClient.Close()
}

func chatKind(chatType client.ChatType) string {
	switch ct := chatType.(type) {
	case *client.ChatTypePrivate:
		return "User"
	case *client.ChatTypeBasicGroup:
		return "Group"
	case *client.ChatTypeSupergroup:
		if ct.IsChannel {
			return "Channel"
		}
		return "Supergroup"
	case *client.ChatTypeSecret:
		return "Secret"
	}
	return "Unknown"
}

// messageText pulls the text or the media caption out of a message content.
func messageText(content client.MessageContent) string {
	switch c := content.(type) {
	case *client.MessageText:
		return formattedText(c.Text)
	case *client.MessagePhoto:
		return formattedText(c.Caption)
	case *client.MessageVideo:
		return formattedText(c.Caption)
	case *client.MessageDocument:
		return formattedText(c.Caption)
	case *client.MessageAnimation:
		return formattedText(c.Caption)
	case *client.MessageAudio:
		return formattedText(c.Caption)
	case *client.MessageVoiceNote:
		return formattedText(c.Caption)
	}
	return ""
}

func formattedText(f *client.FormattedText) string {
	if f == nil {
		return ""
	}
	return f.Text
}
