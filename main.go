package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/config"
	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/forwarder"
	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/menu"
	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/rules"
	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/server"
	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/stats"
	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/telegram"
)

func main() {
	log.SetFlags(log.LUTC | log.Ldate | log.Ltime | log.Lshortfile)

	path := filepath.Join(".", ".tdata")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		os.Mkdir(path, os.ModePerm)
	}

	logFile, err := os.OpenFile(filepath.Join(path, "forwarder.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal(err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	log.Print("Starting Telegram Forwarder")

	if err := godotenv.Load(); err != nil {
		log.Printf("godotenv.Load() %s", err)
	}

	reader := bufio.NewReader(os.Stdin)
	store := config.NewStore(config.FileName)
	credentials := loadCredentials(store, reader)

	var st *stats.Store
	{
		path := filepath.Join(path, "badger")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			os.Mkdir(path, os.ModePerm)
		}
		st, err = stats.Open(path)
		if err != nil {
			log.Fatal(err)
		}
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C: the first signal asks every loop to wind down, the
	// second one gives up waiting.
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		log.Print("Stop...")
		cancel()
		<-ch
		log.Print("Forced exit")
		os.Exit(1)
	}()

	go st.RunGC(ctx)

	var ruleSet atomic.Pointer[rules.Rules]
	if _, err := os.Stat(rules.FileName); err == nil {
		go rules.Watch(func() {
			tmp, err := rules.Load()
			if err != nil {
				log.Printf("Can't initialise rules: %s", err)
				return
			}
			ruleSet.Store(tmp)
		})
	}

	fwd := forwarder.New(func(ctx context.Context) (forwarder.Messenger, error) {
		return telegram.Connect(ctx, telegram.Options{
			ApiId:       credentials.ApiId,
			ApiHash:     credentials.ApiHash,
			PhoneNumber: credentials.PhoneNumber,
			DataDir:     path,
			Prompter:    &telegram.ConsolePrompter{Reader: reader},
		})
	}, forwarder.Options{
		PhoneNumber: credentials.PhoneNumber,
		Stats:       st,
		Rules:       ruleSet.Load,
	})

	if port := os.Getenv("FORWARDER_PORT"); port != "" {
		go server.Start(port, fwd)
	}

	menu.Run(ctx, reader, store, fwd)

	if fwd.Connected() {
		fwd.Close()
		log.Print("Disconnected from Telegram")
	}
}

// loadCredentials takes API credentials from the config file, falls back to
// the environment, and finally prompts. Credentials completed by prompting
// are saved for the next run; env-only credentials stay out of the file.
func loadCredentials(store *config.Store, reader *bufio.Reader) config.Credentials {
	credentials := store.LoadCredentials()
	if credentials.Complete() {
		return credentials
	}
	if credentials.ApiId == "" {
		credentials.ApiId = os.Getenv("FORWARDER_API_ID")
	}
	if credentials.ApiHash == "" {
		credentials.ApiHash = os.Getenv("FORWARDER_API_HASH")
	}
	if credentials.PhoneNumber == "" {
		credentials.PhoneNumber = os.Getenv("FORWARDER_PHONENUMBER")
	}
	if credentials.Complete() {
		return credentials
	}
	for credentials.ApiId == "" {
		credentials.ApiId = promptValue(reader, "Enter your API ID: ")
		if _, err := strconv.Atoi(credentials.ApiId); err != nil {
			log.Print("API ID must be a number")
			credentials.ApiId = ""
		}
	}
	for credentials.ApiHash == "" {
		credentials.ApiHash = promptValue(reader, "Enter your API Hash: ")
	}
	for credentials.PhoneNumber == "" {
		credentials.PhoneNumber = promptValue(reader, "Enter your phone number (with country code): ")
	}
	store.SaveCredentials(credentials)
	return credentials
}

func promptValue(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("promptValue() %s", err)
	}
	return strings.TrimSpace(line)
}
