package menu

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/config"
	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/forwarder"
)

// Run shows the menu once, dispatches the chosen action and returns when the
// action finishes or ctx is cancelled. The caller owns cleanup.
func Run(ctx context.Context, reader *bufio.Reader, store *config.Store, fwd *forwarder.Forwarder) {
	fmt.Println("\n=== Telegram Message Forwarder ===")
	fmt.Println("1. List All Chats")
	fmt.Println("2. Forward Messages from Multiple Sources")
	fmt.Println("3. Use Saved Configuration")
	fmt.Println("4. Exit")

	choice, err := readLine(reader, "\nEnter your choice (1-4): ")
	if err != nil {
		log.Printf("Run() %s", err)
		return
	}

	switch choice {
	case "1":
		if _, err := fwd.ListChats(ctx); err != nil {
			log.Printf("Run() %s", err)
		}
	case "2":
		sourceChatIds, destinationChatId, err := promptChatConfig(reader)
		if err != nil {
			log.Printf("Run() %s", err)
			return
		}
		store.SaveChatConfig(sourceChatIds, destinationChatId)
		if err := fwd.Run(ctx, sourceChatIds, destinationChatId); err != nil {
			log.Printf("Run() %s", err)
		}
	case "3":
		sourceChatIds, destinationChatId := store.LoadChatConfig()
		if len(sourceChatIds) == 0 || destinationChatId == 0 {
			log.Print("No saved configuration found")
			return
		}
		log.Printf("Using saved configuration: forwarding from %d sources to destination %d",
			len(sourceChatIds), destinationChatId)
		if err := fwd.Run(ctx, sourceChatIds, destinationChatId); err != nil {
			log.Printf("Run() %s", err)
		}
	case "4":
		log.Print("Exiting...")
	default:
		log.Print("Invalid choice")
	}
}

func promptChatConfig(reader *bufio.Reader) ([]int64, int64, error) {
	count, err := readInt(reader, "Enter the number of source chats to monitor: ")
	if err != nil {
		return nil, 0, err
	}
	if count < 1 {
		return nil, 0, fmt.Errorf("invalid source chat count %d", count)
	}
	var sourceChatIds []int64
	for i := 0; i < count; i++ {
		chatId, err := readInt64(reader, fmt.Sprintf("Enter source chat ID #%d: ", i+1))
		if err != nil {
			return nil, 0, err
		}
		sourceChatIds = append(sourceChatIds, chatId)
	}
	destinationChatId, err := readInt64(reader, "Enter the destination chat ID: ")
	if err != nil {
		return nil, 0, err
	}
	return sourceChatIds, destinationChatId, nil
}

func readLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readInt(reader *bufio.Reader, prompt string) (int, error) {
	line, err := readLine(reader, prompt)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", line)
	}
	return n, nil
}

func readInt64(reader *bufio.Reader, prompt string) (int64, error) {
	line, err := readLine(reader, prompt)
	if err != nil {
		return 0, err
	}
	chatId, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ID %q", line)
	}
	return chatId, nil
}
