package telegram

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/term"
)

// CredentialPrompter answers the interactive questions TDLib asks while
// authorizing: the login code sent to the account and, when two-step
// verification is on, the account password.
type CredentialPrompter interface {
	LoginCode(phoneNumber string) string
	Password(phoneNumber string) string
}

// ConsolePrompter reads answers from the terminal. The password is read with
// echo off when stdin is a real terminal.
type ConsolePrompter struct {
	Reader *bufio.Reader
}

func (p *ConsolePrompter) LoginCode(phoneNumber string) string {
	fmt.Printf("Enter code for %s: ", phoneNumber)
	line, err := p.Reader.ReadString('\n')
	if err != nil {
		log.Printf("LoginCode() %s", err)
		return ""
	}
	return strings.TrimSpace(line)
}

func (p *ConsolePrompter) Password(phoneNumber string) string {
	fmt.Printf("Enter password for %s: ", phoneNumber)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			log.Printf("Password() %s", err)
			return ""
		}
		return strings.TrimSpace(string(password))
	}
	line, err := p.Reader.ReadString('\n')
	if err != nil {
		log.Printf("Password() %s", err)
		return ""
	}
	return strings.TrimSpace(line)
}
