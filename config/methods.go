package config

import (
	"encoding/json"
	"log"
	"os"
	"runtime"
	"time"
)

// LoadCredentials never fails: a missing or broken file reads as empty
// credentials, so the caller falls through to prompting.
func (s *Store) LoadCredentials() Credentials {
	var c Credentials
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("LoadCredentials() %s", err)
		}
		return c
	}
	if err := json.Unmarshal(data, &c); err != nil {
		log.Printf("LoadCredentials() %s", err)
		return Credentials{}
	}
	return c
}

func (s *Store) SaveCredentials(c Credentials) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		log.Printf("SaveCredentials() %s", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		log.Printf("SaveCredentials() %s", err)
		return
	}
	// WriteFile applies the mode only on create; an existing file keeps its old bits.
	if runtime.GOOS != "windows" {
		if err := os.Chmod(s.path, 0600); err != nil {
			log.Printf("SaveCredentials() chmod: %s", err)
		}
	}
	log.Printf("Credentials saved to %s", s.path)
}

// SaveChatConfig merges the forwarding topology into the existing file so
// stored credentials (and any unrelated keys) survive the rewrite. An existing
// file that cannot be parsed is left untouched.
func (s *Store) SaveChatConfig(sourceChatIds []int64, destinationChatId int64) {
	doc := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path)
	if err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			log.Printf("SaveChatConfig() %s", err)
			return
		}
	} else if !os.IsNotExist(err) {
		log.Printf("SaveChatConfig() %s", err)
		return
	}
	doc["source_chat_ids"] = rawJson(sourceChatIds)
	doc["destination_chat_id"] = rawJson(destinationChatId)
	doc["last_updated"] = rawJson(time.Now().Format(time.RFC3339))
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Printf("SaveChatConfig() %s", err)
		return
	}
	if err := os.WriteFile(s.path, out, 0600); err != nil {
		log.Printf("SaveChatConfig() %s", err)
		return
	}
	log.Printf("Chat configuration saved: %d sources -> %d", len(sourceChatIds), destinationChatId)
}

func (s *Store) LoadChatConfig() ([]int64, int64) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("LoadChatConfig() %s", err)
		}
		return nil, 0
	}
	var c ChatConfig
	if err := json.Unmarshal(data, &c); err != nil {
		log.Printf("LoadChatConfig() %s", err)
		return nil, 0
	}
	return c.SourceChatIds, c.DestinationChatId
}

func rawJson(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("rawJson() %s", err)
	}
	return data
}
