package config

const FileName = "telegram_config.json"

// ApiId stays a string: it is stored exactly as entered and
// converted only when the tdlib parameters are built.
type Credentials struct {
	ApiId       string `json:"api_id"`
	ApiHash     string `json:"api_hash"`
	PhoneNumber string `json:"phone_number"`
}

type ChatConfig struct {
	SourceChatIds     []int64 `json:"source_chat_ids"`
	DestinationChatId int64   `json:"destination_chat_id"`
	LastUpdated       string  `json:"last_updated"`
}

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (c Credentials) Complete() bool {
	return c.ApiId != "" && c.ApiHash != "" && c.PhoneNumber != ""
}
