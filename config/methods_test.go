package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), FileName))
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	s := newTestStore(t)
	if got, want := s.LoadCredentials(), (Credentials{}); got != want {
		t.Fatalf("LoadCredentials() = %+v, want %+v", got, want)
	}
}

func TestSaveLoadCredentials(t *testing.T) {
	s := newTestStore(t)
	want := Credentials{ApiId: "12345", ApiHash: "0123456789abcdef", PhoneNumber: "+15551234567"}
	s.SaveCredentials(want)
	if got := s.LoadCredentials(); got != want {
		t.Fatalf("LoadCredentials() = %+v, want %+v", got, want)
	}
}

func TestSaveCredentialsRestrictsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	s := newTestStore(t)
	s.SaveCredentials(Credentials{ApiId: "1", ApiHash: "h", PhoneNumber: "+100"})
	info, err := os.Stat(s.path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if got, want := info.Mode().Perm(), os.FileMode(0600); got != want {
		t.Fatalf("file mode = %v, want %v", got, want)
	}
}

func TestChatConfigRoundTrip(t *testing.T) {
	s := newTestStore(t)
	s.SaveChatConfig([]int64{-1001, 42, 7}, -2002)
	ids, dst := s.LoadChatConfig()
	if diff := cmp.Diff([]int64{-1001, 42, 7}, ids); diff != "" {
		t.Fatalf("LoadChatConfig() source ids mismatch (-want +got):\n%s", diff)
	}
	if got, want := dst, int64(-2002); got != want {
		t.Fatalf("LoadChatConfig() destination = %d, want %d", got, want)
	}
}

func TestSaveChatConfigPreservesCredentials(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.path, []byte(`{"api_id":"1","api_hash":"h","phone_number":"+100"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	s.SaveChatConfig([]int64{11, 22}, 99)
	if got, want := s.LoadCredentials(), (Credentials{ApiId: "1", ApiHash: "h", PhoneNumber: "+100"}); got != want {
		t.Fatalf("LoadCredentials() = %+v, want %+v", got, want)
	}
	ids, dst := s.LoadChatConfig()
	if diff := cmp.Diff([]int64{11, 22}, ids); diff != "" {
		t.Fatalf("LoadChatConfig() source ids mismatch (-want +got):\n%s", diff)
	}
	if got, want := dst, int64(99); got != want {
		t.Fatalf("LoadChatConfig() destination = %d, want %d", got, want)
	}
}

func TestSaveChatConfigStampsLastUpdated(t *testing.T) {
	s := newTestStore(t)
	s.SaveChatConfig([]int64{1}, 2)
	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var c ChatConfig
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, err := time.Parse(time.RFC3339, c.LastUpdated); err != nil {
		t.Fatalf("last_updated %q is not RFC 3339: %v", c.LastUpdated, err)
	}
}

func TestSaveChatConfigKeepsUnrelatedKeys(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.path, []byte(`{"note":"keep me"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	s.SaveChatConfig([]int64{5}, 6)
	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got, want := string(doc["note"]), `"keep me"`; got != want {
		t.Fatalf("note = %s, want %s", got, want)
	}
}

func TestSaveChatConfigLeavesBrokenFileAlone(t *testing.T) {
	s := newTestStore(t)
	const broken = `{not json`
	if err := os.WriteFile(s.path, []byte(broken), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	s.SaveChatConfig([]int64{1}, 2)
	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := string(data); got != broken {
		t.Fatalf("file content = %q, want untouched %q", got, broken)
	}
}

func TestLoadChatConfigMissingKeys(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.path, []byte(`{"api_id":"1"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	ids, dst := s.LoadChatConfig()
	if ids != nil || dst != 0 {
		t.Fatalf("LoadChatConfig() = %v, %d, want nil, 0", ids, dst)
	}
}
