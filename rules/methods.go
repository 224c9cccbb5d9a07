package rules

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"time"

	"github.com/ghodss/yaml"
	"github.com/radovskyb/watcher"
)

const defaultReportTemplate = "Daily report: relayed %d tokens out of %d messages seen."

func Load() (*Rules, error) {
	return LoadFile(FileName)
}

func LoadFile(path string) (*Rules, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jsonData, err := yaml.YAMLToJSON(yamlData)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	rules := &Rules{}
	if err := json.Unmarshal(jsonData, rules); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if err := rules.compile(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	if rules.Reports.Template == "" {
		rules.Reports.Template = defaultReportTemplate
	}
	return rules, nil
}

// A bad regexp rejects the whole load, so a running forwarder keeps its
// previous rule set instead of picking up a half-working one.
func (r *Rules) compile() error {
	for chatId, filter := range r.Filters {
		if filter == nil {
			continue
		}
		if filter.Exclude != "" {
			re, err := regexp.Compile("(?i)" + filter.Exclude)
			if err != nil {
				return fmt.Errorf("exclude for chat %d: %w", chatId, err)
			}
			filter.exclude = re
		}
		if filter.Include != "" {
			re, err := regexp.Compile("(?i)" + filter.Include)
			if err != nil {
				return fmt.Errorf("include for chat %d: %w", chatId, err)
			}
			filter.include = re
		}
	}
	return nil
}

// FilterFor returns nil when the chat has no configured filter;
// a nil Filter allows everything.
func (r *Rules) FilterFor(chatId int64) *Filter {
	if r == nil {
		return nil
	}
	return r.Filters[chatId]
}

func (f *Filter) Allows(text string) bool {
	if f == nil {
		return true
	}
	if f.exclude != nil && f.exclude.FindString(text) != "" {
		return false
	}
	if f.include != nil {
		return f.include.FindString(text) != ""
	}
	return true
}

// Watch runs fn once up front and then again on every write to the rules
// file. It blocks; run it in its own goroutine.
func Watch(fn func()) {
	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create)
	go func() {
		for {
			select {
			case <-w.Event:
				fn()
			case err := <-w.Error:
				log.Printf("Watch() %s", err)
			case <-w.Closed:
				return
			}
		}
	}()
	if err := w.Add(FileName); err != nil {
		log.Printf("Watch() %s", err)
		return
	}
	fn()
	if err := w.Start(time.Second); err != nil {
		log.Printf("Watch() %s", err)
	}
}
