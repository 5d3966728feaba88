package registry

import (
	"encoding/json"
	"fmt"
)

// Kind tags every message pushed to clients.
type Kind string

const (
	KindRedirect     Kind = "redirect"
	KindBackground   Kind = "background"
	KindJournalState Kind = "journal_state"
	KindLibrary      Kind = "library"
)

// Message is the envelope pushed to connections. Only the fields belonging
// to Kind are encoded.
type Message struct {
	Kind    Kind
	URL     string
	Path    string
	Visible bool
	Files   []string
}

// Redirect tells viewers to navigate to url.
func Redirect(url string) Message { return Message{Kind: KindRedirect, URL: url} }

// Background announces a new background image path. An empty path clears it.
func Background(path string) Message { return Message{Kind: KindBackground, Path: path} }

// JournalState announces whether the journal button is visible.
func JournalState(visible bool) Message { return Message{Kind: KindJournalState, Visible: visible} }

// Library announces the refreshed list of selectable files.
func Library(files []string) Message { return Message{Kind: KindLibrary, Files: files} }

// MarshalJSON encodes m as {"kind": ..., <kind-specific fields>}.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case KindRedirect:
		return json.Marshal(struct {
			Kind Kind   `json:"kind"`
			URL  string `json:"url"`
		}{m.Kind, m.URL})
	case KindBackground:
		return json.Marshal(struct {
			Kind Kind   `json:"kind"`
			Path string `json:"path"`
		}{m.Kind, m.Path})
	case KindJournalState:
		return json.Marshal(struct {
			Kind    Kind `json:"kind"`
			Visible bool `json:"visible"`
		}{m.Kind, m.Visible})
	case KindLibrary:
		files := m.Files
		if files == nil {
			files = []string{}
		}
		return json.Marshal(struct {
			Kind  Kind     `json:"kind"`
			Files []string `json:"files"`
		}{m.Kind, files})
	}
	return nil, fmt.Errorf("registry: unknown message kind %q", m.Kind)
}
