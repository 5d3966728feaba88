package selection

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/cueboard/cueboard/server/internal/registry"
)

const (
	// ClearSentinel is the identifier the manager sends to clear the
	// selection ("None" button). It is never looked up in the library.
	ClearSentinel = "undefined"

	// HomeURL is where viewers are sent when the selection is cleared.
	HomeURL = "/"

	// DisplayPrefix prefixes every generated display URL.
	DisplayPrefix = "/display/"
)

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("selection: not found")

// NotFoundError reports an identifier that is not a listed resource.
type NotFoundError struct {
	// Identifier is the decoded identifier as requested.
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("File '%s' not found", e.Identifier)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Resolver validates identifiers against the file listing.
type Resolver interface {
	Resolve(id string) (string, bool)
}

// Result classifies the outcome of SelectResource.
type Result string

const (
	ResultSelected Result = "selected"
	ResultCleared  Result = "cleared"
	ResultNotFound Result = "not_found"
)

// Confirmation describes an applied change.
type Confirmation struct {
	Resource   string `json:"resource,omitempty"`
	DisplayURL string `json:"display_url,omitempty"`
	Message    string `json:"message"`
}

// Observer is told about every SelectResource outcome after the broadcast.
type Observer interface {
	Selection(res Result, c Confirmation)
}

// Controller validates operator requests, applies them to the registry's
// shared state and triggers the matching broadcast.
type Controller struct {
	reg       *registry.Registry
	lib       Resolver
	observers []Observer
	newToken  func() string // injectable for deterministic tests
}

// New creates a Controller that mutates reg and resolves identifiers with lib.
func New(reg *registry.Registry, lib Resolver, observers ...Observer) *Controller {
	return &Controller{
		reg:       reg,
		lib:       lib,
		observers: observers,
		newToken:  uuid.NewString,
	}
}

// SelectResource makes id the current resource and redirects all viewers to
// a fresh display URL. ClearSentinel clears the selection and sends viewers
// home. An unknown id returns a *NotFoundError and changes nothing.
func (c *Controller) SelectResource(id string) (Confirmation, error) {
	if id == ClearSentinel {
		c.reg.Update(func(s *registry.State) registry.Message {
			s.Resource = ""
			s.DisplayURL = ""
			return registry.Redirect(HomeURL)
		})
		conf := Confirmation{DisplayURL: HomeURL, Message: "Redirecting to home page"}
		slog.Info("selection: cleared")
		c.notify(ResultCleared, conf)
		return conf, nil
	}

	decoded := decode(id)
	name, ok := c.lib.Resolve(decoded)
	if !ok {
		err := &NotFoundError{Identifier: decoded}
		slog.Warn("selection: unknown file requested", "file", decoded)
		c.notify(ResultNotFound, Confirmation{Resource: decoded, Message: err.Error()})
		return Confirmation{}, err
	}

	displayURL := DisplayPrefix + c.newToken()
	c.reg.Update(func(s *registry.State) registry.Message {
		s.Resource = name
		s.DisplayURL = displayURL
		return registry.Redirect(displayURL)
	})

	conf := Confirmation{
		Resource:   name,
		DisplayURL: displayURL,
		Message:    fmt.Sprintf("File '%s' selected. All clients updated.", name),
	}
	slog.Info("selection: file selected", "file", name, "url", displayURL)
	c.notify(ResultSelected, conf)
	return conf, nil
}

// SetBackground sets the background shown by viewers and broadcasts it. An
// empty path clears the background; any other path must resolve.
func (c *Controller) SetBackground(path string) (Confirmation, error) {
	name := ""
	if decoded := decode(path); decoded != "" {
		var ok bool
		if name, ok = c.lib.Resolve(decoded); !ok {
			return Confirmation{}, &NotFoundError{Identifier: decoded}
		}
	}

	c.reg.Update(func(s *registry.State) registry.Message {
		s.Background = name
		return registry.Background(name)
	})

	slog.Info("selection: background set", "path", name)
	if name == "" {
		return Confirmation{Message: "Background cleared"}, nil
	}
	return Confirmation{Resource: name, Message: fmt.Sprintf("Background set to '%s'", name)}, nil
}

// ToggleJournalVisibility flips the journal button flag, broadcasts the new
// value and returns it.
func (c *Controller) ToggleJournalVisibility() bool {
	st := c.reg.Update(func(s *registry.State) registry.Message {
		s.JournalVisible = !s.JournalVisible
		return registry.JournalState(s.JournalVisible)
	})
	slog.Info("selection: journal visibility toggled", "visible", st.JournalVisible)
	return st.JournalVisible
}

// Lookup returns the current resource if token is the live display token.
// Any older token is rejected.
func (c *Controller) Lookup(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	st := c.reg.Snapshot()
	if !st.Selected() || st.DisplayURL != DisplayPrefix+token {
		return "", false
	}
	return st.Resource, true
}

// AnnounceLibrary pushes a refreshed file list to manager connections.
func (c *Controller) AnnounceLibrary(files []string) {
	c.reg.Broadcast(registry.Library(files))
}

func (c *Controller) notify(res Result, conf Confirmation) {
	for _, o := range c.observers {
		o.Selection(res, conf)
	}
}

// decode percent-decodes id. Malformed escapes leave id as is.
func decode(id string) string {
	if s, err := url.PathUnescape(id); err == nil {
		return s
	}
	return id
}
