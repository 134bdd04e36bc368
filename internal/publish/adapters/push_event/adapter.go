// Package pushevent turns the workflow's triggering event into a
// domain.Trigger.
package pushevent

import (
	"fmt"
	"log/slog"
	"os"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// Reader reads the event payload GitHub Actions writes to GITHUB_EVENT_PATH.
type Reader struct {
	logger *slog.Logger
}

// New creates a new event reader.
func New(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// Read parses the payload at eventPath for an event named eventName. Only
// push events carry a commit range; other events, or a missing payload,
// produce a trigger without one.
func (r *Reader) Read(eventName, eventPath string) (domain.Trigger, error) {
	trigger := domain.Trigger{Event: eventName}
	if eventName != "push" || eventPath == "" {
		return trigger, nil
	}

	payload, err := os.ReadFile(eventPath)
	if err != nil {
		return trigger, fmt.Errorf("reading event payload: %w", err)
	}

	event, err := gogithub.ParseWebHook(eventName, payload)
	if err != nil {
		return trigger, fmt.Errorf("parsing %s event: %w", eventName, err)
	}

	push, ok := event.(*gogithub.PushEvent)
	if !ok {
		return trigger, fmt.Errorf("unexpected payload type %T for push event", event)
	}

	trigger.Ref = push.GetRef()
	trigger.Before = push.GetBefore()
	trigger.After = push.GetAfter()

	r.logger.Debug("read push event",
		"ref", trigger.Ref,
		"before", trigger.Before,
		"after", trigger.After,
		"commits", len(push.Commits),
	)
	return trigger, nil
}
