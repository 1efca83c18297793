// Package clock answers current date and time questions without a
// model round-trip.
package clock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-assistant-be/pkg/plugin"
)

type Clock struct {
	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func New() *Clock {
	return &Clock{Now: time.Now}
}

func (c *Clock) Name() string { return "clock" }

func (c *Clock) Description() string {
	return "Reports the current date and time."
}

func (c *Clock) CanHandle(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range []string{
		"what time", "current time", "what's the time", "what is the time",
		"what day", "today's date", "what date", "current date",
	} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (c *Clock) Execute(_ context.Context, _ *plugin.Context) *plugin.Result {
	now := c.Now()
	return &plugin.Result{
		Matched:  true,
		Response: fmt.Sprintf("It is %s.", now.Format("Monday, 2 January 2006, 15:04 MST")),
		Data: map[string]any{
			"iso": now.Format(time.RFC3339),
		},
	}
}

var _ plugin.Plugin = (*Clock)(nil)
