package chat

import (
	"encoding/json"
	"strings"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
)

// CardResult is the outcome of parsing a progress-card payload: either a
// card, or the raw text with the parse error.
type CardResult struct {
	Card protocol.ProgressCardPayload
	Raw  string
	Err  error
}

func (r CardResult) OK() bool { return r.Err == nil }

func ParseProgressCard(raw string) CardResult {
	var card protocol.ProgressCardPayload
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&card); err != nil {
		return CardResult{Raw: raw, Err: errors.Wrapf(err, "%s: progress card", protocol.ErrMalformedPayload)}
	}
	if card.RunID == "" {
		return CardResult{Raw: raw, Err: errors.Errorf("%s: progress card without run_id", protocol.ErrMalformedPayload)}
	}
	return CardResult{Card: card, Raw: raw}
}

// Render shows a parsed card with the live progress line, or the raw payload
// as plain text when parsing failed.
func (r CardResult) Render(progress string) string {
	if !r.OK() {
		return r.Raw
	}
	title := r.Card.Title
	if title == "" {
		title = "Run " + r.Card.RunID
	}
	if progress == "" {
		progress = "waiting for first update"
	}
	return title + " · " + progress
}
