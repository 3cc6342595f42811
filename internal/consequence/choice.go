package consequence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedChoice = errors.New("malformed choice event")

// Option is one answer the player can give. Effects run in order when chosen.
type Option struct {
	Label   string   `json:"label"`
	Hint    string   `json:"hint"`
	Effects []Effect `json:"consequences"`
}

// Choice is a generated situation with at least one option.
type Choice struct {
	NarrativeText string   `json:"narrativeText"`
	Options       []Option `json:"options"`
}

// Valid reports whether the choice can be shown to the player.
func (c Choice) Valid() bool {
	return strings.TrimSpace(c.NarrativeText) != "" && len(c.Options) > 0
}

// ParseChoice extracts a choice event from generated text. Surrounding prose
// and markdown fences are ignored. Options without a label are dropped; a
// choice with no narrative or no usable option is malformed.
func ParseChoice(text string) (Choice, error) {
	raw, err := ExtractJSONObject(text)
	if err != nil {
		return Choice{}, fmt.Errorf("parse choice: %w", err)
	}

	var c Choice
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Choice{}, fmt.Errorf("parse choice: %w: %v", ErrMalformedChoice, err)
	}

	c.NarrativeText = strings.TrimSpace(c.NarrativeText)
	opts := c.Options[:0]
	for _, o := range c.Options {
		o.Label = strings.TrimSpace(o.Label)
		o.Hint = strings.TrimSpace(o.Hint)
		if o.Label == "" {
			continue
		}
		opts = append(opts, o)
	}
	c.Options = opts

	if !c.Valid() {
		return Choice{}, fmt.Errorf("parse choice: %w: need narrative and at least one option", ErrMalformedChoice)
	}
	return c, nil
}

// ExtractJSONObject returns the outermost {...} span of text.
func ExtractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformedChoice)
	}
	return text[start : end+1], nil
}
