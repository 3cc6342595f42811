// Package consequence turns generated decisions into world mutations.
//
// An Effect is a tagged, parameterized instruction. Every known tag maps to
// exactly one handler in a fixed table; anything else parses to TagUnknown and
// is skipped without touching the world.
package consequence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Tag identifies which handler an effect runs.
type Tag uint8

const (
	TagUnknown Tag = iota
	TagNothing
	TagSpawnAlly
	TagGiveResource
	TagTakeResource
	TagMood
	TagFactionRelation
	TagSmallRaid
	TagLargeRaid
	TagHealColonists

	tagCount
)

var tagNames = [...]string{
	TagUnknown:         "unknown",
	TagNothing:         "nothing",
	TagSpawnAlly:       "spawn_ally",
	TagGiveResource:    "give_resource",
	TagTakeResource:    "take_resource",
	TagMood:            "mood",
	TagFactionRelation: "faction_relation",
	TagSmallRaid:       "small_raid",
	TagLargeRaid:       "large_raid",
	TagHealColonists:   "heal_colonists",
}

// Fails to compile if a tag is added without a name.
var _ [tagCount]string = tagNames

var tagAliases = map[string]Tag{
	"none":     TagNothing,
	"noop":     TagNothing,
	"raid":     TagSmallRaid,
	"recruit":  TagSpawnAlly,
	"resource": TagGiveResource,
}

// ParseTag maps a wire name to a Tag. Unrecognized names return TagUnknown.
func ParseTag(name string) Tag {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range tagNames {
		if Tag(i) != TagUnknown && n == name {
			return Tag(i)
		}
	}
	if t, ok := tagAliases[name]; ok {
		return t
	}
	return TagUnknown
}

func (t Tag) String() string {
	if t >= tagCount {
		return tagNames[TagUnknown]
	}
	return tagNames[t]
}

// Tags returns the wire names of every executable tag, for prompt instructions.
func Tags() []string {
	out := make([]string, 0, tagCount-1)
	for t := TagNothing; t < tagCount; t++ {
		out = append(out, t.String())
	}
	return out
}

// Effect is a single instruction. Name keeps the tag as it arrived on the wire.
type Effect struct {
	Tag    Tag
	Name   string
	Params Params
}

// NewEffect builds an effect for a known tag.
func NewEffect(tag Tag, params Params) Effect {
	return Effect{Tag: tag, Name: tag.String(), Params: params}
}

// UnmarshalJSON reads the flat wire shape {"type": "...", ...params}.
// Non-scalar parameter values are dropped.
func (e *Effect) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode effect: %w", err)
	}

	name, _ := raw["type"].(string)
	delete(raw, "type")

	params := make(Params, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case string, bool, json.Number:
			params[k] = v
		}
	}

	*e = Effect{Tag: ParseTag(name), Name: name, Params: params}
	return nil
}

// MarshalJSON writes the flat wire shape.
func (e Effect) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Params)+1)
	for k, v := range e.Params {
		out[k] = v
	}
	name := e.Name
	if name == "" {
		name = e.Tag.String()
	}
	out["type"] = name
	return json.Marshal(out)
}
