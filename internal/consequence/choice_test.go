package consequence

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseChoice(t *testing.T) {
	text := "Here is the event:\n```json\n" + `{
  "narrativeText": "A wounded trader begs for shelter.",
  "options": [
    {"label": "Take her in", "hint": "costs medicine", "consequences": [
      {"type": "take_resource", "resource": "medicine", "amount": 2},
      {"type": "spawn_ally", "kind": "trader"}
    ]},
    {"label": "  ", "hint": "dropped"},
    {"label": "Turn her away", "consequences": [{"type": "mood", "amount": -3, "label": "Guilt"}]}
  ]
}` + "\n```"

	c, err := ParseChoice(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(c.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(c.Options))
	}
	first := c.Options[0]
	if first.Label != "Take her in" || len(first.Effects) != 2 {
		t.Fatalf("first option = %+v", first)
	}
	if first.Effects[0].Tag != TagTakeResource || first.Effects[0].Params.Int("amount", 0) != 2 {
		t.Fatalf("first effect = %+v", first.Effects[0])
	}
	if first.Effects[1].Params.String("kind", "") != "trader" {
		t.Fatalf("second effect params = %+v", first.Effects[1].Params)
	}
	if got := c.Options[1].Effects[0].Params.Float("amount", 0); got != -3 {
		t.Fatalf("mood amount = %v, want -3", got)
	}
}

func TestParseChoiceMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "no json", text: "I cannot help with that."},
		{name: "no options", text: `{"narrativeText": "Quiet day.", "options": []}`},
		{name: "only blank labels", text: `{"narrativeText": "Quiet day.", "options": [{"label": ""}]}`},
		{name: "no narrative", text: `{"options": [{"label": "ok"}]}`},
		{name: "broken json", text: `{"narrativeText": "x", "options": [}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseChoice(tt.text); !errors.Is(err, ErrMalformedChoice) {
				t.Fatalf("err = %v, want ErrMalformedChoice", err)
			}
		})
	}
}

func TestEffectWireShape(t *testing.T) {
	var e Effect
	if err := json.Unmarshal([]byte(`{"type":"Give_Resource","resource":"steel","amount":30,"nested":{"x":1},"urgent":true}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Tag != TagGiveResource {
		t.Fatalf("tag = %s, want give_resource", e.Tag)
	}
	if _, ok := e.Params["nested"]; ok {
		t.Fatal("non-scalar parameter kept")
	}
	if !e.Params.Bool("urgent", false) {
		t.Fatal("bool parameter lost")
	}

	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}
	if back["type"] != "Give_Resource" || back["resource"] != "steel" {
		t.Fatalf("flat shape = %v", back)
	}
}

func TestParamsAccessors(t *testing.T) {
	p := Params{
		"int":    json.Number("7"),
		"float":  json.Number("2.5"),
		"whole":  4.0,
		"text":   "  hello ",
		"flag":   true,
		"blank":  "   ",
		"number": 3,
	}
	if got := p.Int("int", 0); got != 7 {
		t.Fatalf("Int(int) = %d", got)
	}
	if got := p.Int("float", 0); got != 2 {
		t.Fatalf("Int(float) = %d, want truncation to 2", got)
	}
	if got := p.Int("whole", 0); got != 4 {
		t.Fatalf("Int(whole) = %d", got)
	}
	if got := p.Int("text", 9); got != 9 {
		t.Fatalf("Int(text) = %d, want default", got)
	}
	if got := p.Float("float", 0); got != 2.5 {
		t.Fatalf("Float(float) = %v", got)
	}
	if got := p.Float("number", 0); got != 3 {
		t.Fatalf("Float(number) = %v", got)
	}
	if got := p.Float("flag", 1.5); got != 1.5 {
		t.Fatalf("Float(flag) = %v, want default", got)
	}
	if got := p.String("text", ""); got != "hello" {
		t.Fatalf("String(text) = %q", got)
	}
	if got := p.String("blank", "def"); got != "def" {
		t.Fatalf("String(blank) = %q, want default", got)
	}
	if got := p.Bool("flag", false); !got {
		t.Fatal("Bool(flag) = false")
	}
	if got := p.Bool("missing", true); !got {
		t.Fatal("Bool(missing) should return default")
	}
	huge := Params{"up": json.Number("1e30"), "down": -1e30, "nan": math.NaN()}
	if got := huge.Int("up", 0); got != math.MaxInt {
		t.Fatalf("Int(1e30) = %d, want MaxInt", got)
	}
	if got := huge.Int("down", 0); got != math.MinInt {
		t.Fatalf("Int(-1e30) = %d, want MinInt", got)
	}
	if got := huge.Int("nan", 5); got != 5 {
		t.Fatalf("Int(NaN) = %d, want default", got)
	}
	var nilParams Params
	if got := nilParams.Int("x", 3); got != 3 {
		t.Fatalf("nil params Int = %d", got)
	}
}
