package utils

import (
	"strings"
	"testing"
)

type override struct {
	Beta *float64 `json:"beta"`
	WACC *float64 `json:"wacc"`
}

func TestSmartParse_StandardJSON(t *testing.T) {
	var o override
	if _, err := SmartParse(`{"beta": 1.1}`, &o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Beta == nil || *o.Beta != 1.1 {
		t.Errorf("expected beta 1.1, got %v", o.Beta)
	}
}

func TestSmartParse_Repair(t *testing.T) {
	var o override
	if _, err := SmartParse(`{beta: 0.9, wacc: 0.085,}`, &o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Beta == nil || *o.Beta != 0.9 {
		t.Errorf("expected beta 0.9, got %v", o.Beta)
	}
	if o.WACC == nil || *o.WACC != 0.085 {
		t.Errorf("expected wacc 0.085, got %v", o.WACC)
	}
}

func TestParseHJSON(t *testing.T) {
	out, err := ParseHJSON("{\n  # analyst override\n  beta: 1.3\n}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"beta":1.3`) {
		t.Errorf("expected standard JSON, got %s", out)
	}
}

func TestRenderHTML_Table(t *testing.T) {
	html, err := RenderHTML("```markdown\n| a | b |\n|---|---|\n| 1 | 2 |\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("expected a GFM table, got %s", html)
	}
}

func TestRepairJSON_TrailingComma(t *testing.T) {
	out, err := RepairJSON(`{"beta": 0.9,}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var o override
	if _, err := SmartParse(out, &o); err != nil {
		t.Fatalf("repaired output should decode: %v (%s)", err, out)
	}
	if o.Beta == nil || *o.Beta != 0.9 {
		t.Errorf("expected beta 0.9, got %v", o.Beta)
	}
}

func TestRepairJSON_KeepsShortFractions(t *testing.T) {
	out, err := RepairJSON(`{wacc: 0.085, beta: 0.9, growth: [0.03, 0.025,],}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"wacc":0.085`, `"beta":0.9`, `"growth":[0.03,0.025]`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestSmartParse_FencedPayload(t *testing.T) {
	for _, in := range []string{
		"```json\n{\"wacc\": 0.085, \"beta\": 0.9}\n```",
		"```\n{\"wacc\": 0.085, \"beta\": 0.9}\n```",
		"```json\n{wacc: 0.085, beta: 0.9,}\n```",
	} {
		var o override
		if _, err := SmartParse(in, &o); err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if o.WACC == nil || *o.WACC != 0.085 {
			t.Errorf("%q: expected wacc 0.085, got %v", in, o.WACC)
		}
		if o.Beta == nil || *o.Beta != 0.9 {
			t.Errorf("%q: expected beta 0.9, got %v", in, o.Beta)
		}
	}
}

func TestCleanMarkdown_LanguageTags(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\": 1}\n```":  `{"a": 1}`,
		"```markdown\n# Title\n```": "# Title",
		"```{\"a\": 1}```":          `{"a": 1}`,
		"  plain text  ":            "plain text",
	}
	for in, want := range cases {
		if got := CleanMarkdown(in); got != want {
			t.Errorf("CleanMarkdown(%q) = %q, want %q", in, got, want)
		}
	}
}
