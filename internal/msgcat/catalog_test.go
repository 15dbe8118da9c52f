package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	if got := c.Text("errors.not_your_turn"); got == "" || got == "errors.not_your_turn" {
		t.Fatalf("missing embedded message, got %q", got)
	}
}

func TestTextFallsBackToKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	if got := c.Text("errors.no_such_key"); got != "errors.no_such_key" {
		t.Fatalf("fallback = %q, want the key itself", got)
	}
}

func TestRenderWithData(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	out, err := c.Render("game.win", map[string]string{"Winner": "小明"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out == "" || out == "game.win" {
		t.Fatalf("Render = %q", out)
	}
}

func TestRenderMissingFieldFails(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	if _, err := c.Render("game.win", map[string]string{}); err == nil {
		t.Fatalf("expected error for missing template data")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := []byte("errors:\n  not_your_turn: \"wait your turn\"\n")
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), override, 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	if got := c.Text("errors.not_your_turn"); got != "wait your turn" {
		t.Fatalf("override not applied, got %q", got)
	}
	// untouched keys keep the embedded default
	if got := c.Text("errors.room_full"); got == "errors.room_full" {
		t.Fatalf("default lost after override")
	}
}

func TestOverrideDirMissing(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing override dir")
	}
}
