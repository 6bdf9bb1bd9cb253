package auth

import (
	"testing"

	"github.com/seemly-ai/seemly/internal/config"
)

func TestNewFromConfigAndLookup(t *testing.T) {
	cfg := &config.Config{
		Projects: []config.Project{
			{ID: "alpha", APIKeys: []string{"key-a1", "key-a2"}},
			{ID: "beta", APIKeys: []string{"key-b"}},
		},
	}
	a, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.Open() {
		t.Fatal("configured projects should close the API")
	}
	p, ok := a.Lookup("key-a2")
	if !ok || p.ID != "alpha" {
		t.Fatalf("lookup = %+v, %v", p, ok)
	}
	if _, ok := a.Lookup("unknown"); ok {
		t.Fatal("unknown key must not resolve")
	}
}

func TestNewFromConfigRejectsSharedKey(t *testing.T) {
	cfg := &config.Config{
		Projects: []config.Project{
			{ID: "alpha", APIKeys: []string{"dup"}},
			{ID: "beta", APIKeys: []string{"dup"}},
		},
	}
	if _, err := NewFromConfig(cfg); err == nil {
		t.Fatal("shared key must be rejected")
	}
}

func TestNoProjectsMeansOpen(t *testing.T) {
	a, err := NewFromConfig(&config.Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !a.Open() {
		t.Fatal("empty project list should leave the API open")
	}
}
