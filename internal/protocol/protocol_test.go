package protocol

import (
	"testing"

	"github.com/sweeney/rf433-receiver/internal/decoder"
)

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 2 || names[0] != "ev1527" || names[1] != "kingserry" {
		t.Errorf("unexpected catalog names %v", names)
	}
}

func TestParseKeepsOrder(t *testing.T) {
	configs, err := Parse("kingserry, EV1527")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(configs))
	}
	if _, ok := configs[0].(decoder.FixedConfig); !ok {
		t.Errorf("expected kingserry first, got %T", configs[0])
	}
	if _, ok := configs[1].(decoder.AdaptiveConfig); !ok {
		t.Errorf("expected ev1527 second, got %T", configs[1])
	}
}

func TestParseDuplicatesAndBlanks(t *testing.T) {
	configs, err := Parse("ev1527,,ev1527, ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 1 {
		t.Errorf("expected 1 config, got %d", len(configs))
	}

	configs, err = Parse("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(configs) != 0 {
		t.Errorf("expected no configs, got %d", len(configs))
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("ev1527,pt2262"); err == nil {
		t.Error("expected error for unknown protocol")
	}
}

func TestLookup(t *testing.T) {
	c, ok := Lookup(" KingSerry ")
	if !ok {
		t.Fatal("expected kingserry to be found")
	}
	fc, ok := c.(decoder.FixedConfig)
	if !ok {
		t.Fatalf("expected FixedConfig, got %T", c)
	}
	if fc.CodeBits != 40 {
		t.Errorf("expected 40 bits, got %d", fc.CodeBits)
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("expected lookup miss")
	}
}

func TestCatalogBuilds(t *testing.T) {
	if _, err := decoder.NewAdaptive(EV1527); err != nil {
		t.Errorf("ev1527: %v", err)
	}
	if _, err := decoder.NewFixed(KingSerry); err != nil {
		t.Errorf("kingserry: %v", err)
	}
	configs, _ := Parse(Default)
	if r := decoder.NewRegistry(configs...); r.Len() != 1 {
		t.Errorf("expected default registry of 1, got %d", r.Len())
	}
}
