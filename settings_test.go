package captchaforge

import (
	"testing"
	"time"
)

func TestDefaultValidatesWithAFont(t *testing.T) {
	s := Default()
	s.Fonts = []string{tempFont(t)}
	if err := s.Validate(fakeMetrics{}); err != nil {
		t.Fatalf("Default()+Fonts should validate, got: %v", err)
	}
}

func TestDefaultRejectsWithNoFonts(t *testing.T) {
	s := Default()
	if err := s.Validate(fakeMetrics{}); err == nil {
		t.Fatal("expected an error with no configured fonts")
	}
}

func TestValidateRejectsHeightGreaterThanWidth(t *testing.T) {
	s := testSettings(t)
	s.Height = s.Width + 1
	if err := s.Validate(fakeMetrics{}); err == nil {
		t.Fatal("expected an error when HEIGHT > WIDTH")
	}
}

func TestValidateRejectsDuplicateCharacterSet(t *testing.T) {
	s := testSettings(t)
	s.CharacterSet = []rune("AAB")
	if err := s.Validate(fakeMetrics{}); err == nil {
		t.Fatal("expected an error for a duplicate character in CHARACTER_SET")
	}
}

func TestValidateRejectsMissingFontFile(t *testing.T) {
	s := testSettings(t)
	s.Fonts = []string{"/nonexistent/path/font.ttf"}
	if err := s.Validate(fakeMetrics{}); err == nil {
		t.Fatal("expected an error for a font path that does not resolve")
	}
}

func TestValidateRejectsOutOfRangeShiftPercent(t *testing.T) {
	s := testSettings(t)
	s.HorizontalShiftPercent = 101
	if err := s.Validate(fakeMetrics{}); err == nil {
		t.Fatal("expected an error for a shift percentage above 100")
	}
}

func TestSetAppliesKnownFields(t *testing.T) {
	s := testSettings(t)
	next, err := s.Set(map[string]any{
		"WIDTH":       800,
		"TEXT_LENGTH": 5,
		"RATE_LIMIT":  2.5,
	}, fakeMetrics{})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if next.Width != 800 {
		t.Errorf("Width = %d, want 800", next.Width)
	}
	if next.TextLength != 5 {
		t.Errorf("TextLength = %d, want 5", next.TextLength)
	}
	if next.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", next.RateLimit)
	}
}

func TestSetRejectsUnknownField(t *testing.T) {
	s := testSettings(t)
	if _, err := s.Set(map[string]any{"NOT_A_REAL_FIELD": 1}, fakeMetrics{}); err == nil {
		t.Fatal("expected an error for an unknown setting name")
	}
}

func TestSetLeavesReceiverUnchanged(t *testing.T) {
	s := testSettings(t)
	originalWidth := s.Width
	if _, err := s.Set(map[string]any{"WIDTH": 9999}, fakeMetrics{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.Width != originalWidth {
		t.Errorf("Set mutated the receiver: Width = %d, want %d", s.Width, originalWidth)
	}
}

func TestGetClonesSlices(t *testing.T) {
	s := testSettings(t)
	clone := s.Get()
	clone.CharacterSet[0] = 'Z'
	if s.CharacterSet[0] == 'Z' {
		t.Error("Get did not clone CharacterSet: mutation leaked into receiver")
	}
}

func TestToRenderParamsCarriesDerivedSizes(t *testing.T) {
	s := testSettings(t)
	if err := s.Validate(fakeMetrics{}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	params := s.ToRenderParams()
	for _, f := range s.Fonts {
		if params.DerivedSizes[f] <= 0 {
			t.Errorf("DerivedSizes[%s] = %d, want > 0", f, params.DerivedSizes[f])
		}
	}
}

func TestSetLifetimeConvertsSecondsToDuration(t *testing.T) {
	s := testSettings(t)
	next, err := s.Set(map[string]any{"LIFETIME": 30.0}, fakeMetrics{})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if next.Lifetime != 30*time.Second {
		t.Errorf("Lifetime = %v, want 30s", next.Lifetime)
	}
}
