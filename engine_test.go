package captchaforge

import (
	"testing"
	"time"
)

func deterministicSettings(t *testing.T, poolSize int) Settings {
	t.Helper()
	s := testSettings(t)
	s.CharacterSet = []rune("ABCD")
	s.TextLength = 4
	s.PoolSize = poolSize
	s.MinBrightnessDiff = 0
	s.MinHueDiff = 0
	s.CaseSensitive = false
	s.Lifetime = time.Minute
	return s
}

func newTestEngine(t *testing.T, s Settings, now func() time.Time) *Engine {
	t.Helper()
	e, err := New(s,
		WithBackend(&fakeBackend{}),
		WithSecureRand(&cyclicSecure{seq: []int{0, 1, 2, 3}}),
		WithVisualRand(fixedVisual{f: 0.5}),
		WithClock(now),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func TestGetThenValidateSucceedsOnce(t *testing.T) {
	s := deterministicSettings(t, 1)
	now := time.Now()
	e := newTestEngine(t, s, func() time.Time { return now })

	blob, token, err := e.Get("")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(blob) == 0 {
		t.Error("expected a non-empty blob")
	}
	if len(token) == 0 {
		t.Error("expected a non-empty token")
	}

	ok, err := e.Validate(token, "ABCD")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !ok {
		t.Error("expected the first validate with the right answer to succeed")
	}

	replay, err := e.Validate(token, "ABCD")
	if err != nil {
		t.Fatalf("Validate (replay): %v", err)
	}
	if replay {
		t.Error("expected replaying the same token to fail")
	}
}

func TestValidateCaseInsensitiveByDefault(t *testing.T) {
	s := deterministicSettings(t, 1)
	now := time.Now()
	e := newTestEngine(t, s, func() time.Time { return now })

	_, token, err := e.Get("")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	ok, err := e.Validate(token, "abcd")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !ok {
		t.Error("expected case-insensitive match to succeed by default")
	}
}

func TestValidateWrongAnswerFails(t *testing.T) {
	s := deterministicSettings(t, 1)
	now := time.Now()
	e := newTestEngine(t, s, func() time.Time { return now })

	_, token, err := e.Get("")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	ok, err := e.Validate(token, "ZZZZ")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok {
		t.Error("expected a wrong answer to fail")
	}
}

func TestValidateExpiredTokenFails(t *testing.T) {
	s := deterministicSettings(t, 1)
	s.Lifetime = time.Second
	start := time.Now()
	current := start
	e := newTestEngine(t, s, func() time.Time { return current })

	_, token, err := e.Get("")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	current = start.Add(2 * time.Second)
	ok, err := e.Validate(token, "ABCD")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ok {
		t.Error("expected an expired token to fail validation")
	}
}

func TestGetAfterShutdownFails(t *testing.T) {
	s := deterministicSettings(t, 2)
	e := newTestEngine(t, s, time.Now)

	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, _, err := e.Get(""); err != ErrShutdown {
		t.Errorf("Get after shutdown: err = %v, want ErrShutdown", err)
	}
	if _, err := e.Validate([]byte("anything"), "ABCD"); err != ErrShutdown {
		t.Errorf("Validate after shutdown: err = %v, want ErrShutdown", err)
	}
}

func TestReconfigureRejectsPoolSizeChange(t *testing.T) {
	s := deterministicSettings(t, 2)
	e := newTestEngine(t, s, time.Now)

	changed := s.Get()
	changed.PoolSize = s.PoolSize + 1
	if err := e.Reconfigure(changed); err == nil {
		t.Fatal("expected an error when Reconfigure changes POOL_SIZE")
	}
}

func TestReconfigureAcceptsSamePoolSize(t *testing.T) {
	s := deterministicSettings(t, 2)
	e := newTestEngine(t, s, time.Now)

	changed := s.Get()
	changed.MaxNoise = s.MaxNoise + 1
	if err := e.Reconfigure(changed); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
}

func TestStatsReflectsIssuedAndValidated(t *testing.T) {
	s := deterministicSettings(t, 1)
	e := newTestEngine(t, s, time.Now)

	_, token, err := e.Get("")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := e.Validate(token, "ABCD"); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	st := e.Stats()
	if st.Issued != 1 {
		t.Errorf("Issued = %d, want 1", st.Issued)
	}
	if st.ValidationAttempts != 1 {
		t.Errorf("ValidationAttempts = %d, want 1", st.ValidationAttempts)
	}
	if st.SuccessfulSolves != 1 {
		t.Errorf("SuccessfulSolves = %d, want 1", st.SuccessfulSolves)
	}
}

func TestShutdownIsIdempotentInEffectForCallers(t *testing.T) {
	s := deterministicSettings(t, 1)
	e, err := New(s,
		WithBackend(&fakeBackend{}),
		WithSecureRand(&cyclicSecure{seq: []int{0, 1, 2, 3}}),
		WithVisualRand(fixedVisual{f: 0.5}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, _, err := e.Get(""); err != ErrShutdown {
		t.Errorf("Get after shutdown: err = %v, want ErrShutdown", err)
	}
}
