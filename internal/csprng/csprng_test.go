package csprng

import (
	"encoding/binary"
	"testing"
)

// sequenceSource replays a fixed byte sequence, four bytes at a time,
// so Intn's rejection-sampling loop is exercised deterministically.
type sequenceSource struct {
	words []uint32
	i     int
}

func (s *sequenceSource) Read(p []byte) (int, error) {
	w := s.words[s.i%len(s.words)]
	s.i++
	binary.BigEndian.PutUint32(p, w)
	return len(p), nil
}

func TestIntnWithinRange(t *testing.T) {
	src := &sequenceSource{words: []uint32{0, 1, 2, 3, 4, 5, 6, 99}}
	for i := 0; i < len(src.words); i++ {
		v, err := Intn(src, 5)
		if err != nil {
			t.Fatalf("Intn: %v", err)
		}
		if v < 0 || v >= 5 {
			t.Fatalf("Intn(5) = %d, out of range", v)
		}
	}
}

func TestIntnSingleOutcomeForN1(t *testing.T) {
	src := &sequenceSource{words: []uint32{42}}
	v, err := Intn(src, 1)
	if err != nil {
		t.Fatalf("Intn: %v", err)
	}
	if v != 0 {
		t.Errorf("Intn(1) = %d, want 0", v)
	}
}

func TestIntnRejectsHighTail(t *testing.T) {
	// With n=7, floor((2^32-1)/7)*7 = 4294967292, so the top 4 uint32
	// values are a biased tail that must be rejected and redrawn rather
	// than folded in with modulo bias.
	high := ^uint32(0)
	src := &sequenceSource{words: []uint32{high, high - 1, 0}}
	v, err := Intn(src, 7)
	if err != nil {
		t.Fatalf("Intn: %v", err)
	}
	if src.i < 3 {
		t.Errorf("expected Intn to reject the biased high-tail draws, only consumed %d", src.i)
	}
	if v != 0 {
		t.Errorf("Intn(7) = %d, want 0", v)
	}
}

func TestIntnRejectsNonPositive(t *testing.T) {
	src := &sequenceSource{words: []uint32{0}}
	if _, err := Intn(src, 0); err == nil {
		t.Fatal("expected an error for n=0")
	}
}

func TestPickRuneFromSet(t *testing.T) {
	src := &sequenceSource{words: []uint32{2}}
	set := []rune("ABCD")
	r, err := PickRune(src, set)
	if err != nil {
		t.Fatalf("PickRune: %v", err)
	}
	if r != 'C' {
		t.Errorf("PickRune = %q, want 'C'", r)
	}
}

func TestPickRuneRejectsEmptySet(t *testing.T) {
	src := &sequenceSource{words: []uint32{0}}
	if _, err := PickRune(src, nil); err == nil {
		t.Fatal("expected an error for an empty character set")
	}
}

func TestBytesReturnsRequestedLength(t *testing.T) {
	src := &sequenceSource{words: []uint32{1, 2, 3}}
	b, err := Bytes(src, 10)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(b) != 10 {
		t.Errorf("len(Bytes(10)) = %d, want 10", len(b))
	}
}

func TestUniformIntNMatchesIntn(t *testing.T) {
	src := &sequenceSource{words: []uint32{7}}
	u := Uniform{Source: src}
	v, err := u.IntN(4)
	if err != nil {
		t.Fatalf("Uniform.IntN: %v", err)
	}
	if v != 7%4 {
		t.Errorf("Uniform.IntN(4) = %d, want %d", v, 7%4)
	}
}
