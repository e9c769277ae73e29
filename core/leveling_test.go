package core

import "testing"

func TestThresholdForLevel(t *testing.T) {
	cases := []struct {
		level int
		want  int
	}{
		{1, 0},
		{2, 50},
		{3, 75},
		{4, 100},
		{10, 250},
	}
	for _, c := range cases {
		if got := ThresholdForLevel(c.level); got != c.want {
			t.Fatalf("ThresholdForLevel(%d) = %d, want %d", c.level, got, c.want)
		}
	}
}

func TestThresholdMonotonic(t *testing.T) {
	for level := 1; level < 200; level++ {
		if ThresholdForLevel(level+1) <= ThresholdForLevel(level) {
			t.Fatalf("threshold not increasing at level %d", level)
		}
	}
}

func TestLevelForExp(t *testing.T) {
	cases := []struct {
		exp  int
		want int
	}{
		{-5, 1},
		{0, 1},
		{49, 1},
		{50, 2},
		{74, 2},
		{75, 3},
		{100, 4},
	}
	for _, c := range cases {
		if got := LevelForExp(c.exp); got != c.want {
			t.Fatalf("LevelForExp(%d) = %d, want %d", c.exp, got, c.want)
		}
	}
}

func TestLevelThresholdConsistency(t *testing.T) {
	for exp := 0; exp < 2000; exp++ {
		level := LevelForExp(exp)
		if ThresholdForLevel(level) > exp {
			t.Fatalf("exp %d below threshold of its own level %d", exp, level)
		}
		if ThresholdForLevel(level+1) <= exp {
			t.Fatalf("exp %d already reaches level %d", exp, level+1)
		}
	}
}

func TestProgressToNextLevel(t *testing.T) {
	if got := ProgressToNextLevel(0, 1); got != 0 {
		t.Fatalf("expected 0%%, got %v", got)
	}
	if got := ProgressToNextLevel(25, 1); got != 50 {
		t.Fatalf("expected 50%%, got %v", got)
	}
	if got := ProgressToNextLevel(999, 1); got != 100 {
		t.Fatalf("expected clamp to 100%%, got %v", got)
	}
	if got := ProgressToNextLevel(-10, 1); got != 0 {
		t.Fatalf("expected clamp to 0%%, got %v", got)
	}
}

func TestExpToNextLevel(t *testing.T) {
	if got := ExpToNextLevel(40, 1); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := ExpToNextLevel(200, 1); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
