package main

import (
	"math/rand"
	"testing"
	"time"
)

func TestGenerateNameIsDeterministicForFixedSeed(t *testing.T) {
	a := generateName(rand.New(rand.NewSource(42)))
	b := generateName(rand.New(rand.NewSource(42)))
	if a != b {
		t.Fatalf("expected same seed to produce the same name, got %q and %q", a, b)
	}
	if a == "" {
		t.Fatalf("expected a non-empty generated name")
	}
}

func TestLogPathFollowsNamingConvention(t *testing.T) {
	got := logPath("HOST", "brave-otter", time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC))
	want := "./logs/HOST_brave-otter_09-30-00_DAO-NET.json"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
