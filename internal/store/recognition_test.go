package store

import (
	"testing"
	"time"
)

func TestRecognitionRepository_AddAndRecent(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recognitions()

	entries := []*Recognition{
		{Gesture: "wave", BodyID: 1, Source: "kinect", Seq: 10},
		{Gesture: "push", BodyID: 2, Source: "kinect", Seq: 20},
		{Gesture: "wave", BodyID: 1, Source: "replay", Seq: 30},
	}
	for _, rec := range entries {
		if err := repo.Add(rec); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if rec.ID == 0 || rec.RecognizedAt.IsZero() {
			t.Errorf("Add() should set ID and time, got %+v", rec)
		}
	}

	recent, err := repo.Recent(2, "")
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 || recent[0].Seq != 30 || recent[1].Seq != 20 {
		t.Fatalf("Recent(2) = %+v, want seq 30 then 20", recent)
	}
	if recent[0].Source != "replay" || recent[0].BodyID != 1 {
		t.Errorf("Recent()[0] = %+v", recent[0])
	}

	waves, err := repo.Recent(10, "wave")
	if err != nil {
		t.Fatalf("Recent(wave) error = %v", err)
	}
	if len(waves) != 2 {
		t.Errorf("Recent(wave) = %d entries, want 2", len(waves))
	}
}

func TestRecognitionRepository_Prune(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recognitions()

	now := time.Now()
	old := &Recognition{Gesture: "wave", BodyID: 1, Seq: 1, RecognizedAt: now.Add(-48 * time.Hour)}
	fresh := &Recognition{Gesture: "wave", BodyID: 1, Seq: 2, RecognizedAt: now}
	for _, rec := range []*Recognition{old, fresh} {
		if err := repo.Add(rec); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	n, err := repo.Prune(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d entries, want 1", n)
	}

	left, _ := repo.Recent(10, "")
	if len(left) != 1 || left[0].Seq != 2 {
		t.Errorf("after Prune() = %+v, want only seq 2", left)
	}
}
