// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nudgeworks/verdant/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWeightStateAbsent(t *testing.T) {
	s := testStore(t)
	state, err := s.GetWeightState(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetWeightState: %v", err)
	}
	if state != nil {
		t.Errorf("expected nil state for unknown user, got %+v", state)
	}
}

func TestUpdateWeightsCreatesAndVersions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	got, err := s.UpdateWeights(ctx, "u1", func(w *models.WeightPreferences) {
		w.Fit += 0.6
	})
	if err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}
	if got.Fit != 1.6 {
		t.Errorf("fit = %f, want 1.6", got.Fit)
	}

	state, err := s.GetWeightState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetWeightState: %v", err)
	}
	if state == nil || state.Version != 1 {
		t.Fatalf("state = %+v, want version 1", state)
	}

	if _, err := s.UpdateWeights(ctx, "u1", func(w *models.WeightPreferences) {
		w.Fit += 0.1
	}); err != nil {
		t.Fatalf("second UpdateWeights: %v", err)
	}
	state, _ = s.GetWeightState(ctx, "u1")
	if state.Version != 2 {
		t.Errorf("version = %d, want 2", state.Version)
	}
}

func TestUpdateWeightsClampsBounds(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	got, err := s.UpdateWeights(ctx, "u1", func(w *models.WeightPreferences) {
		w.Fit += 100
		w.Novelty -= 100
	})
	if err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}
	if got.Fit != models.WeightCeil {
		t.Errorf("fit = %f, want clamp at %f", got.Fit, models.WeightCeil)
	}
	if got.Novelty != models.WeightFloor {
		t.Errorf("novelty = %f, want clamp at %f", got.Novelty, models.WeightFloor)
	}
}

func TestPutWeightStateVersionConflict(t *testing.T) {
	s := testStore(t)

	if err := s.putWeightState("u1", models.BaseWeights(), 0); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// Writing again with the stale expected version must fail.
	err := s.putWeightState("u1", models.BaseWeights(), 0)
	if err == nil {
		t.Fatal("stale write should conflict")
	}
}

func TestInsertDoneIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	day := DayKey(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	first := DoneRecord{UserID: "u1", ActionID: "solar", Day: day, PKR: 800, KgCO2e: 5, Streak: 3}
	got, inserted, err := s.InsertDone(ctx, first)
	if err != nil {
		t.Fatalf("InsertDone: %v", err)
	}
	if !inserted {
		t.Fatal("first insert should report inserted")
	}
	if got.PKR != 800 {
		t.Errorf("pkr = %f, want 800", got.PKR)
	}

	// Replay with different impact values: the frozen row wins.
	replay := DoneRecord{UserID: "u1", ActionID: "solar", Day: day, PKR: 9999, KgCO2e: 99, Streak: 99}
	got, inserted, err = s.InsertDone(ctx, replay)
	if err != nil {
		t.Fatalf("replay InsertDone: %v", err)
	}
	if inserted {
		t.Error("replay should not insert")
	}
	if got.PKR != 800 || got.Streak != 3 {
		t.Errorf("replay returned %+v, want the frozen first row", got)
	}
}

func TestInsertDoneConcurrentRace(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	day := "2026-03-10"

	// Two writers race the same (user, action, day) with different impact
	// values. Exactly one insert wins; both callers must see the single
	// frozen row, whether they hit the pre-read branch or a transaction
	// conflict.
	const writers = 8
	results := make([]*DoneRecord, writers)
	inserts := make([]bool, writers)
	errs := make([]error, writers)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			rec := DoneRecord{
				UserID: "u1", ActionID: "solar", Day: day,
				PKR: float64(100 * (i + 1)), KgCO2e: float64(i), Streak: i + 1,
			}
			results[i], inserts[i], errs[i] = s.InsertDone(ctx, rec)
		}(i)
	}
	start.Done()
	done.Wait()

	insertCount := 0
	var winner *DoneRecord
	for i := 0; i < writers; i++ {
		if errs[i] != nil {
			t.Fatalf("writer %d: %v", i, errs[i])
		}
		if results[i] == nil {
			t.Fatalf("writer %d returned no row", i)
		}
		if inserts[i] {
			insertCount++
			winner = results[i]
		}
	}
	if insertCount != 1 {
		t.Fatalf("inserted count = %d, want exactly 1", insertCount)
	}
	for i := 0; i < writers; i++ {
		if results[i].PKR != winner.PKR || results[i].Streak != winner.Streak {
			t.Errorf("writer %d saw %+v, want the frozen row %+v", i, results[i], winner)
		}
	}

	stored, err := s.GetDone(ctx, "u1", "solar", day)
	if err != nil {
		t.Fatalf("GetDone: %v", err)
	}
	if stored == nil || stored.PKR != winner.PKR {
		t.Errorf("stored row = %+v, want %+v", stored, winner)
	}
}

func TestUpdateWeightsConcurrentWritersAllLand(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Concurrent writers contend on the versioned record; conflict retry
	// must fold every delta in without losing one.
	const writers = 5
	var wg sync.WaitGroup
	errs := make([]error, writers)
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.UpdateWeights(ctx, "u1", func(w *models.WeightPreferences) {
				w.PKR += 0.1
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %v", i, err)
		}
	}

	state, err := s.GetWeightState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetWeightState: %v", err)
	}
	if state == nil {
		t.Fatal("no weight state after concurrent updates")
	}
	want := models.BaseWeights().PKR + writers*0.1
	if diff := state.Weights.PKR - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("pkr = %f, want %f", state.Weights.PKR, want)
	}
	if state.Version != writers {
		t.Errorf("version = %d, want %d", state.Version, writers)
	}
}

func TestInsertDoneSeparateDays(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, inserted, err := s.InsertDone(ctx, DoneRecord{UserID: "u1", ActionID: "solar", Day: "2026-03-10"})
	if err != nil || !inserted {
		t.Fatalf("day one insert: inserted=%v err=%v", inserted, err)
	}
	_, inserted, err = s.InsertDone(ctx, DoneRecord{UserID: "u1", ActionID: "solar", Day: "2026-03-11"})
	if err != nil || !inserted {
		t.Fatalf("day two insert: inserted=%v err=%v", inserted, err)
	}
}

func TestRecentEventsNewestFirstWithLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		err := s.Append(ctx, models.FeedbackEvent{
			UserID:           "u1",
			RecommendationID: string(rune('a' + i)),
			EventType:        models.EventShown,
			OccurredAt:       base.AddDate(0, 0, i),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	// A different type and a different user must not leak in.
	_ = s.Append(ctx, models.FeedbackEvent{UserID: "u1", RecommendationID: "x", EventType: models.EventDone, OccurredAt: base})
	_ = s.Append(ctx, models.FeedbackEvent{UserID: "u2", RecommendationID: "y", EventType: models.EventShown, OccurredAt: base})

	refs, err := s.RecentEvents(ctx, "u1", models.EventShown, 3)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("len = %d, want 3", len(refs))
	}
	for i, want := range []string{"e", "d", "c"} {
		if refs[i].ActionID != want {
			t.Errorf("refs[%d] = %s, want %s", i, refs[i].ActionID, want)
		}
	}
}

func TestAppendRejectsInvalidEvent(t *testing.T) {
	s := testStore(t)
	err := s.Append(context.Background(), models.FeedbackEvent{
		UserID:           "u1",
		RecommendationID: "a",
		EventType:        "TELEPORTED",
	})
	if err == nil {
		t.Error("unknown event type should be rejected")
	}
}

func TestCooldowns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.SetCooldown(ctx, "u1", "solar", now.Add(48*time.Hour)); err != nil {
		t.Fatalf("SetCooldown: %v", err)
	}
	if err := s.SetCooldown(ctx, "u1", "bike", now.Add(-time.Hour)); err != nil {
		t.Fatalf("SetCooldown expired: %v", err)
	}

	active, err := s.ActiveCooldowns(ctx, "u1", now)
	if err != nil {
		t.Fatalf("ActiveCooldowns: %v", err)
	}
	if _, ok := active["solar"]; !ok {
		t.Error("solar cooldown should be active")
	}
	if _, ok := active["bike"]; ok {
		t.Error("expired cooldown should not be active")
	}
}

func TestStreakRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	streak, err := s.GetStreak(ctx, "u1")
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if streak.Current != 0 {
		t.Errorf("fresh streak = %d, want 0", streak.Current)
	}

	streak.Current = 4
	streak.Longest = 9
	streak.LastDoneAt = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if err := s.PutStreak(ctx, streak); err != nil {
		t.Fatalf("PutStreak: %v", err)
	}

	got, err := s.GetStreak(ctx, "u1")
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if got.Current != 4 || got.Longest != 9 {
		t.Errorf("streak = %+v, want current 4 longest 9", got)
	}
}

func TestMemoryCatalog(t *testing.T) {
	catalog := NewMemoryCatalog([]models.CandidateItem{
		{ID: "a", Category: "energy", Active: true},
		{ID: "b", Category: "water", Active: false},
		{ID: "c", Category: "energy", Regions: []string{"PK"}, Active: true},
	})
	ctx := context.Background()

	t.Run("active filter", func(t *testing.T) {
		items, err := catalog.ListCandidates(ctx, models.FilterCriteria{ActiveOnly: true})
		if err != nil {
			t.Fatalf("ListCandidates: %v", err)
		}
		if len(items) != 2 {
			t.Errorf("len = %d, want 2", len(items))
		}
	})

	t.Run("region filter keeps regionless items", func(t *testing.T) {
		items, err := catalog.ListCandidates(ctx, models.FilterCriteria{Locale: "IN"})
		if err != nil {
			t.Fatalf("ListCandidates: %v", err)
		}
		for _, item := range items {
			if item.ID == "c" {
				t.Error("region-restricted item should be filtered for non-matching locale")
			}
		}
	})

	t.Run("get by id", func(t *testing.T) {
		item, err := catalog.GetCandidate(ctx, "a")
		if err != nil {
			t.Fatalf("GetCandidate: %v", err)
		}
		if item.Category != "energy" {
			t.Errorf("category = %s, want energy", item.Category)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := catalog.GetCandidate(ctx, "zzz")
		if err == nil {
			t.Error("unknown id should error")
		}
	})
}
