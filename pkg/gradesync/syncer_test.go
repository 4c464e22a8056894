package gradesync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeSyncStore struct {
	attempts map[string]Attempt
	grades   map[string]Grade
	marks    []string // "pending", "ok", "failed:<err>"
}

func (f *fakeSyncStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return Attempt{}, errors.New("attempt not found")
	}
	return a, nil
}

func (f *fakeSyncStore) GetGrade(_ context.Context, attemptID string) (Grade, error) {
	g, ok := f.grades[attemptID]
	if !ok {
		return Grade{}, errors.New("grade not found")
	}
	return g, nil
}

func (f *fakeSyncStore) MarkSyncPending(_ context.Context, _ string) error {
	f.marks = append(f.marks, "pending")
	return nil
}

func (f *fakeSyncStore) MarkSyncOK(_ context.Context, _ string) error {
	f.marks = append(f.marks, "ok")
	return nil
}

func (f *fakeSyncStore) MarkSyncFailed(_ context.Context, _, lastErr string) error {
	f.marks = append(f.marks, "failed:"+lastErr)
	return nil
}

type fakeRecordsClient struct {
	entries []RecordEntry
	err     error
}

func (f *fakeRecordsClient) PostRecord(_ context.Context, e RecordEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func seedSyncStore() *fakeSyncStore {
	return &fakeSyncStore{
		attempts: map[string]Attempt{
			"at-1": {ID: "at-1", AssessmentID: "quiz-1", StudentID: "alice", Status: "graded", SubmittedAt: 1000},
		},
		grades: map[string]Grade{
			"at-1": {AttemptID: "at-1", PointsEarned: 18, PointsMax: 20, Percent: 90, Letter: "A", Passed: true, Status: "completed", GradedAt: 1100},
		},
	}
}

func TestSyncAttemptPostsCompletedGrade(t *testing.T) {
	st := seedSyncStore()
	cl := &fakeRecordsClient{}
	now := func() time.Time { return time.Unix(1200, 0) }

	if err := New(st, cl, now).SyncAttempt(context.Background(), "at-1"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(cl.entries) != 1 {
		t.Fatalf("posted %d entries, want 1", len(cl.entries))
	}
	e := cl.entries[0]
	if e.AttemptID != "at-1" || e.StudentID != "alice" || e.AssessmentID != "quiz-1" {
		t.Fatalf("entry identity: %+v", e)
	}
	if e.PointsEarned != 18 || e.PointsMax != 20 || e.Letter != "A" || !e.Passed {
		t.Fatalf("entry grade: %+v", e)
	}
	if e.SyncedAt != 1200 {
		t.Fatalf("synced_at = %d, want clock time", e.SyncedAt)
	}
	if len(st.marks) != 2 || st.marks[0] != "pending" || st.marks[1] != "ok" {
		t.Fatalf("marks %v, want [pending ok]", st.marks)
	}
}

func TestSyncAttemptRejectsIncompleteGrade(t *testing.T) {
	st := seedSyncStore()
	g := st.grades["at-1"]
	g.Status = "manual_review"
	st.grades["at-1"] = g
	cl := &fakeRecordsClient{}

	err := New(st, cl, nil).SyncAttempt(context.Background(), "at-1")
	if err == nil || !strings.Contains(err.Error(), "not completed") {
		t.Fatalf("got %v, want not-completed rejection", err)
	}
	if len(cl.entries) != 0 {
		t.Fatalf("incomplete grade was posted")
	}
	if len(st.marks) != 0 {
		t.Fatalf("sync state touched for rejected grade: %v", st.marks)
	}
}

func TestSyncAttemptRecordsFailure(t *testing.T) {
	st := seedSyncStore()
	cl := &fakeRecordsClient{err: errors.New("records system 502")}

	err := New(st, cl, nil).SyncAttempt(context.Background(), "at-1")
	if err == nil {
		t.Fatalf("want error from failed post")
	}
	if len(st.marks) != 2 || st.marks[0] != "pending" || !strings.HasPrefix(st.marks[1], "failed:") {
		t.Fatalf("marks %v, want [pending failed:...]", st.marks)
	}
	if !strings.Contains(st.marks[1], "502") {
		t.Fatalf("failure mark lost the cause: %v", st.marks)
	}
}

func TestSyncAttemptUnknownAttempt(t *testing.T) {
	st := seedSyncStore()
	if err := New(st, &fakeRecordsClient{}, nil).SyncAttempt(context.Background(), "nope"); err == nil {
		t.Fatalf("want error for unknown attempt")
	}
}
