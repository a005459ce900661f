package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/goaltracker/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	job := &jobs.ImportJob{JobID: "j1", UserID: "u1", Payload: []byte("data"), RowErrors: []string{"line 2"}}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	job.RowErrors[0] = "mutated"

	got, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Payload != nil {
		t.Error("payload should not be stored")
	}
	if got.RowErrors[0] != "line 2" {
		t.Errorf("stored job shares memory with caller: %v", got.RowErrors)
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob error = %v, want ErrJobNotFound", err)
	}
	if err := s.SaveJob(ctx, &jobs.ImportJob{}); err == nil {
		t.Error("expected error for missing job ID")
	}
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed := []*jobs.ImportJob{
		{JobID: "a", UserID: "u1", Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", UserID: "u1", Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Minute)},
		{JobID: "c", UserID: "u1", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(2 * time.Minute)},
		{JobID: "d", UserID: "u2", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, j := range seed {
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"by user newest first", jobs.JobFilter{UserID: "u1"}, []string{"c", "b", "a"}},
		{"by status", jobs.JobFilter{UserID: "u1", Status: jobs.JobStatusCompleted}, []string{"c", "a"}},
		{"limit and offset", jobs.JobFilter{UserID: "u1", Offset: 1, Limit: 1}, []string{"b"}},
		{"offset past end", jobs.JobFilter{UserID: "u1", Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d jobs, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].JobID != id {
					t.Errorf("jobs[%d] = %s, want %s", i, got[i].JobID, id)
				}
			}
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.SaveJob(ctx, &jobs.ImportJob{JobID: "j1", Status: jobs.JobStatusPending})

	if err := s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "cancelled"); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}
	got, _ := s.GetJob(ctx, "j1")
	if got.Status != jobs.JobStatusFailed || got.Error != "cancelled" {
		t.Errorf("job = %+v", got)
	}
	if err := s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("error = %v, want ErrJobNotFound", err)
	}
}
