package store

import (
	"sync"
	"testing"
	"time"

	"job-mailbox/internal/models"
)

func seed(status string) func(id int64) models.JobRecord {
	return func(id int64) models.JobRecord {
		return models.JobRecord{
			FileName:  "input.csv",
			Status:    status,
			CreatedAt: time.Now().UTC(),
		}
	}
}

func TestCreateAssignsIncreasingIDs(t *testing.T) {
	table := NewTable()
	a := table.Create(seed(models.StatusPending))
	b := table.Create(seed(models.StatusPending))
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("expected ids 1,2 got %d,%d", a.ID, b.ID)
	}
}

func TestCreateConcurrentIDsDistinctAndContiguous(t *testing.T) {
	table := NewTable()
	const n = 200
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- table.Create(seed(models.StatusPending)).ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
	for id := int64(1); id <= n; id++ {
		if !seen[id] {
			t.Fatalf("missing id %d in contiguous range", id)
		}
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	table := NewTable()
	rec := table.Create(func(id int64) models.JobRecord {
		return models.JobRecord{
			Status: models.StatusPending,
			Log:    []models.LogEntry{{Message: "created", Level: models.LevelInfo}},
		}
	})

	got, err := table.Get(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Log[0].Message = "mutated"
	got.Log = append(got.Log, models.LogEntry{Message: "extra"})

	again, err := table.Get(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(again.Log) != 1 || again.Log[0].Message != "created" {
		t.Fatalf("snapshot leaked back into table: %+v", again.Log)
	}
}

func TestGetUnknownID(t *testing.T) {
	table := NewTable()
	if _, err := table.Get(42); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestListAscendingOrder(t *testing.T) {
	table := NewTable()
	for i := 0; i < 5; i++ {
		table.Create(seed(models.StatusPending))
	}
	jobs := table.List()
	if len(jobs) != 5 {
		t.Fatalf("expected 5 jobs got %d", len(jobs))
	}
	for i, job := range jobs {
		if job.ID != int64(i+1) {
			t.Fatalf("list out of order at %d: id %d", i, job.ID)
		}
	}
}

func TestUpdateUnknownIDHasNoSideEffect(t *testing.T) {
	table := NewTable()
	err := table.Update(9, func(job *models.JobRecord) error {
		t.Fatal("mutate called for unknown id")
		return nil
	})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestTryClaimExactlyOneWinner(t *testing.T) {
	table := NewTable()
	rec := table.Create(seed(models.StatusPending))

	const workers = 50
	wins := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := table.TryClaim(rec.ID)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for ok := range wins {
		if ok {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one winner got %d", won)
	}
	got, _ := table.Get(rec.ID)
	if got.Status != models.StatusRunning {
		t.Fatalf("expected RUNNING got %s", got.Status)
	}
}

func TestTryClaimUnknownID(t *testing.T) {
	table := NewTable()
	if _, err := table.TryClaim(7); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}
