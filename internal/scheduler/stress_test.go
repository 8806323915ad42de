package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestEngineConcurrentScheduleAndCancel(t *testing.T) {
	engine := NewEngine(4096)
	engine.Start()
	defer engine.Stop()

	const plants = 8
	const perPlant = 100

	// Every plant schedules a short watering reminder it keeps and a far
	// feeding reminder another goroutine cancels.
	var mu sync.Mutex
	kept := make(map[string]bool)
	cancelCh := make(chan string, plants*perPlant)

	var wg sync.WaitGroup
	for p := 0; p < plants; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			name := fmt.Sprintf("plant_%08d", p)
			for i := 0; i < perPlant; i++ {
				id, err := engine.Schedule("Water "+name, name+" needs watering", time.Duration(i%40+5)*time.Millisecond)
				if err != nil {
					t.Errorf("schedule watering: %v", err)
					return
				}
				mu.Lock()
				kept[id] = true
				mu.Unlock()

				far, err := engine.Schedule("Feed "+name, name+" needs feeding", time.Hour)
				if err != nil {
					t.Errorf("schedule feeding: %v", err)
					return
				}
				cancelCh <- far
			}
		}(p)
	}

	var cancelWG sync.WaitGroup
	for c := 0; c < 4; c++ {
		cancelWG.Add(1)
		go func() {
			defer cancelWG.Done()
			for id := range cancelCh {
				if err := engine.Cancel(id); err != nil {
					t.Errorf("cancel %s: %v", id, err)
				}
			}
		}()
	}
	wg.Wait()
	close(cancelCh)
	cancelWG.Wait()

	total := plants * perPlant
	deadline := time.After(5 * time.Second)
	for received := 0; received < total; {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting reminders: received=%d total=%d dropped=%d", received, total, engine.Dropped())
		case ev := <-engine.C():
			mu.Lock()
			ok := kept[ev.ID]
			delete(kept, ev.ID)
			mu.Unlock()
			if !ok {
				t.Fatalf("unexpected or duplicate reminder %s %q", ev.ID, ev.Title)
			}
			received++
		}
	}

	if n := engine.Pending(); n != 0 {
		t.Fatalf("expected cancelled reminders gone from the queue, %d pending", n)
	}
	if engine.Dropped() != 0 {
		t.Fatalf("expected zero drops with active consumer, got=%d", engine.Dropped())
	}
}

func TestEngineConcurrentReplaceKeepsOnePerTask(t *testing.T) {
	engine := NewEngine(64)
	engine.Start()
	defer engine.Stop()

	const tasks = 16
	fireAt := time.Now().UTC().Add(time.Hour)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < tasks; i++ {
				ev := ReminderEvent{
					ID:        fmt.Sprintf("task_%02d", i),
					Title:     "Water plant",
					TriggerAt: fireAt.Add(time.Duration(w) * time.Minute),
				}
				if err := engine.Enqueue(ev); err != nil {
					t.Errorf("enqueue: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if n := engine.Pending(); n != tasks {
		t.Fatalf("expected one pending reminder per task, got %d", n)
	}
}
