package generation

import (
	"context"
	"testing"
	"time"

	"reelforge/internal/domain"
)

func (f *fixture) aggregator() *Aggregator {
	return NewAggregator(f.projects, f.sentences, f.jobs)
}

func seedJob(t *testing.T, jobs *fakeJobs, id string, status domain.JobStatus) {
	t.Helper()
	if err := jobs.Create(context.Background(), &domain.Job{
		ID:        id,
		ProjectID: "proj-1",
		Type:      domain.JobTypeImage,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	jobs.byID[id].Status = status
}

func TestProjectSnapshotCountsFailedInDenominator(t *testing.T) {
	fix := newFixture(sentence("s1", nil))
	seedJob(t, fix.jobs, "j1", domain.JobStatusCompleted)
	seedJob(t, fix.jobs, "j2", domain.JobStatusCompleted)
	seedJob(t, fix.jobs, "j3", domain.JobStatusFailed)
	seedJob(t, fix.jobs, "j4", domain.JobStatusRunning)

	snap, err := fix.aggregator().ProjectSnapshot(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ProjectSnapshot: %v", err)
	}
	if snap.TotalJobs != 4 {
		t.Fatalf("total jobs = %d, want 4", snap.TotalJobs)
	}
	if snap.Percent != 50 {
		t.Fatalf("percent = %v, want 50 (failed jobs stay in the denominator)", snap.Percent)
	}
	if snap.FailedCount != 1 || snap.RunningCount != 1 || snap.CompletedCount != 2 {
		t.Fatalf("counts = %+v", snap)
	}
	if snap.Done {
		t.Fatal("snapshot must not be done while a job is running")
	}
}

func TestProjectSnapshotDoneOnlyWhenAllTerminal(t *testing.T) {
	fix := newFixture(sentence("s1", nil))
	seedJob(t, fix.jobs, "j1", domain.JobStatusCompleted)
	seedJob(t, fix.jobs, "j2", domain.JobStatusFailed)

	snap, err := fix.aggregator().ProjectSnapshot(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ProjectSnapshot: %v", err)
	}
	if !snap.Done {
		t.Fatal("all jobs terminal, snapshot should be done")
	}
	if snap.Percent != 50 {
		t.Fatalf("percent = %v, want 50", snap.Percent)
	}
}

func TestProjectSnapshotNoJobs(t *testing.T) {
	fix := newFixture(sentence("s1", nil))

	snap, err := fix.aggregator().ProjectSnapshot(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ProjectSnapshot: %v", err)
	}
	if snap.Percent != 0 || snap.Done {
		t.Fatalf("empty project snapshot = %+v, want 0%% and not done", snap)
	}
}

func TestProjectSnapshotSectionCompletion(t *testing.T) {
	fix := newFixture(
		sentence("s1", func(s *domain.Sentence) { s.Status = domain.SentenceStatusCompleted }),
		sentence("s2", func(s *domain.Sentence) { s.Status = domain.SentenceStatusCompleted }),
		sentence("s3", func(s *domain.Sentence) {
			s.SectionID = "sec-2"
			s.Status = domain.SentenceStatusGenerating
		}),
	)

	snap, err := fix.aggregator().ProjectSnapshot(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ProjectSnapshot: %v", err)
	}
	if snap.TotalSections != 2 || len(snap.Sections) != 2 {
		t.Fatalf("sections = %+v, want 2", snap.Sections)
	}
	if !snap.Sections[0].Completed || snap.Sections[1].Completed {
		t.Fatalf("section completion = %+v, want [done, not done]", snap.Sections)
	}
	if snap.CurrentSection != 2 {
		t.Fatalf("current section = %d, want 2", snap.CurrentSection)
	}
}

func TestProjectSnapshotServedFromCacheWithinTTL(t *testing.T) {
	fix := newFixture(sentence("s1", nil))
	agg := fix.aggregator()

	first, err := agg.ProjectSnapshot(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ProjectSnapshot: %v", err)
	}

	seedJob(t, fix.jobs, "j1", domain.JobStatusQueued)

	second, err := agg.ProjectSnapshot(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ProjectSnapshot: %v", err)
	}
	if second.TotalJobs != first.TotalJobs {
		t.Fatalf("cached snapshot changed: %d vs %d total jobs", second.TotalJobs, first.TotalJobs)
	}

	agg.cache.Flush()
	third, err := agg.ProjectSnapshot(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ProjectSnapshot: %v", err)
	}
	if third.TotalJobs != 1 {
		t.Fatalf("fresh snapshot total jobs = %d, want 1", third.TotalJobs)
	}
}

func TestSceneStats(t *testing.T) {
	fix := newFixture(
		// Needs its image, so also not yet eligible for video.
		sentence("s1", nil),
		// Has a fresh image, needs the video.
		sentence("s2", func(s *domain.Sentence) {
			s.ImageFile = "projects/proj-1/images/s2.png"
			s.ImageDirty = false
		}),
		// Fully covered.
		sentence("s3", func(s *domain.Sentence) {
			s.ImageFile = "projects/proj-1/images/s3.png"
			s.ImageDirty = false
			s.VideoFile = "projects/proj-1/videos/s3.mp4"
			s.VideoDirty = false
		}),
	)

	stats, err := fix.aggregator().SceneStats(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("SceneStats: %v", err)
	}
	want := SceneStats{Total: 3, WithImages: 2, WithVideos: 1, NeedingImages: 1, NeedingVideos: 1}
	if *stats != want {
		t.Fatalf("stats = %+v, want %+v", *stats, want)
	}
}

func TestActiveJobCount(t *testing.T) {
	fix := newFixture(sentence("s1", nil))
	seedJob(t, fix.jobs, "j1", domain.JobStatusQueued)
	seedJob(t, fix.jobs, "j2", domain.JobStatusRunning)
	seedJob(t, fix.jobs, "j3", domain.JobStatusCompleted)
	seedJob(t, fix.jobs, "j4", domain.JobStatusFailed)

	active, err := fix.aggregator().ActiveJobCount(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ActiveJobCount: %v", err)
	}
	if active != 2 {
		t.Fatalf("active = %d, want 2", active)
	}
}

func waitEvent(t *testing.T, ch <-chan StreamEvent) StreamEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stream event")
		return StreamEvent{}
	}
}

func TestBroadcasterDeliversConnectedThenProgress(t *testing.T) {
	fix := newFixture(sentence("s1", nil))
	seedJob(t, fix.jobs, "j1", domain.JobStatusRunning)

	agg := fix.aggregator()
	b := NewBroadcaster(agg, time.Hour, testLogger())

	events, cancel := b.Subscribe("proj-1")
	defer cancel()

	if ev := waitEvent(t, events); ev.Type != StreamEventConnected {
		t.Fatalf("first event = %q, want connected", ev.Type)
	}

	b.tick(context.Background())
	ev := waitEvent(t, events)
	if ev.Type != StreamEventProgress {
		t.Fatalf("event = %q, want progress", ev.Type)
	}
	if ev.Snapshot == nil || ev.Snapshot.RunningCount != 1 {
		t.Fatalf("snapshot = %+v, want one running job", ev.Snapshot)
	}
}

func TestBroadcasterEmitsCompleteWhenWorkDrains(t *testing.T) {
	fix := newFixture(sentence("s1", nil))
	seedJob(t, fix.jobs, "j1", domain.JobStatusCompleted)

	agg := fix.aggregator()
	b := NewBroadcaster(agg, time.Hour, testLogger())

	events, cancel := b.Subscribe("proj-1")
	defer cancel()
	waitEvent(t, events) // connected

	b.tick(context.Background())
	if ev := waitEvent(t, events); ev.Type != StreamEventComplete {
		t.Fatalf("event = %q, want complete", ev.Type)
	}
}

func TestBroadcasterCancelStopsDelivery(t *testing.T) {
	fix := newFixture(sentence("s1", nil))
	b := NewBroadcaster(fix.aggregator(), time.Hour, testLogger())

	events, cancel := b.Subscribe("proj-1")
	waitEvent(t, events) // connected
	cancel()

	b.tick(context.Background())
	select {
	case ev := <-events:
		t.Fatalf("received %q after cancel", ev.Type)
	default:
	}
}
