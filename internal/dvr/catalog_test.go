// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package dvr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newCatalogServer(t *testing.T, jobHits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/channels", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"number":"7.1","name":"WABC-DT"},{"number":"9.2","name":"WNYC"}]`))
	})
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		jobHits.Add(1)
		w.Write([]byte(`[{"id":"job-1","name":"Evening News","start_time":1768507200,"duration":3600}]`))
	})
	mux.HandleFunc("/api/v1/recordings/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"rec-9","title":"Late Movie","duration":5400,"completed":true}`))
	})
	mux.HandleFunc("/api/v1/all", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"file-3","title":"Space Docs","duration":2700,"genres":["Documentary"]}]`))
	})
	return httptest.NewServer(mux)
}

func newTestCatalog(t *testing.T, jobHits *atomic.Int64) *Catalog {
	t.Helper()
	srv := newCatalogServer(t, jobHits)
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	return NewCatalog(client, CatalogConfig{
		ChannelTTL: time.Hour,
		ProgramTTL: time.Hour,
		JobTTL:     time.Hour,
		VODTTL:     time.Hour,
	})
}

func TestCatalogLookups(t *testing.T) {
	var jobHits atomic.Int64
	cat := newTestCatalog(t, &jobHits)
	ctx := context.Background()

	ch, ok := cat.ChannelByNumber(ctx, "9.2")
	if !ok || ch.Name != "WNYC" {
		t.Errorf("ChannelByNumber = %+v, %v", ch, ok)
	}
	if _, ok := cat.ChannelByNumber(ctx, "99.9"); ok {
		t.Error("unknown channel reported found")
	}

	job, ok := cat.JobByID(ctx, "job-1")
	if !ok || job.Name != "Evening News" {
		t.Errorf("JobByID = %+v, %v", job, ok)
	}

	rec, ok := cat.RecordingByID(ctx, "rec-9")
	if !ok || rec.Title != "Late Movie" || !rec.Completed {
		t.Errorf("RecordingByID = %+v, %v", rec, ok)
	}

	item, ok := cat.VODByID(ctx, "file-3")
	if !ok || item.Title != "Space Docs" {
		t.Errorf("VODByID = %+v, %v", item, ok)
	}
	if _, ok := cat.VODByID(ctx, "file-404"); ok {
		t.Error("unknown file reported found")
	}
}

func TestCatalogInvalidateJobsForcesRefetch(t *testing.T) {
	var jobHits atomic.Int64
	cat := newTestCatalog(t, &jobHits)
	ctx := context.Background()

	cat.JobByID(ctx, "job-1")
	cat.JobByID(ctx, "job-1")
	if jobHits.Load() != 1 {
		t.Fatalf("job fetches = %d, want 1 (cached)", jobHits.Load())
	}

	cat.InvalidateJobs()
	cat.JobByID(ctx, "job-1")
	if jobHits.Load() != 2 {
		t.Errorf("job fetches after invalidation = %d, want 2", jobHits.Load())
	}
}

func TestCatalogDegradesWhenUpstreamDown(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond})
	cat := NewCatalog(client, CatalogConfig{ChannelTTL: time.Hour})

	if _, ok := cat.ChannelByNumber(context.Background(), "7.1"); ok {
		t.Error("lookup reported found with upstream unreachable")
	}
}

func TestCatalogStatsTracksStores(t *testing.T) {
	var jobHits atomic.Int64
	cat := newTestCatalog(t, &jobHits)

	cat.JobByID(context.Background(), "job-1")

	stats := cat.Stats()
	for _, name := range []string{"channels", "guide", "jobs", "recordings", "library"} {
		if _, ok := stats[name]; !ok {
			t.Errorf("stats missing store %q", name)
		}
	}
	if stats["jobs"].Loads != 1 {
		t.Errorf("jobs loads = %d, want 1", stats["jobs"].Loads)
	}
}
