package notify

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domedit/edit"
)

func sampleRecords() []edit.Record {
	return []edit.Record{{
		Index:     0,
		Tag:       "el_a1b2",
		Selector:  "main > p:nth-of-type(2)",
		Changes:   map[string]string{"color": "red", "font-size": "20px"},
		Prev:      map[string]string{"color": "", "font-size": ""},
		Summary:   "Color: red; Size: 20px",
		Timestamp: time.Now().UnixMilli(),
	}}
}

type failingSink struct{ calls atomic.Int32 }

func (f *failingSink) SendCommit(context.Context, []edit.Record) error {
	f.calls.Add(1)
	return errors.New("backend down")
}
func (f *failingSink) SendRemoval(context.Context, edit.Removal) error {
	f.calls.Add(1)
	return errors.New("backend down")
}
func (f *failingSink) Close() error { return nil }

func TestRouter_OneFailureDoesNotBlockOthers(t *testing.T) {
	var buf bytes.Buffer
	bad := &failingSink{}
	r := NewRouter(nil, bad, NewStdout(&buf))

	err := r.SendCommit(context.Background(), sampleRecords())
	if err == nil {
		t.Fatal("router should surface the first error")
	}
	if buf.Len() == 0 {
		t.Fatal("healthy sink must still receive the commit")
	}
	if bad.calls.Load() != 1 {
		t.Fatalf("failing sink calls = %d, want 1", bad.calls.Load())
	}
}

func TestStdout_WritesEnvelopedJSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)

	if err := s.SendCommit(context.Background(), sampleRecords()); err != nil {
		t.Fatal(err)
	}
	if err := s.SendRemoval(context.Background(), edit.Removal{Index: 2, Remaining: 3}); err != nil {
		t.Fatal(err)
	}

	dec := json.NewDecoder(&buf)
	var first, second envelope
	if err := dec.Decode(&first); err != nil {
		t.Fatalf("first line: %v", err)
	}
	if err := dec.Decode(&second); err != nil {
		t.Fatalf("second line: %v", err)
	}
	if first.Type != "commit" || second.Type != "removal" {
		t.Errorf("types = %q, %q", first.Type, second.Type)
	}
}

func TestCallback_DeliversInProcess(t *testing.T) {
	var gotIndex = -1
	c := NewCallback(nil, func(_ context.Context, rem edit.Removal) error {
		gotIndex = rem.Index
		return nil
	})

	// nil commit handler is a no-op
	if err := c.SendCommit(context.Background(), sampleRecords()); err != nil {
		t.Fatal(err)
	}
	if err := c.SendRemoval(context.Background(), edit.Removal{Index: 4}); err != nil {
		t.Fatal(err)
	}
	if gotIndex != 4 {
		t.Fatalf("removal index = %d, want 4", gotIndex)
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var env envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil || env.Type != "commit" {
			t.Errorf("bad envelope: %v %q", err, env.Type)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.SendCommit(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if attempts.Load() != 2 {
		t.Fatalf("attempts = %d, want 2", attempts.Load())
	}
}

func TestWebhook_ExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	if err := w.SendCommit(context.Background(), sampleRecords()); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
}

func TestArchive_RoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	a, err := NewArchive(db)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := a.SendCommit(ctx, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	if err := a.SendRemoval(ctx, edit.Removal{Index: 0, Remaining: 0, Timestamp: time.Now().UnixMilli()}); err != nil {
		t.Fatal(err)
	}

	entries, err := a.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	var commit *ArchiveEntry
	for _, e := range entries {
		if e.Kind == "commit" {
			commit = e
		}
	}
	if commit == nil {
		t.Fatal("no commit entry archived")
	}
	if commit.Tag != "el_a1b2" || commit.Summary != "Color: red; Size: 20px" {
		t.Errorf("entry = %+v", commit)
	}
	var rec edit.Record
	if err := json.Unmarshal([]byte(commit.Payload), &rec); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if rec.Changes["color"] != "red" {
		t.Errorf("payload changes = %v", rec.Changes)
	}
}

func TestArchive_Cleanup(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	a, err := NewArchive(db)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	old := sampleRecords()
	old[0].Timestamp = time.Now().Add(-48 * time.Hour).UnixMilli()
	if err := a.SendCommit(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := a.SendCommit(ctx, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	n, err := a.Cleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("cleaned = %d, want 1", n)
	}
}
