package fetcher_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"incentive-monitor/internal/infra/fetcher"
)

func TestAPIFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"programs": [{"name": "film credit", "rate": 25}]}`)
	}))
	defer srv.Close()

	f := fetcher.NewAPIFetcher(srv.Client())
	result, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch err=%v", err)
	}
	if result.Content == "" || result.Fingerprint == "" {
		t.Fatal("missing canonical content or fingerprint")
	}
}

func TestAPIFetcher_KeyOrderStable(t *testing.T) {
	// Same payload, different key order per response. The canonical
	// serialization must fingerprint both identically.
	bodies := []string{
		`{"rate": 25, "program": "film credit"}`,
		`{"program": "film credit", "rate": 25}`,
	}

	var call int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&call, 1) - 1
		fmt.Fprint(w, bodies[n])
	}))
	defer srv.Close()

	f := fetcher.NewAPIFetcher(srv.Client())

	first, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("first Fetch err=%v", err)
	}
	second, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("second Fetch err=%v", err)
	}

	if first.Fingerprint != second.Fingerprint {
		t.Fatal("fingerprint moved on key reordering alone")
	}
}

func TestAPIFetcher_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"broken":`)
	}))
	defer srv.Close()

	f := fetcher.NewAPIFetcher(srv.Client())
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestCanonicalJSON(t *testing.T) {
	t.Run("sorts nested keys", func(t *testing.T) {
		got, err := fetcher.CanonicalJSON([]byte(`{"b": {"z": 1, "a": 2}, "a": 3}`))
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		want := `{"a":3,"b":{"a":2,"z":1}}`
		if got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("preserves array order", func(t *testing.T) {
		got, err := fetcher.CanonicalJSON([]byte(`[3, 1, 2]`))
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if got != `[3,1,2]` {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		if _, err := fetcher.CanonicalJSON([]byte(`nope{`)); err == nil {
			t.Fatal("expected error")
		}
	})
}
