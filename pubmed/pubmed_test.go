package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// esearchStub serves a canned esearch response and records the search term.
func esearchStub(t *testing.T, ids ...string) (*httptest.Server, *string) {
	t.Helper()
	var term string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("db"); got != "pubmed" {
			t.Errorf("request searched db %q, want pubmed", got)
		}
		term = r.URL.Query().Get("term")
		quoted := make([]string, len(ids))
		for i, id := range ids {
			quoted[i] = fmt.Sprintf("%q", id)
		}
		fmt.Fprintf(w, `{"esearchresult": {"count": "%v", "idlist": [%v]}}`,
			len(ids), strings.Join(quoted, ","))
	}))
	t.Cleanup(server.Close)
	return server, &term
}

func TestLookupID(t *testing.T) {
	server, term := esearchStub(t, "12805021")
	client := &Client{BaseURL: server.URL}

	id, err := client.LookupID(context.Background(), "Genetics", "2003", "Specht")
	if err != nil {
		t.Fatal("LookupID failed:", err)
	}
	if id != 12805021 {
		t.Errorf("LookupID = %v, want 12805021", id)
	}
	const wantTerm = "Genetics[Journal] AND 2003[Date - Publication] AND Specht[Author - First]"
	if *term != wantTerm {
		t.Errorf("search term = %q, want %q", *term, wantTerm)
	}
}

func TestLookupIDRejectsAmbiguousMatches(t *testing.T) {
	server, _ := esearchStub(t, "12805021", "20607128")
	client := &Client{BaseURL: server.URL}

	if id, err := client.LookupID(context.Background(), "Genetics", "2003", "Specht"); err == nil {
		t.Fatalf("LookupID = %v, want an error for an ambiguous citation", id)
	}
}

func TestLookupIDRejectsNoMatch(t *testing.T) {
	server, _ := esearchStub(t)
	client := &Client{BaseURL: server.URL}

	if id, err := client.LookupID(context.Background(), "Genetics", "2003", "Specht"); err == nil {
		t.Fatalf("LookupID = %v, want an error when nothing matches", id)
	}
}

func TestLookupIDRejectsIncompleteCitations(t *testing.T) {
	// No server: an incomplete citation must fail before any request is made.
	client := &Client{BaseURL: "http://127.0.0.1:0"}

	if id, err := client.LookupID(context.Background(), "", "2003", "Specht"); err == nil {
		t.Fatalf("LookupID = %v, want an error for a citation without a journal", id)
	}
}

func TestLookupIDSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)
	client := &Client{BaseURL: server.URL}

	if id, err := client.LookupID(context.Background(), "Genetics", "2003", "Specht"); err == nil {
		t.Fatalf("LookupID = %v, want an error for a throttled endpoint", id)
	}
}
