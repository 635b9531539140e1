package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestSearchTVSendsYearFilter(t *testing.T) {
	var captured url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/tv" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		captured = r.URL.Query()
		payload := map[string]any{
			"page": 1, "total_pages": 1, "total_results": 1,
			"results": []map[string]any{
				{"id": 1399, "name": "Some Show", "first_air_date": "1994-09-22", "vote_count": 9000},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client, err := New("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := client.SearchTV(context.Background(), "Some Show", 1994)
	if err != nil {
		t.Fatalf("SearchTV: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != 1399 {
		t.Fatalf("unexpected results %+v", resp.Results)
	}
	if captured.Get("first_air_date_year") != "1994" {
		t.Fatalf("expected year filter, got %q", captured.Get("first_air_date_year"))
	}
	if captured.Get("language") != "en-US" {
		t.Fatalf("expected language param, got %q", captured.Get("language"))
	}
}

func TestGetSeasonDetailsReturnsRuntimes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/1399/season/1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		payload := map[string]any{
			"id": 3624, "name": "Season 1", "season_number": 1,
			"episodes": []map[string]any{
				{"id": 1, "episode_number": 1, "runtime": 58},
				{"id": 2, "episode_number": 2, "runtime": 59},
				{"id": 3, "episode_number": 3, "runtime": 58},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client, err := New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	details, err := client.GetSeasonDetails(context.Background(), 1399, 1)
	if err != nil {
		t.Fatalf("GetSeasonDetails: %v", err)
	}
	if len(details.Episodes) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(details.Episodes))
	}
	if details.Episodes[1].Runtime != 59 {
		t.Fatalf("unexpected runtime %d", details.Episodes[1].Runtime)
	}
}

func TestSearchTVSurfacesHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.SearchTV(context.Background(), "Some Show", 0); err == nil {
		t.Fatal("expected error for http 401")
	}
}
