package openweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivgusev/queryrouter/internal/core/domain"
)

func TestCurrentMapsFullResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "Paris" || q.Get("appid") != "key" || q.Get("units") != "metric" {
			t.Errorf("unexpected query: %v", q)
		}
		_, _ = w.Write([]byte(`{
			"cod": 200,
			"name": "Paris",
			"sys": {"country": "FR"},
			"main": {"temp": 20.0, "feels_like": 19.5, "humidity": 70},
			"weather": [{"description": "sunny"}],
			"wind": {"speed": 2.1}
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "key")
	snapshot, err := client.Current(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	if snapshot.City != "Paris" || snapshot.Country != "FR" {
		t.Fatalf("location mapped wrong: %+v", snapshot)
	}
	if snapshot.Temperature == nil || *snapshot.Temperature != 20.0 {
		t.Fatalf("temperature = %v", snapshot.Temperature)
	}
	if snapshot.FeelsLike == nil || *snapshot.FeelsLike != 19.5 {
		t.Fatalf("feels_like = %v", snapshot.FeelsLike)
	}
	if snapshot.Humidity == nil || *snapshot.Humidity != 70 {
		t.Fatalf("humidity = %v", snapshot.Humidity)
	}
	if snapshot.Description != "sunny" {
		t.Fatalf("description = %q", snapshot.Description)
	}
	if snapshot.WindSpeed == nil || *snapshot.WindSpeed != 2.1 {
		t.Fatalf("wind_speed = %v", snapshot.WindSpeed)
	}
}

func TestCurrentMissingFieldsAreDataNotErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"cod": "200"}`))
	}))
	defer server.Close()

	client := New(server.URL, "key")
	snapshot, err := client.Current(context.Background(), "Nowhere")
	if err != nil {
		t.Fatalf("Current() error = %v, absence must be data", err)
	}
	if snapshot.City != "Nowhere" {
		t.Fatalf("expected fallback to the requested city, got %q", snapshot.City)
	}
	if snapshot.Temperature != nil || snapshot.FeelsLike != nil || snapshot.Humidity != nil || snapshot.WindSpeed != nil {
		t.Fatalf("expected nil optionals, got %+v", snapshot)
	}
	if snapshot.Country != "" || snapshot.Description != "" {
		t.Fatalf("expected empty strings for absent text fields, got %+v", snapshot)
	}
}

func TestCurrentNon200CodIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"cod": "404", "message": "city not found"}`))
	}))
	defer server.Close()

	client := New(server.URL, "key")
	snapshot, err := client.Current(context.Background(), "Atlantis")
	if err == nil {
		t.Fatalf("expected no-data error, got snapshot %+v", snapshot)
	}
	if !domain.IsKind(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if classifyWeatherError(err).Retry {
		t.Fatalf("a definitive provider answer must not be retried")
	}
}

func TestCurrentTransportErrorIsNoData(t *testing.T) {
	client := New("http://127.0.0.1:1", "key")
	if _, err := client.Current(context.Background(), "Paris"); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestCodeOKAcceptsBothWireForms(t *testing.T) {
	if !codeOK(float64(200)) || !codeOK("200") {
		t.Fatalf("200 must be accepted in numeric and string form")
	}
	if codeOK(float64(404)) || codeOK("404") || codeOK(nil) {
		t.Fatalf("non-200 values must be rejected")
	}
}
