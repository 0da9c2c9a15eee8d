package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newStubReverser(t *testing.T, handler http.HandlerFunc) *NominatimReverser {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	r := NewNominatimReverser("test-agent")
	r.baseURL = srv.URL
	return r
}

func TestReverseGeocodePrefersCounty(t *testing.T) {
	r := newStubReverser(t, func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("missing User-Agent header")
		}
		if req.URL.Query().Get("accept-language") != "zh-TW" {
			t.Errorf("accept-language = %q", req.URL.Query().Get("accept-language"))
		}
		_, _ = w.Write([]byte(`{"address":{"county":"臺北市","city":"別的"}}`))
	})

	got := r.ReverseGeocode(context.Background(), 25.03, 121.56)
	if got != "台北市" {
		t.Errorf("ReverseGeocode = %q, want 台北市 (臺 folded to 台)", got)
	}
}

func TestReverseGeocodeFallsBackToCity(t *testing.T) {
	r := newStubReverser(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"address":{"city":"新竹市"}}`))
	})
	if got := r.ReverseGeocode(context.Background(), 24.8, 120.97); got != "新竹市" {
		t.Errorf("ReverseGeocode = %q, want 新竹市", got)
	}
}

func TestReverseGeocodeDefaults(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"empty address", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"address":{}}`))
		}},
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"not json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newStubReverser(t, tt.handler)
			if got := r.ReverseGeocode(context.Background(), 0, 0); got != UnknownRegion {
				t.Errorf("ReverseGeocode = %q, want %q", got, UnknownRegion)
			}
		})
	}
}
