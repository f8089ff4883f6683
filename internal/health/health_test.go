package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benaskins/fixturehost/internal/api"
)

func TestProbeHealthy(t *testing.T) {
	srv := httptest.NewServer(api.NewHandler("/files/", http.NotFoundHandler()))
	defer srv.Close()

	res := Probe(context.Background(), Config{Name: "http", URL: srv.URL})
	if res.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s: %s", res.Status, res.Message)
	}
	if res.Info == nil || res.Info.Domain != "127.0.0.1" {
		t.Errorf("unexpected info %+v", res.Info)
	}
	if res.TLSVersion != "" {
		t.Errorf("plain probe reported TLS version %q", res.TLSVersion)
	}
}

func TestProbeTLS(t *testing.T) {
	srv := httptest.NewTLSServer(api.NewHandler("/files/", http.NotFoundHandler()))
	defer srv.Close()

	pool := srv.Client().Transport.(*http.Transport).TLSClientConfig.RootCAs

	res := Probe(context.Background(), Config{Name: "https", URL: srv.URL, RootCAs: pool})
	if res.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s: %s", res.Status, res.Message)
	}
	if res.TLSVersion == "" {
		t.Error("expected TLS version to be reported")
	}
}

func TestProbeUntrustedCert(t *testing.T) {
	srv := httptest.NewTLSServer(api.NewHandler("/files/", http.NotFoundHandler()))
	defer srv.Close()

	res := Probe(context.Background(), Config{Name: "https", URL: srv.URL})
	if res.Status != StatusUnhealthy {
		t.Fatal("expected unhealthy for untrusted certificate")
	}

	res = Probe(context.Background(), Config{Name: "https", URL: srv.URL, Insecure: true})
	if res.Status != StatusHealthy {
		t.Fatalf("expected healthy with Insecure, got %s", res.Message)
	}
}

func TestProbeWrongPort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"domain":"localhost","port":1}`)
	}))
	defer srv.Close()

	res := Probe(context.Background(), Config{Name: "http", URL: srv.URL})
	if res.Status != StatusUnhealthy {
		t.Fatal("expected unhealthy when reported port differs")
	}
}

func TestProbeBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	res := Probe(context.Background(), Config{Name: "http", URL: srv.URL})
	if res.Status != StatusUnhealthy {
		t.Fatal("expected unhealthy for 404")
	}
}

func TestProbeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := Probe(context.Background(), Config{Name: "http", URL: url})
	if res.Status != StatusUnhealthy || res.Message == "" {
		t.Errorf("expected unhealthy with message, got %+v", res)
	}
}

func TestExpectedPort(t *testing.T) {
	cases := map[string]int{
		"http://localhost:8000": 8000,
		"https://localhost":     443,
		"http://localhost":      80,
	}
	for u, want := range cases {
		got, err := expectedPort(u)
		if err != nil || got != want {
			t.Errorf("expectedPort(%q) = %d, %v; want %d", u, got, err, want)
		}
	}
}
