package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPChecker_StatusOK(t *testing.T) {
	var method, ua string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		ua = r.UserAgent()
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, 3)
	out := chk.Check(context.Background(), s.URL)
	if !out.Success {
		t.Fatalf("want success, got %+v", out)
	}
	if out.StatusCode != 200 {
		t.Fatalf("want status 200, got %d", out.StatusCode)
	}
	if method != http.MethodHead {
		t.Fatalf("want HEAD request, got %s", method)
	}
	if ua != DefaultUserAgent {
		t.Fatalf("want user agent %q, got %q", DefaultUserAgent, ua)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("latency should be >= 0, got %f", out.LatencyMS)
	}
}

func TestHTTPChecker_Status500(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	out := NewHTTPChecker(2*time.Second, 3).Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("want failure, got %+v", out)
	}
	if out.StatusCode != 500 || !strings.HasPrefix(out.Message, "500") {
		t.Fatalf("want status 500, got %d %q", out.StatusCode, out.Message)
	}
}

func TestHTTPChecker_HeadNotAllowedFallsBackToGet(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer s.Close()

	out := NewHTTPChecker(2*time.Second, 3).Check(context.Background(), s.URL)
	if !out.Success || out.StatusCode != http.StatusNoContent {
		t.Fatalf("want GET fallback success, got %+v", out)
	}
}

func redirectChain(hops int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(r.URL.Path, "/%d", &n)
		if n < hops {
			http.Redirect(w, r, fmt.Sprintf("/%d", n+1), http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestHTTPChecker_FollowsRedirectsUpToLimit(t *testing.T) {
	s := redirectChain(3)
	defer s.Close()

	out := NewHTTPChecker(2*time.Second, 3).Check(context.Background(), s.URL+"/0")
	if !out.Success {
		t.Fatalf("3 redirects should be followed, got %+v", out)
	}
}

func TestHTTPChecker_TooManyRedirectsIsDown(t *testing.T) {
	s := redirectChain(4)
	defer s.Close()

	out := NewHTTPChecker(2*time.Second, 3).Check(context.Background(), s.URL+"/0")
	if out.Success {
		t.Fatalf("4 redirects should fail, got %+v", out)
	}
	if out.StatusCode != 0 {
		t.Fatalf("want status 0 on redirect error, got %d", out.StatusCode)
	}
}

func TestHTTPChecker_UntrustedCertificateIsDown(t *testing.T) {
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer s.Close()

	out := NewHTTPChecker(2*time.Second, 3).Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("self-signed certificate must not count as up: %+v", out)
	}
}

func TestHTTPChecker_TimeoutSetsStatusZero(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	out := NewHTTPChecker(50*time.Millisecond, 3).Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("want failure due to timeout, got %+v", out)
	}
	if out.StatusCode != 0 {
		t.Fatalf("want status 0 on transport error, got %d", out.StatusCode)
	}
	if out.Message == "" {
		t.Fatalf("want non-empty error message")
	}
}

func TestHTTPChecker_BadURLIsDown(t *testing.T) {
	out := NewHTTPChecker(time.Second, 3).Check(context.Background(), "http://[::1")
	if out.Success || out.Message == "" {
		t.Fatalf("want failure with message, got %+v", out)
	}
}
