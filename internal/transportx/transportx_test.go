package transportx

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stephenplusplus/gcp-metadata/internal/errorsx"
	"github.com/stephenplusplus/gcp-metadata/internal/model"
	"github.com/stephenplusplus/gcp-metadata/internal/testingx"
)

func newClient() *Client {
	return &Client{
		HTTPClient: http.DefaultClient,
		Logger:     model.DiscardLogger,
	}
}

func TestClientGet(t *testing.T) {
	t.Run("on success", func(t *testing.T) {
		// create a server behaving like the metadata service
		server := testingx.MustNewHTTPServer(testingx.MetadataHandler("my-host.example"))
		defer server.Close()

		resp, err := newClient().Get(context.Background(), &Request{
			URL:     server.URL,
			Timeout: time.Second,
		})

		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 200 {
			t.Fatal("unexpected status code", resp.StatusCode)
		}
		if resp.Headers.Get("Metadata-Flavor") != "Google" {
			t.Fatal("missing Metadata-Flavor header")
		}
		if diff := cmp.Diff("my-host.example", string(resp.Body)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("merges query params into the URL", func(t *testing.T) {
		// create a server echoing the raw query back
		server := testingx.MustNewHTTPServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(r.URL.RawQuery))
		}))
		defer server.Close()

		resp, err := newClient().Get(context.Background(), &Request{
			URL:     server.URL,
			Timeout: time.Second,
			Params:  map[string]string{"recursive": "true"},
		})

		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff("recursive=true", string(resp.Body)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("forwards the request headers", func(t *testing.T) {
		// create a server echoing a request header back
		server := testingx.MustNewHTTPServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(r.Header.Get("Metadata-Flavor")))
		}))
		defer server.Close()

		headers := http.Header{}
		headers.Set("Metadata-Flavor", "Google")
		resp, err := newClient().Get(context.Background(), &Request{
			URL:     server.URL,
			Headers: headers,
			Timeout: time.Second,
		})

		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff("Google", string(resp.Body)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("a non-2xx status is definitive and not retried", func(t *testing.T) {
		// create a server that always returns 404
		counting := &testingx.CountingHandler{
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(404)
				w.Write([]byte("not found"))
			}),
		}
		server := testingx.MustNewHTTPServer(counting)
		defer server.Close()

		resp, err := newClient().Get(context.Background(), &Request{
			URL:               server.URL,
			Timeout:           time.Second,
			NoResponseRetries: 3,
		})

		var failed *ErrRequestFailed
		if !errors.As(err, &failed) {
			t.Fatal("unexpected error", err)
		}
		if failed.Response.StatusCode != 404 {
			t.Fatal("unexpected status code", failed.Response.StatusCode)
		}
		if string(failed.Response.Body) != "not found" {
			t.Fatal("unexpected body")
		}
		if resp != nil {
			t.Fatal("expected nil response")
		}

		// make sure there was a single attempt
		if counting.Count() != 1 {
			t.Fatal("unexpected number of attempts", counting.Count())
		}
	})

	t.Run("retries no-response failures within the budget", func(t *testing.T) {
		// create a server that resets the first connection and
		// then behaves like the metadata service
		var calls atomic.Int64
		reset := testingx.HTTPHandlerReset()
		success := testingx.MetadataHandler("ok")
		server := testingx.MustNewHTTPServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				reset.ServeHTTP(w, r)
				return
			}
			success.ServeHTTP(w, r)
		}))
		defer server.Close()

		resp, err := newClient().Get(context.Background(), &Request{
			URL:               server.URL,
			Timeout:           time.Second,
			NoResponseRetries: 1,
		})

		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff("ok", string(resp.Body)); diff != "" {
			t.Fatal(diff)
		}
		if calls.Load() != 2 {
			t.Fatal("unexpected number of attempts", calls.Load())
		}
	})

	t.Run("returns a classified error once the budget is exhausted", func(t *testing.T) {
		// create a server that always resets connections
		server := testingx.MustNewHTTPServer(testingx.HTTPHandlerReset())
		defer server.Close()

		resp, err := newClient().Get(context.Background(), &Request{
			URL:               server.URL,
			Timeout:           time.Second,
			NoResponseRetries: 1,
		})

		var wrapper *errorsx.ErrWrapper
		if !errors.As(err, &wrapper) {
			t.Fatal("unexpected error", err)
		}
		if wrapper.Failure != errorsx.FailureConnectionReset {
			t.Fatal("unexpected failure", wrapper.Failure)
		}
		if resp != nil {
			t.Fatal("expected nil response")
		}
	})

	t.Run("classifies timeouts", func(t *testing.T) {
		// create a server that never replies
		server := testingx.MustNewHTTPServer(testingx.HTTPHandlerHang())
		defer server.Close()

		resp, err := newClient().Get(context.Background(), &Request{
			URL:     server.URL,
			Timeout: 100 * time.Millisecond,
		})

		var wrapper *errorsx.ErrWrapper
		if !errors.As(err, &wrapper) {
			t.Fatal("unexpected error", err)
		}
		if wrapper.Failure != errorsx.FailureGenericTimeoutError {
			t.Fatal("unexpected failure", wrapper.Failure)
		}
		if resp != nil {
			t.Fatal("expected nil response")
		}
	})

	t.Run("does not retry when the caller is gone", func(t *testing.T) {
		// create a server that never replies
		counting := &testingx.CountingHandler{Handler: testingx.HTTPHandlerHang()}
		server := testingx.MustNewHTTPServer(counting)
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		_, err := newClient().Get(ctx, &Request{
			URL:               server.URL,
			Timeout:           time.Second,
			NoResponseRetries: 10,
		})

		if err == nil {
			t.Fatal("expected an error")
		}
		if counting.Count() != 1 {
			t.Fatal("unexpected number of attempts", counting.Count())
		}
	})
}

func TestRequestWithURL(t *testing.T) {
	headers := http.Header{}
	headers.Set("Metadata-Flavor", "Google")
	req := &Request{
		URL:               "http://169.254.169.254/computeMetadata/v1/instance",
		Headers:           headers,
		Timeout:           time.Second,
		NoResponseRetries: 3,
		Params:            map[string]string{"recursive": "true"},
	}

	derived := req.WithURL("http://metadata.google.internal/computeMetadata/v1/instance")

	if derived.URL != "http://metadata.google.internal/computeMetadata/v1/instance" {
		t.Fatal("unexpected URL", derived.URL)
	}
	if diff := cmp.Diff(req.Headers, derived.Headers); diff != "" {
		t.Fatal(diff)
	}
	if derived.Timeout != req.Timeout {
		t.Fatal("unexpected timeout")
	}
	if derived.NoResponseRetries != req.NoResponseRetries {
		t.Fatal("unexpected retries")
	}
	if diff := cmp.Diff(req.Params, derived.Params); diff != "" {
		t.Fatal(diff)
	}
}
