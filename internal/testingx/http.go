// Package testingx contains code for testing the metadata client
// against real local HTTP servers.
package testingx

import (
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/stephenplusplus/gcp-metadata/internal/runtimex"
)

// MustNewHTTPServer creates a new [*httptest.Server] using the given
// handler. This function panics on failure.
func MustNewHTTPServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	runtimex.Assert(server != nil, "testingx: cannot create HTTP server")
	return server
}

// MetadataHandler returns a handler behaving like the metadata
// service: it sets the Metadata-Flavor header and writes body.
func MetadataHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Metadata-Flavor", "Google")
		w.Write([]byte(body))
	})
}

// MetadataHandlerWithoutFlavor returns a handler that writes body
// without setting the Metadata-Flavor header, like a captive portal
// or any other server squatting the metadata addresses would.
func MetadataHandlerWithoutFlavor(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
}

// HTTPHandlerHang returns a handler that never replies and just
// waits for the client to give up, which a client with a timeout
// observes as a timeout failure.
func HTTPHandlerHang() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
}

// HTTPHandlerReset returns a handler that closes the underlying TCP
// connection with a RST segment, which the client observes as a
// connection-reset failure.
func HTTPHandlerReset() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hijacker, good := w.(http.Hijacker)
		runtimex.Assert(good, "testingx: the response writer is not an http.Hijacker")
		conn, _, err := hijacker.Hijack()
		runtimex.PanicOnError(err, "testingx: hijacker.Hijack failed")
		tcpConn, good := conn.(*net.TCPConn)
		runtimex.Assert(good, "testingx: the hijacked conn is not a *net.TCPConn")
		tcpConn.SetLinger(0)
		conn.Close()
	})
}

// CountingHandler wraps a handler and counts the requests it serves,
// so tests can assert that an operation made zero network calls.
type CountingHandler struct {
	// Handler is the wrapped handler.
	Handler http.Handler

	// count counts the served requests.
	count atomic.Int64
}

// ServeHTTP implements http.Handler.
func (ch *CountingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ch.count.Add(1)
	ch.Handler.ServeHTTP(w, r)
}

// Count returns the number of requests served so far.
func (ch *CountingHandler) Count() int64 {
	return ch.count.Load()
}
