// Package model defines the interfaces shared by the packages
// composing the metadata client. Using narrow interfaces here keeps
// the core logic a pure function of its explicit inputs and makes
// every collaborator trivially replaceable in tests.
package model

import (
	"net/http"
	"os"
)

// HTTPClient is an http client. The [http.Client] type implements
// this interface, which only exposes what we actually use.
type HTTPClient interface {
	// Do should work like http.Client.Do.
	Do(req *http.Request) (*http.Response, error)
}

// Environment provides access to process environment variables. We
// read the environment through this interface so that the two knobs
// we honor can be injected in tests rather than mutated globally.
type Environment interface {
	// Getenv should work like os.Getenv.
	Getenv(key string) string
}

// osEnvironment is the [Environment] reading the process environment.
type osEnvironment struct{}

// Getenv implements Environment.Getenv
func (osEnvironment) Getenv(key string) string {
	return os.Getenv(key)
}

// OSEnvironment is the [Environment] backed by the process environment.
var OSEnvironment Environment = osEnvironment{}
