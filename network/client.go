// Package network provides the shared HTTP client used for calls to remote APIs.
package network

import (
	"net/http"
	"time"
)

// Client is shared by every outbound API call.
var Client = &http.Client{
	Timeout:   time.Minute,
	Transport: newTransport(),
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 20
	t.MaxIdleConnsPerHost = 10
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = time.Second
	return t
}
