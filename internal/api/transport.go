package api

import (
	"log"
	"net/http"
	"strings"

	"golang.org/x/net/http2"
)

// NewTransport returns the round tripper used when no http.Client is supplied.
// https base URLs negotiate HTTP/2 through ALPN and fall back to HTTP/1.1.
func NewTransport(baseURL string) http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}
	transport := base.Clone()
	if !strings.HasPrefix(strings.ToLower(baseURL), "https://") {
		return transport
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		log.Printf("event=http2_configure_failed base_url=%s err=%v", baseURL, err)
	}
	return transport
}
