package httpx

import (
	"net"
	"net/http"
	"time"
)

// defaultClient serves the outbound Stripe and Maps calls: a handful
// of hosts, small payloads, and a hard deadline so a slow upstream
// never stalls a request handler past its own timeout.
var defaultClient = &http.Client{
	Timeout: 15 * time.Second,
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	},
}

func Client() *http.Client { return defaultClient }
