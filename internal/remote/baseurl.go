package remote

import (
	"net"
	"net/url"
	"strings"
)

// DevBaseURL is where a locally served client finds the API.
const DevBaseURL = "http://localhost:3000/api"

// BaseURLFor picks the API root for a client served from origin: the local
// development server for loopback hosts, otherwise origin + "/api".
func BaseURLFor(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return "/api"
	}
	if isLoopback(u.Hostname()) {
		return DevBaseURL
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host, "/") + "/api"
}

func isLoopback(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
