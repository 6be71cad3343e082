// Package httpclient implements hsab's `fetch` family (spec C12). Stdlib
// net/http only: no retrieved repo in the pack reaches for a third-party
// HTTP client (the teacher talks to the Docker socket directly; resty,
// go-resty, and similar clients appear in neither the teacher nor the
// rest of the retrieval pack), so this is one of the explicitly justified
// stdlib exceptions recorded in DESIGN.md.
package httpclient

import (
	"io"
	"net/http"
	"strings"
	"time"
)

var methods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// IsMethod reports whether s looks like an HTTP method token (spec §4.12's
// 2-arg disambiguation rule).
func IsMethod(s string) bool {
	return methods[strings.ToUpper(s)]
}

// Response is the result of one fetch.
type Response struct {
	Status  int
	Headers map[string]string
	Body    string
	IsJSON  bool
}

var client = &http.Client{Timeout: 30 * time.Second}

// Fetch performs a blocking HTTP request. headers may be nil.
func Fetch(method, url, body string, headers map[string]string) (Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(strings.ToUpper(method), url, reader)
	if err != nil {
		return Response{}, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	hdrs := map[string]string{}
	for k := range resp.Header {
		hdrs[k] = resp.Header.Get(k)
	}

	ct := resp.Header.Get("Content-Type")
	return Response{
		Status:  resp.StatusCode,
		Headers: hdrs,
		Body:    string(data),
		IsJSON:  strings.Contains(ct, "application/json"),
	}, nil
}
