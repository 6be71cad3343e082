// HTTP client builtin (spec C12): `fetch`/`fetch-status`/`fetch-headers`,
// bridging into pkg/httpclient's single blocking-request helper.
package builtins

import (
	"sort"
	"strings"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/httpclient"
	"github.com/hsab-shell/hsab/pkg/value"
)

func registerHTTP(r *Registry) {
	r.stack("fetch", func(h Host) error { return doFetch(h, fetchBody) })
	r.stack("fetch-status", func(h Host) error { return doFetch(h, fetchStatus) })
	r.stack("fetch-headers", func(h Host) error { return doFetch(h, fetchHeaders) })
}

type fetchMode int

const (
	fetchBody fetchMode = iota
	fetchStatus
	fetchHeaders
)

// doFetch implements the 1-4 argument disambiguation rule of spec §4.12.
// Arguments are popped top-first: an optional Map of headers (only valid
// in the 4-arg form), then up to three coercible values resolved into
// method/url/body depending on how many were present.
func doFetch(h Host, mode fetchMode) error {
	var headers map[string]string
	if top, ok := h.Peek(0); ok && top.Tag == value.TagMap {
		popped, err := h.Pop("fetch")
		if err != nil {
			return err
		}
		headers = map[string]string{}
		for _, k := range popped.MapKeys() {
			v, _ := popped.MapGet(k)
			headers[k] = v.AsArg()
		}
	}

	var rest []value.Value
	for len(rest) < 3 {
		v, ok := h.Peek(0)
		if !ok || !v.Coercible() {
			break
		}
		popped, _ := h.Pop("fetch")
		rest = append(rest, popped)
	}
	if len(rest) == 0 {
		return errtype.Exec("fetch requires at least a URL")
	}

	method, url, body := "GET", "", ""
	switch len(rest) {
	case 1:
		url = rest[0].AsArg()
	case 2:
		top, next := rest[0].AsArg(), rest[1].AsArg()
		switch {
		case httpclient.IsMethod(top):
			method, url = strings.ToUpper(top), next
		case httpclient.IsMethod(next):
			method, url = strings.ToUpper(next), top
		default:
			method, url, body = "POST", top, next
		}
	default:
		method, url, body = strings.ToUpper(rest[0].AsArg()), rest[1].AsArg(), rest[2].AsArg()
	}

	resp, err := httpclient.Fetch(method, url, body, headers)
	if err != nil {
		return errtype.Io(err)
	}
	exitCode := 0
	if resp.Status >= 400 {
		exitCode = 1
	}
	h.SetExitCode(exitCode)

	switch mode {
	case fetchStatus:
		h.Push(value.Number(float64(resp.Status)))
		return nil
	case fetchHeaders:
		h.Push(headersToMap(resp.Headers))
		return nil
	}

	if resp.IsJSON {
		if parsed, err := parseJSON(resp.Body); err == nil {
			h.Push(parsed)
			return nil
		}
	}
	h.Push(value.Output(resp.Body))
	return nil
}

func headersToMap(headers map[string]string) value.Value {
	keys := make([]string, 0, len(headers))
	fields := make(map[string]value.Value, len(headers))
	for k, v := range headers {
		keys = append(keys, k)
		fields[k] = value.Literal(v)
	}
	sort.Strings(keys)
	return value.Map(fields, keys)
}
