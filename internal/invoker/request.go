package invoker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const (
	ContentTypeBinary = "application/octet-stream"
	ContentTypeJSON   = "application/json"
)

type payloadKind int

const (
	payloadUnset payloadKind = iota
	payloadBytes
	payloadURL
	payloadDocument
	payloadNone
)

// Payload is the request body. Build it with RawBytes, ImageURL, Document or NoBody;
// the zero value is rejected by Invoke.
type Payload struct {
	kind payloadKind
	raw  []byte
	url  string
	doc  any
}

// RawBytes sends b verbatim as application/octet-stream.
func RawBytes(b []byte) Payload { return Payload{kind: payloadBytes, raw: b} }

// ImageURL sends {"<field>": u} as application/json. The field name comes from Request.URLField.
func ImageURL(u string) Payload { return Payload{kind: payloadURL, url: u} }

// Document sends v marshalled as application/json.
func Document(v any) Payload { return Payload{kind: payloadDocument, doc: v} }

// NoBody is for control calls (listing, polling) that carry no image.
func NoBody() Payload { return Payload{kind: payloadNone} }

// ContentType is the only content type the payload may be sent with.
func (p Payload) ContentType() string {
	switch p.kind {
	case payloadBytes:
		return ContentTypeBinary
	case payloadURL, payloadDocument:
		return ContentTypeJSON
	}
	return ""
}

// Encode returns the request body. The same payload always encodes to the same bytes.
func (p Payload) Encode(urlField string) ([]byte, error) {
	switch p.kind {
	case payloadBytes:
		return p.raw, nil
	case payloadURL:
		if urlField == "" {
			urlField = "url"
		}
		return json.Marshal(map[string]string{urlField: p.url})
	case payloadDocument:
		return json.Marshal(p.doc)
	case payloadNone:
		return nil, nil
	}
	return nil, fmt.Errorf("payload is not set")
}

// Request describes one outbound inference call.
type Request struct {
	Op         string // short label used in faults and logs, e.g. "classify image"
	Method     string // defaults to POST
	Endpoint   string // absolute URL without query
	AuthHeader string // e.g. "Prediction-Key", "Ocp-Apim-Subscription-Key", "Authorization"
	AuthValue  string
	Payload    Payload
	// ContentType, when set, must match the payload.
	ContentType string
	// URLField names the JSON key ImageURL payloads are sent under. Defaults to "url".
	URLField string
	// Query values with several entries are sent joined by commas.
	Query  map[string][]string
	Accept string
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodPost
	}
	return r.Method
}

func (r Request) validate() *Fault {
	u, err := url.Parse(r.Endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return configFault(r.Op, "endpoint %q is not an absolute http(s) URL", r.Endpoint)
	}
	if r.AuthHeader == "" || strings.TrimSpace(r.AuthValue) == "" {
		return configFault(r.Op, "credential for %s is empty", headerLabel(r.AuthHeader))
	}
	switch r.Payload.kind {
	case payloadUnset:
		return configFault(r.Op, "payload is not set")
	case payloadURL:
		if strings.TrimSpace(r.Payload.url) == "" {
			return configFault(r.Op, "image url is empty")
		}
	case payloadBytes:
		if len(r.Payload.raw) == 0 {
			return configFault(r.Op, "image bytes are empty")
		}
	}
	if r.ContentType != "" && r.ContentType != r.Payload.ContentType() {
		return configFault(r.Op, "content type %q does not match payload (%q)", r.ContentType, r.Payload.ContentType())
	}
	return nil
}

func headerLabel(h string) string {
	if h == "" {
		return "auth header"
	}
	return h
}

// EncodeQuery renders Query deterministically: keys sorted, multi-values comma-joined.
func (r Request) EncodeQuery() string {
	if len(r.Query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(r.Query))
	for k := range r.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		vs := r.Query[k]
		if len(vs) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(strings.Join(vs, ",")))
	}
	return b.String()
}

func (r Request) fullURL() string {
	q := r.EncodeQuery()
	if q == "" {
		return r.Endpoint
	}
	sep := "?"
	if strings.Contains(r.Endpoint, "?") {
		sep = "&"
	}
	return r.Endpoint + sep + q
}

func (r Request) body() (*bytes.Reader, error) {
	b, err := r.Payload.Encode(r.URLField)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// JoinEndpoint joins base and path with exactly one slash, whatever trailing slash the
// configured endpoint carries.
func JoinEndpoint(base string, parts ...string) string {
	out := strings.TrimRight(strings.TrimSpace(base), "/")
	for _, p := range parts {
		out += "/" + strings.Trim(p, "/")
	}
	return out
}
