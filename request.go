package matrixctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Request defaults.
const (
	DefaultScheme    = "https"
	DefaultSubdomain = "matrix"
	DefaultTimeout   = 5 * time.Second
)

// BodyKind identifies which body variant a Request carries.
type BodyKind int

// BodyKind constants. A Request carries at most one body.
const (
	BodyNone BodyKind = iota
	BodyForm
	BodyJSON
	BodyRaw
)

func (k BodyKind) String() string {
	switch k {
	case BodyForm:
		return "form"
	case BodyJSON:
		return "json"
	case BodyRaw:
		return "raw"
	default:
		return "none"
	}
}

// Param is a single query parameter. Params keep insertion order.
type Param struct {
	Key   string
	Value string
}

// Request describes one HTTP call against the homeserver. It is a value
// type: every With* method returns a modified copy and leaves the receiver
// untouched, so a base request can be shared between goroutines.
type Request struct {
	Scheme    string
	Subdomain string
	Domain    string
	Path      string
	Method    string
	Timeout   time.Duration

	// ConcurrentLimit is a hint for fan-out callers.
	ConcurrentLimit int

	params       []Param
	headers      map[string]string
	successCodes []int
	token        string

	bodyKind    BodyKind
	form        map[string]string
	json        any
	raw         []byte
	stream      io.Reader
	contentType string
}

// NewRequest returns a GET request for path on domain with the defaults
// applied: https scheme, "matrix" subdomain, 5s timeout, 2xx + 226 success.
func NewRequest(domain, path string) Request {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Request{
		Scheme:          DefaultScheme,
		Subdomain:       DefaultSubdomain,
		Domain:          domain,
		Path:            path,
		Method:          http.MethodGet,
		Timeout:         DefaultTimeout,
		ConcurrentLimit: 4,
	}
}

// WithMethod returns a copy using method.
func (r Request) WithMethod(method string) Request {
	r.Method = strings.ToUpper(method)
	return r
}

// WithPath returns a copy with a different path.
func (r Request) WithPath(path string) Request {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	r.Path = path
	return r
}

// WithScheme returns a copy using scheme.
func (r Request) WithScheme(scheme string) Request {
	r.Scheme = scheme
	return r
}

// WithSubdomain returns a copy using subdomain. An empty subdomain
// addresses the bare domain.
func (r Request) WithSubdomain(subdomain string) Request {
	r.Subdomain = subdomain
	return r
}

// WithTimeout returns a copy with a per-request timeout.
func (r Request) WithTimeout(d time.Duration) Request {
	r.Timeout = d
	return r
}

// WithConcurrentLimit returns a copy carrying the fan-out hint.
func (r Request) WithConcurrentLimit(n int) Request {
	r.ConcurrentLimit = n
	return r
}

// WithToken returns a copy authenticated with the bearer token.
func (r Request) WithToken(token string) Request {
	r.token = token
	return r
}

// WithParam returns a copy with the query parameter set. Setting an
// existing key replaces its value in place and keeps its position.
func (r Request) WithParam(key string, value any) Request {
	v := formatScalar(value)
	params := make([]Param, 0, len(r.params)+1)
	replaced := false
	for _, p := range r.params {
		if p.Key == key {
			p.Value = v
			replaced = true
		}
		params = append(params, p)
	}
	if !replaced {
		params = append(params, Param{Key: key, Value: v})
	}
	r.params = params
	return r
}

// WithHeader returns a copy with an extra header.
func (r Request) WithHeader(key, value string) Request {
	headers := make(map[string]string, len(r.headers)+1)
	for k, v := range r.headers {
		headers[k] = v
	}
	headers[key] = value
	r.headers = headers
	return r
}

// WithSuccessCodes returns a copy accepting exactly the given status codes.
func (r Request) WithSuccessCodes(codes ...int) Request {
	r.successCodes = append([]int(nil), codes...)
	return r
}

// WithJSON returns a copy with a JSON body. Any previous body is dropped.
func (r Request) WithJSON(v any) Request {
	r = r.clearBody()
	r.bodyKind = BodyJSON
	r.json = v
	return r
}

// WithForm returns a copy with a form-encoded body. Any previous body is
// dropped.
func (r Request) WithForm(form map[string]string) Request {
	r = r.clearBody()
	r.bodyKind = BodyForm
	r.form = make(map[string]string, len(form))
	for k, v := range form {
		r.form[k] = v
	}
	return r
}

// WithRaw returns a copy with a raw byte body sent with contentType.
// Any previous body is dropped.
func (r Request) WithRaw(data []byte, contentType string) Request {
	r = r.clearBody()
	r.bodyKind = BodyRaw
	r.raw = data
	r.contentType = contentType
	return r
}

// WithStream returns a copy whose body is read from rd. A streamed request
// can only be sent once.
func (r Request) WithStream(rd io.Reader, contentType string) Request {
	r = r.clearBody()
	r.bodyKind = BodyRaw
	r.stream = rd
	r.contentType = contentType
	return r
}

func (r Request) clearBody() Request {
	r.bodyKind = BodyNone
	r.form = nil
	r.json = nil
	r.raw = nil
	r.stream = nil
	r.contentType = ""
	return r
}

// Params returns a copy of the ordered query parameters.
func (r Request) Params() []Param {
	return append([]Param(nil), r.params...)
}

// Param returns the value of a query parameter.
func (r Request) Param(key string) (string, bool) {
	for _, p := range r.params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// BodyKind reports which body variant is set.
func (r Request) BodyKind() BodyKind {
	return r.bodyKind
}

// SuccessCodes returns the accepted status codes: the explicit set when one
// was given, otherwise every 2xx code plus 226.
func (r Request) SuccessCodes() []int {
	if len(r.successCodes) > 0 {
		return append([]int(nil), r.successCodes...)
	}
	codes := make([]int, 0, 101)
	for c := 200; c < 300; c++ {
		codes = append(codes, c)
	}
	return codes
}

// IsSuccess reports whether status is in the success set.
func (r Request) IsSuccess(status int) bool {
	if len(r.successCodes) == 0 {
		return status >= 200 && status < 300
	}
	for _, c := range r.successCodes {
		if c == status {
			return true
		}
	}
	return false
}

// URL returns <scheme>://[<subdomain>.]<domain><path>[?params].
func (r Request) URL() string {
	host := r.Domain
	if r.Subdomain != "" {
		host = r.Subdomain + "." + r.Domain
	}
	u := url.URL{
		Scheme:   r.Scheme,
		Host:     host,
		Path:     r.Path,
		RawQuery: r.encodeParams(),
	}
	return u.String()
}

func (r Request) encodeParams() string {
	if len(r.params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.params))
	for _, p := range r.params {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}

// Headers returns the request headers combined with the User-Agent and,
// when a token is set, the Authorization header.
func (r Request) Headers() map[string]string {
	headers := make(map[string]string, len(r.headers)+3)
	for k, v := range r.headers {
		headers[k] = v
	}
	headers["User-Agent"] = UserAgent()
	if r.token != "" {
		headers["Authorization"] = "Bearer " + r.token
	}
	if ct := r.bodyContentType(); ct != "" {
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = ct
		}
	}
	return headers
}

func (r Request) bodyContentType() string {
	switch r.bodyKind {
	case BodyForm:
		return "application/x-www-form-urlencoded"
	case BodyJSON:
		return "application/json"
	case BodyRaw:
		if r.contentType == "" {
			return "application/octet-stream"
		}
		return r.contentType
	default:
		return ""
	}
}

// Body encodes the request body. It returns a nil reader for BodyNone.
func (r Request) Body() (io.Reader, error) {
	switch r.bodyKind {
	case BodyForm:
		values := url.Values{}
		for k, v := range r.form {
			values.Set(k, v)
		}
		return strings.NewReader(values.Encode()), nil
	case BodyJSON:
		data, err := json.Marshal(r.json)
		if err != nil {
			return nil, Errorf(EINVALID, "cannot encode request body for %s: %v", r.Path, err)
		}
		return bytes.NewReader(data), nil
	case BodyRaw:
		if r.stream != nil {
			return r.stream, nil
		}
		return bytes.NewReader(r.raw), nil
	default:
		return nil, nil
	}
}

// String describes the request for debug logs. The bearer token is never
// included.
func (r Request) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request(method=%s, url=%s", r.Method, r.URL())

	keys := make([]string, 0, len(r.headers))
	for k := range r.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headers := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		v := r.headers[k]
		if strings.EqualFold(k, "Authorization") {
			v = Redact(v)
		}
		headers = append(headers, k+": "+v)
	}
	if r.token != "" {
		headers = append(headers, "Authorization: Bearer "+Redact(r.token))
	}
	fmt.Fprintf(&b, ", headers=[%s]", strings.Join(headers, ", "))
	fmt.Fprintf(&b, ", body=%s, timeout=%s, concurrent_limit=%d)", r.bodyKind, r.Timeout, r.ConcurrentLimit)
	return b.String()
}

// Redact replaces a secret with a marker that only reveals its length.
func Redact(secret string) string {
	return fmt.Sprintf("<redacted length=%d>", len(secret))
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Response is the buffered result of a request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return Errorf(ESERVER, "cannot decode server response: %v", err)
	}
	return nil
}

// Doer executes a single request.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// FanoutDoer executes requests concurrently with at most workers in
// flight and returns the responses in input order. If any request fails
// the error is a *FanoutError.
type FanoutDoer interface {
	DoAll(ctx context.Context, reqs []Request, workers int) ([]*Response, error)
}
