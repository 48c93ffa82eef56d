// Package http provides a ByteSource backed by HTTP range requests,
// letting archives be parsed and read lazily from a remote server.
package http //nolint:revive // intentional naming for domain clarity

import (
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
)

// ErrRangeUnsupported is returned when the server ignores Range
// headers and answers with full content.
var ErrRangeUnsupported = errors.New("far: server does not support range requests")

// Source implements far.ByteSource over HTTP range requests.
//
// The remote content must be immutable for the Source's lifetime; this
// is the same precondition every archive byte source carries.
type Source struct {
	url      string
	client   *nethttp.Client
	headers  nethttp.Header
	size     int64
	sourceID string
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithSourceID overrides the default source identifier.
func WithSourceID(id string) Option {
	return func(s *Source) {
		s.sourceID = id
	}
}

// NewSource creates a Source for the given URL. It probes the remote
// with a one-byte range request to learn the content size and confirm
// range support.
func NewSource(url string, opts ...Option) (*Source, error) {
	s := &Source{
		url:    url,
		client: nethttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sourceID == "" {
		s.sourceID = "http:" + url
	}

	size, err := s.probeSize()
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	s.size = size
	return s, nil
}

// Size returns the remote content size.
func (s *Source) Size() int64 {
	return s.size
}

// SourceID returns a stable identifier for the remote content.
func (s *Source) SourceID() string {
	return s.sourceID
}

// ReadAt implements io.ReaderAt with one range request per call.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	expected := len(p)
	if end >= s.size {
		end = s.size - 1
		expected = int(end - off + 1)
	}

	resp, err := s.get(fmt.Sprintf("bytes=%d-%d", off, end))
	if err != nil {
		return 0, err
	}
	defer drainClose(resp.Body)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case nethttp.StatusOK:
		return 0, ErrRangeUnsupported
	default:
		return 0, fmt.Errorf("range request failed: %s", resp.Status)
	}

	n, err := io.ReadFull(resp.Body, p[:expected])
	if err != nil {
		return n, err
	}
	if expected < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// probeSize issues a one-byte range request and reads the total size
// from Content-Range, falling back to HEAD for empty content.
func (s *Source) probeSize() (int64, error) {
	resp, err := s.get("bytes=0-0")
	if err != nil {
		return 0, err
	}
	defer drainClose(resp.Body)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		return parseContentRangeSize(resp.Header.Get("Content-Range"))
	case nethttp.StatusRequestedRangeNotSatisfiable:
		// Empty content cannot satisfy any range. Some servers still
		// report the total in Content-Range ("bytes */0").
		if size, err := parseContentRangeSize(resp.Header.Get("Content-Range")); err == nil {
			return size, nil
		}
		return 0, nil
	case nethttp.StatusOK:
		return 0, ErrRangeUnsupported
	default:
		return 0, fmt.Errorf("range probe failed: %s", resp.Status)
	}
}

func (s *Source) get(rangeValue string) (*nethttp.Response, error) {
	req, err := nethttp.NewRequest(nethttp.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	// Transparent compression would break byte offsets.
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	req.Header.Set("Range", rangeValue)
	return s.client.Do(req)
}

// parseContentRangeSize extracts the total size from a Content-Range
// header ("bytes 0-0/1234" or "bytes */1234").
func parseContentRangeSize(value string) (int64, error) {
	value = strings.TrimSpace(value)
	rest, ok := strings.CutPrefix(value, "bytes ")
	if !ok {
		return 0, fmt.Errorf("malformed Content-Range %q", value)
	}
	_, totalStr, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, fmt.Errorf("malformed Content-Range %q", value)
	}
	total, err := strconv.ParseInt(totalStr, 10, 64)
	if err != nil || total < 0 {
		return 0, fmt.Errorf("malformed Content-Range %q", value)
	}
	return total, nil
}

// drainClose discards the remainder of a body so the connection can be
// reused, then closes it.
func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body) //nolint:errcheck // best-effort drain
	_ = body.Close()                 //nolint:errcheck // best-effort close
}
