package service

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"crashreporter/common/formdata"
	"crashreporter/common/report"
	"crashreporter/reporter/cfg"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
)

// MaxResponseBody bounds the part of the server reply kept for display.
const MaxResponseBody = 4096

var (
	ErrBadURL      = errors.New("malformed server url")
	ErrConnUsed    = errors.New("connection already used")
	ErrBodyAborted = errors.New("request body aborted")
)

// Result describes how far an upload went.
type Result struct {
	State      State
	Last       State // last state reached before Failed
	StatusCode int
	Body       string
	Size       int64
	Sent       int64
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Uploader sends one crash report per Upload call. It never retries.
type Uploader struct {
	conf  cfg.Config
	dial  dialFunc
	scope *scope
}

func NewUploader(c cfg.Config) *Uploader {
	d := &net.Dialer{Timeout: c.ConnectTimeout()}
	return &Uploader{
		conf: c,
		dial: d.DialContext,
	}
}

// OpenHandles reports transport handles still held by the last upload.
func (u *Uploader) OpenHandles() int {
	if u.scope == nil {
		return 0
	}
	return u.scope.open()
}

// Upload drives a crash report through every upload state. The returned
// Result is never nil; err is set when the upload ends in Failed.
// A non-2xx reply is a completed upload and is not an error.
func (u *Uploader) Upload(ctx context.Context, r *report.CrashReport) (*Result, error) {
	res := &Result{State: Idle}
	u.scope = &scope{}
	defer u.scope.releaseAll()

	fail := func(err error, msg string) (*Result, error) {
		res.Last = res.State
		res.State = Failed
		log.WithFields(log.Fields{
			"state": res.Last.String(),
			"error": err,
		}).Error(msg)
		return res, errors.WrapPrefix(err, msg, 0)
	}

	if err := checkFile(r.MinidumpPath); err != nil {
		return fail(err, "Can't read minidump")
	}
	u.enter(res, FileChecked)

	transport := &http.Transport{
		DisableKeepAlives:     true,
		ResponseHeaderTimeout: u.conf.ResponseTimeout(),
		ExpectContinueTimeout: u.conf.ContinueTimeout(),
	}
	client := &http.Client{Transport: transport}
	u.scope.acquire("session", func() error {
		transport.CloseIdleConnections()
		return nil
	})
	u.enter(res, SessionOpen)

	target, err := parseTarget(r.ServerURL)
	if err != nil {
		return fail(err, "Can't parse server url")
	}
	u.enter(res, URLParsed)

	conn, err := u.connect(ctx, target)
	if err != nil {
		return fail(err, "Can't connect to server")
	}
	u.scope.acquire("connection", conn.Close)
	reuse := &singleConn{conn: conn}
	transport.DialContext = reuse.dial
	transport.DialTLSContext = reuse.dial
	u.enter(res, Connected)

	body, err := formdata.NewWriter(r, u.conf.Boundary())
	if err != nil {
		return fail(err, "Can't prepare request body")
	}
	pr, pw := io.Pipe()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), pr)
	if err != nil {
		pr.Close()
		return fail(err, "Can't open request")
	}
	u.scope.acquire("request", pr.Close)
	u.enter(res, RequestOpened)

	res.Size, err = body.RequestSize()
	if err != nil {
		return fail(err, "Can't calculate request size")
	}
	req.ContentLength = res.Size
	req.Header.Set("Content-Type", body.ContentType())
	req.Header.Set("X-API-Key", r.APIKey)
	req.Header.Set("User-Agent", u.conf.UserAgent())
	req.Header.Set("Accept", "*/*")
	if u.conf.ContinueTimeout() > 0 {
		// the server may answer before any of the body is sent
		req.Header.Set("Expect", "100-continue")
	}
	u.enter(res, HeadersSet)

	written := make(chan writeResult, 1)
	u.enter(res, Sending)
	go func() {
		n, err := body.WriteBody(pw)
		pw.CloseWithError(err)
		written <- writeResult{n: n, err: err}
	}()
	u.enter(res, StreamingBody)

	resp, doErr := client.Do(req)
	if resp != nil {
		u.scope.acquire("response", resp.Body.Close)
	}
	// The body is complete or abandoned once Do returns.
	var w writeResult
	select {
	case w = <-written:
	default:
		pr.CloseWithError(ErrBodyAborted)
		w = <-written
	}
	res.Sent = w.n
	if doErr != nil {
		if w.err != nil {
			return fail(w.err, "Can't send request body")
		}
		return fail(doErr, "Can't send request")
	}
	fields := log.Fields{
		"sent":  res.Sent,
		"total": res.Size,
	}
	if w.err != nil {
		fields["status"] = resp.StatusCode
		log.WithFields(fields).Warning("Server replied before the request body was sent")
	} else {
		log.WithFields(fields).Info("Request body sent")
	}
	u.enter(res, AwaitingResponse)

	res.StatusCode = resp.StatusCode
	reply, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBody))
	if err != nil {
		log.WithError(err).Warning("Can't read response body")
	}
	res.Body = string(reply)
	u.enter(res, Done)

	fields = log.Fields{
		"status": res.StatusCode,
		"body":   res.Body,
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		log.WithFields(fields).Warning("Server rejected crash report")
	} else {
		log.WithFields(fields).Info("Crash report uploaded")
	}
	return res, nil
}

func (u *Uploader) enter(res *Result, s State) {
	log.WithFields(log.Fields{
		"from": res.State.String(),
		"to":   s.String(),
	}).Debug("Upload state")
	res.State = s
}

// connect dials the server and completes the TLS handshake for https.
func (u *Uploader) connect(ctx context.Context, t *target) (net.Conn, error) {
	conn, err := u.dial(ctx, "tcp", t.Addr())
	if err != nil {
		return nil, err
	}
	if t.Scheme != "https" {
		return conn, nil
	}

	if u.conf.InsecureSkipVerify() {
		log.WithField("host", t.Host).Warning("TLS certificate verification is disabled")
	}
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         t.Host,
		InsecureSkipVerify: u.conf.InsecureSkipVerify(),
		NextProtos:         []string{"http/1.1"},
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// ExitCode maps the outcome of an upload to the process exit code.
func ExitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

type writeResult struct {
	n   int64
	err error
}

func checkFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	return file.Close()
}

// target is a server url split the way the transport needs it.
type target struct {
	Scheme    string
	Host      string
	Port      string
	Path      string
	ExtraInfo string
}

func parseTarget(raw string) (*target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.WrapPrefix(ErrBadURL, err.Error(), 0)
	}

	t := &target{
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Hostname(),
		Port:   u.Port(),
		Path:   u.EscapedPath(),
	}
	switch t.Scheme {
	case "http":
		if t.Port == "" {
			t.Port = "80"
		}
	case "https":
		if t.Port == "" {
			t.Port = "443"
		}
	default:
		return nil, errors.WrapPrefix(ErrBadURL, "unsupported scheme "+u.Scheme, 0)
	}
	if t.Host == "" {
		return nil, errors.WrapPrefix(ErrBadURL, "missing host", 0)
	}
	if t.Path == "" {
		t.Path = "/"
	}
	if u.RawQuery != "" {
		t.ExtraInfo = "?" + u.RawQuery
	}
	return t, nil
}

func (t *target) Addr() string {
	return net.JoinHostPort(t.Host, t.Port)
}

func (t *target) String() string {
	return t.Scheme + "://" + t.Addr() + t.Path + t.ExtraInfo
}

// singleConn hands the established connection to the transport exactly once.
type singleConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func (s *singleConn) dial(_ context.Context, _, _ string) (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrConnUsed
	}
	c := s.conn
	s.conn = nil
	return c, nil
}
