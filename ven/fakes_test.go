package ven

import (
	"context"
	"sync"
	"time"
)

// fakeTransport records POSTed bodies and returns pre-scripted responses
// keyed by the order calls are made, or a default "oadrResponse" ack.
type fakeTransport struct {
	mu        sync.Mutex
	posts     int
	scripted  []scriptedResponse
	lastBody  []byte
}

type scriptedResponse struct {
	body []byte
	code int
	err  error
}

func (f *fakeTransport) Post(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastBody = body
	idx := f.posts
	f.posts++
	if idx < len(f.scripted) {
		s := f.scripted[idx]
		return s.body, s.code, s.err
	}
	// Echo the request body back so fakeCodec.ParseMessage can look up a
	// scripted response keyed by the request's message type.
	return body, 200, nil
}

// fakeCodec is a trivial Codec: CreateMessage serializes fields as the
// message type string prefixed to a marker; ParseMessage looks up a
// pre-registered response by the raw body bytes used as a map key,
// letting tests drive dispatch deterministically without real XML.
type fakeCodec struct {
	mu        sync.Mutex
	responses map[string]codecResponse
	created   []createdMessage
}

type createdMessage struct {
	msgType string
	fields  MessageFields
}

type codecResponse struct {
	msgType string
	payload map[string]any
	err     error
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{responses: make(map[string]codecResponse)}
}

func (c *fakeCodec) CreateMessage(msgType string, fields MessageFields) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, createdMessage{msgType: msgType, fields: fields})
	return []byte(msgType), nil
}

func (c *fakeCodec) ParseMessage(body []byte) (string, map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.responses[string(body)]; ok {
		return r.msgType, r.payload, r.err
	}
	return MsgResponse, nil, nil
}

func (c *fakeCodec) setResponse(forMsgType string, resp codecResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[forMsgType] = resp
}

// fakeScheduler runs jobs synchronously only when explicitly told to via
// fire(), rather than on a real ticker, so tests control timing exactly.
type fakeScheduler struct {
	mu    sync.Mutex
	jobs  []*fakeJob
}

type fakeJob struct {
	fn        func(context.Context)
	cancelled bool
}

func (j *fakeJob) Cancel() { j.cancelled = true }

func (s *fakeScheduler) AddInterval(d time.Duration, fn func(context.Context)) JobHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := &fakeJob{fn: fn}
	s.jobs = append(s.jobs, j)
	return j
}

func (s *fakeScheduler) AddCron(spec CronSpec, fn func(context.Context)) JobHandle {
	return s.AddInterval(spec.Interval, fn)
}

func (s *fakeScheduler) AddDate(at time.Time, fn func(context.Context)) JobHandle {
	return s.AddInterval(0, fn)
}

func (s *fakeScheduler) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		j.cancelled = true
	}
}

func (s *fakeScheduler) Shutdown() {
	s.RemoveAll()
}

func (s *fakeScheduler) fire(ctx context.Context, i int) {
	s.mu.Lock()
	j := s.jobs[i]
	s.mu.Unlock()
	if !j.cancelled {
		j.fn(ctx)
	}
}

type fakeCron struct{}

func (fakeCron) CronConfig(interval time.Duration) CronSpec {
	return CronSpec{Interval: interval}
}

// fakeScalarSampler implements IncrementalSampler.
type fakeScalarSampler struct {
	values []float64
	i      int
}

func (f *fakeScalarSampler) Sample(ctx context.Context) (float64, error) {
	if f.i >= len(f.values) {
		return 0, nil
	}
	v := f.values[f.i]
	f.i++
	return v, nil
}

// fakeWindowedSampler implements WindowedSampler.
type fakeWindowedSampler struct {
	samples []Sample
}

func (f *fakeWindowedSampler) SampleWindow(ctx context.Context, from, to time.Time, interval time.Duration) ([]Sample, error) {
	return f.samples, nil
}
