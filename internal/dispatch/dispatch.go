// Package dispatch injects native packet instances into the outbound
// pipelines of connected endpoints.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/HsiangNianian/AMonItor/bridge/internal/host"
)

var ErrNoPipeline = errors.New("outbound pipeline not found")

// DispatchError means no pipeline could be located for the first endpoint of
// a call. There is no fallback for it.
type DispatchError struct {
	EndpointID string
	Err        error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %q: %v", e.EndpointID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// EndpointResult is the outcome for one endpoint.
type EndpointResult struct {
	EndpointID string
	Err        error
}

// Report lists per-endpoint outcomes in the order endpoints were given.
type Report struct {
	Results []EndpointResult
}

// OK reports whether every endpoint accepted the instance.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}

func (r Report) Failed() []EndpointResult {
	var out []EndpointResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

type Channel struct {
	path []string
	log  *slog.Logger
}

// New returns a channel that reaches an endpoint's pipeline by walking path,
// unless the endpoint implements host.PipelineProvider.
func New(path []string, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{path: append([]string(nil), path...), log: logger}
}

// Transmit writes msg to each endpoint in order. A failure on a later
// endpoint is recorded in the report and does not stop the loop, and nothing
// already written is rolled back.
func (c *Channel) Transmit(endpoints []host.Endpoint, msg any) (Report, error) {
	report := Report{Results: make([]EndpointResult, 0, len(endpoints))}
	for i, ep := range endpoints {
		id := endpointID(ep)
		pipe, err := c.Locate(ep)
		if err != nil {
			if i == 0 {
				return Report{}, &DispatchError{EndpointID: id, Err: err}
			}
			c.log.Warn("locate pipeline failed", "endpoint", id, "err", err)
			report.Results = append(report.Results, EndpointResult{EndpointID: id, Err: err})
			continue
		}
		if err := pipe.WriteAndFlush(msg); err != nil {
			c.log.Warn("write packet failed", "endpoint", id, "type", fmt.Sprintf("%T", msg), "err", err)
			report.Results = append(report.Results, EndpointResult{EndpointID: id, Err: err})
			continue
		}
		report.Results = append(report.Results, EndpointResult{EndpointID: id})
	}
	return report, nil
}

// Locate finds the outbound pipeline of ep.
func (c *Channel) Locate(ep host.Endpoint) (host.Channel, error) {
	if ep == nil {
		return nil, fmt.Errorf("%w: nil endpoint", ErrNoPipeline)
	}
	if p, ok := ep.(host.PipelineProvider); ok {
		ch, err := p.OutboundPipeline()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoPipeline, err)
		}
		if ch == nil {
			return nil, fmt.Errorf("%w: provider returned nil", ErrNoPipeline)
		}
		return ch, nil
	}
	if len(c.path) == 0 {
		return nil, fmt.Errorf("%w: no pipeline path configured", ErrNoPipeline)
	}

	v := reflect.ValueOf(ep)
	for _, step := range c.path {
		next, err := walk(v, step)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoPipeline, err)
		}
		v = next
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil, fmt.Errorf("%w: path end is not accessible", ErrNoPipeline)
	}
	if (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) && v.IsNil() {
		return nil, fmt.Errorf("%w: pipeline is nil", ErrNoPipeline)
	}
	ch, ok := v.Interface().(host.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a channel", ErrNoPipeline, v.Type())
	}
	return ch, nil
}

// walk resolves one path step: a zero-arg method returning one value, or a
// field of the (dereferenced) struct.
func walk(v reflect.Value, step string) (reflect.Value, error) {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil value before %q", step)
		}
		v = v.Elem()
	}
	if m := v.MethodByName(step); m.IsValid() {
		if m.Type().NumIn() != 0 || m.Type().NumOut() != 1 {
			return reflect.Value{}, fmt.Errorf("method %s has wrong signature %s", step, m.Type())
		}
		return m.Call(nil)[0], nil
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil pointer before %q", step)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("cannot take %q of %s", step, v.Type())
	}
	f := v.FieldByName(step)
	if !f.IsValid() {
		return reflect.Value{}, fmt.Errorf("%s has no field or method %q", v.Type(), step)
	}
	return f, nil
}

func endpointID(ep host.Endpoint) string {
	if ep == nil {
		return ""
	}
	return ep.ID()
}
