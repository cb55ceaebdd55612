package testsupport

import (
	"context"
	"sync"
	"sync/atomic"

	"placematch/internal/geo"
	"placematch/internal/place"
)

// ProviderCall records one invocation of a FakeProvider method.
type ProviderCall struct {
	Method place.Method
	Phone  string
	Radius float64
	Query  string
	Bias   *geo.Coordinate
}

// FakeProvider is a scripted search.Provider. Each handler defaults to
// returning no candidates. Calls are recorded in order.
type FakeProvider struct {
	Phone  func(ctx context.Context, phone string) ([]place.Candidate, error)
	Nearby func(ctx context.Context, center geo.Coordinate, radius float64, keyword string) ([]place.Candidate, error)
	Text   func(ctx context.Context, query string, bias *geo.Coordinate) ([]place.Candidate, error)

	mu    sync.Mutex
	calls []ProviderCall
	total atomic.Int64
}

// Name implements search.Provider.
func (f *FakeProvider) Name() string { return "fake" }

// FindByPhone implements search.Provider.
func (f *FakeProvider) FindByPhone(ctx context.Context, phone string) ([]place.Candidate, error) {
	f.record(ProviderCall{Method: place.MethodPhone, Phone: phone})
	if f.Phone == nil {
		return nil, nil
	}
	return f.Phone(ctx, phone)
}

// FindNearby implements search.Provider.
func (f *FakeProvider) FindNearby(ctx context.Context, center geo.Coordinate, radius float64, keyword string) ([]place.Candidate, error) {
	f.record(ProviderCall{Method: place.MethodNearby, Radius: radius, Query: keyword})
	if f.Nearby == nil {
		return nil, nil
	}
	return f.Nearby(ctx, center, radius, keyword)
}

// FindByText implements search.Provider.
func (f *FakeProvider) FindByText(ctx context.Context, query string, bias *geo.Coordinate) ([]place.Candidate, error) {
	f.record(ProviderCall{Method: place.MethodText, Query: query, Bias: bias})
	if f.Text == nil {
		return nil, nil
	}
	return f.Text(ctx, query, bias)
}

// Calls returns a copy of the recorded calls.
func (f *FakeProvider) Calls() []ProviderCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ProviderCall(nil), f.calls...)
}

// CallCount returns the number of calls made so far.
func (f *FakeProvider) CallCount() int {
	return int(f.total.Load())
}

func (f *FakeProvider) record(call ProviderCall) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	f.total.Add(1)
}

// Candidate builds a candidate with a coordinate for tests.
func Candidate(id, name, address string, lat, lon float64, method place.Method) place.Candidate {
	return place.Candidate{
		ExternalID: id,
		Name:       name,
		Address:    address,
		Coordinate: &geo.Coordinate{Lat: lat, Lon: lon},
		Method:     method,
	}
}

// Offset returns c moved north by roughly meters.
func Offset(c geo.Coordinate, meters float64) geo.Coordinate {
	return geo.Coordinate{Lat: c.Lat + meters/111195.0, Lon: c.Lon}
}
