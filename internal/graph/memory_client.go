package graph

import (
	"context"
	"maps"
	"sync"
)

// MemoryClient records queries and replays canned read results. It backs
// repository tests without a running database.
type MemoryClient struct {
	mu           sync.Mutex
	writes       []Query
	reads        []Query
	readResults  []Result
	err          error
	connectivity error
}

// Query is a cypher statement with its parameters.
type Query struct {
	Cypher string
	Params map[string]any
}

// NewMemoryClient returns an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// FailWith makes every subsequent Read and Write return err.
func (m *MemoryClient) FailWith(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Unreachable makes VerifyConnectivity return err.
func (m *MemoryClient) Unreachable(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// QueueRead appends a result returned by a later Read call.
func (m *MemoryClient) QueueRead(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readResults = append(m.readResults, res)
}

func (m *MemoryClient) Write(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	m.writes = append(m.writes, Query{Cypher: cypher, Params: maps.Clone(params)})
	return Result{}, nil
}

func (m *MemoryClient) Read(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	m.reads = append(m.reads, Query{Cypher: cypher, Params: maps.Clone(params)})
	if len(m.readResults) == 0 {
		return Result{}, nil
	}
	res := m.readResults[0]
	m.readResults = m.readResults[1:]
	return res, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// Writes returns a snapshot of executed writes.
func (m *MemoryClient) Writes() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query(nil), m.writes...)
}

// Reads returns a snapshot of executed reads.
func (m *MemoryClient) Reads() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query(nil), m.reads...)
}
