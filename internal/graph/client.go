package graph

import (
	"context"
	"errors"
)

// Client is the slice of a graph database the transaction sink needs.
type Client interface {
	Write(ctx context.Context, cypher string, params map[string]any) (Result, error)
	Read(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result holds the records returned by a query.
type Result struct {
	Records []Record
}

// Record maps column names to values.
type Record map[string]any

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
