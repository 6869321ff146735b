// Package mcp exposes the story bible operation set as MCP tools over
// stdio, for use by an extraction pipeline or writing assistant host.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"storybible/internal/bible"
)

// Service is the slice of the bible service the tools need. It is an
// interface so tests can swap in a recording fake.
type Service interface {
	GetBible(ctx context.Context, projectID string) (*bible.Bible, error)
	PutBible(ctx context.Context, b *bible.Bible) error
	UpsertEntities(ctx context.Context, projectID string, deltas []bible.Entity) error
	UpsertThread(ctx context.Context, projectID string, delta bible.Thread) error
	RemoveEntity(ctx context.Context, projectID, id string) error
	RemoveThread(ctx context.Context, projectID, name string) error
	CloseThread(ctx context.Context, projectID, name string) error
	SearchBible(ctx context.Context, projectID, query string) (bible.SearchResult, error)
	GetSnapshot(ctx context.Context, projectID string, opts bible.SnapshotOptions) (bible.Snapshot, error)
	ExportBible(ctx context.Context, projectID string) (*bible.Bible, error)
	ImportBible(ctx context.Context, projectID string, partial *bible.Bible) error
	ListProjects(ctx context.Context) ([]string, error)
	ClearBible(ctx context.Context, projectID string) error
}

var _ Service = (*bible.Service)(nil)

type Server struct {
	svc    Service
	logger *zap.Logger
	mcp    *sdk.Server
}

func NewServer(svc Service, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		logger: logger,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "storybible",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	s.logger.Info("mcp server starting")
	return s.mcp.Run(ctx, transport)
}
