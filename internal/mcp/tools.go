package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"storybible/internal/bible"
)

type EntityInput struct {
	ID       string          `json:"id" jsonschema:"entity id, ideally in Type:Name form"`
	Type     string          `json:"type,omitempty" jsonschema:"Character, Location, Rule, Object, or Concept"`
	Attrs    json.RawMessage `json:"attrs,omitempty" jsonschema:"attribute object; values are strings or string arrays"`
	Evidence []EvidenceInput `json:"evidence,omitempty" jsonschema:"supporting quotes or spans"`
}

type EvidenceInput struct {
	Quote     string     `json:"quote,omitempty" jsonschema:"verbatim supporting quote"`
	ChapterID string     `json:"chapterId,omitempty" jsonschema:"chapter the quote comes from"`
	Span      *SpanInput `json:"span,omitempty" jsonschema:"character range in the source document"`
}

type SpanInput struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type ThreadInput struct {
	Name   string    `json:"name" jsonschema:"thread name, the unique key"`
	Status string    `json:"status,omitempty" jsonschema:"open or closed"`
	Notes  string    `json:"notes,omitempty"`
	Hooks  []float64 `json:"hooks,omitempty" jsonschema:"fractional positions in [0,1]"`
	Todos  []string  `json:"todos,omitempty"`
}

type UpsertEntityInput struct {
	ProjectID string      `json:"projectId" jsonschema:"project key"`
	Entity    EntityInput `json:"entity"`
}

type UpsertEntitiesInput struct {
	ProjectID string        `json:"projectId" jsonschema:"project key"`
	Entities  []EntityInput `json:"entities"`
}

type UpsertThreadInput struct {
	ProjectID string      `json:"projectId" jsonschema:"project key"`
	Thread    ThreadInput `json:"thread"`
}

type ProjectInput struct {
	ProjectID string `json:"projectId" jsonschema:"project key"`
}

type RemoveEntityInput struct {
	ProjectID string `json:"projectId" jsonschema:"project key"`
	ID        string `json:"id" jsonschema:"exact canonical entity id"`
}

type ThreadNameInput struct {
	ProjectID string `json:"projectId" jsonschema:"project key"`
	Name      string `json:"name" jsonschema:"exact thread name"`
}

type SearchInput struct {
	ProjectID string `json:"projectId" jsonschema:"project key"`
	Query     string `json:"query,omitempty" jsonschema:"substring to match; empty matches everything"`
}

type SnapshotInput struct {
	ProjectID         string `json:"projectId" jsonschema:"project key"`
	MaxEntities       int    `json:"maxEntities,omitempty" jsonschema:"entity bound, default 60"`
	MaxAttrsPerEntity int    `json:"maxAttrsPerEntity,omitempty" jsonschema:"attribute keys per entity, default 6"`
}

type ImportInput struct {
	ProjectID string          `json:"projectId" jsonschema:"project key"`
	Bible     json.RawMessage `json:"bible" jsonschema:"partial bible to merge in"`
}

type PutBibleInput struct {
	ProjectID string          `json:"projectId" jsonschema:"project key"`
	Bible     json.RawMessage `json:"bible" jsonschema:"full bible to store, replacing the current aggregate"`
}

type ListProjectsInput struct{}

type AckOutput struct {
	OK bool `json:"ok"`
}

type BibleOutput struct {
	Bible json.RawMessage `json:"bible"`
}

type SearchOutput struct {
	Result json.RawMessage `json:"result"`
}

type SnapshotOutput struct {
	Snapshot json.RawMessage `json:"snapshot"`
}

type ListProjectsOutput struct {
	Projects []string `json:"projects"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_bible",
		Description: "Return the full story bible for a project, creating an empty one if absent",
	}, s.handleGetBible)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "put_bible",
		Description: "Replace a project's bible wholesale; the value is re-normalized and re-pruned before the write",
	}, s.handlePutBible)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "upsert_entity",
		Description: "Merge one candidate entity into the project bible",
	}, s.handleUpsertEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "upsert_entities",
		Description: "Merge a batch of candidate entities in one read-modify-write cycle",
	}, s.handleUpsertEntities)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "upsert_thread",
		Description: "Merge a narrative thread by name, creating it if new",
	}, s.handleUpsertThread)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "close_thread",
		Description: "Mark a narrative thread closed",
	}, s.handleCloseThread)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "remove_entity",
		Description: "Delete an entity by exact id",
	}, s.handleRemoveEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "remove_thread",
		Description: "Delete a thread by exact name",
	}, s.handleRemoveThread)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_bible",
		Description: "Case-insensitive substring search over entities and threads",
	}, s.handleSearchBible)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_snapshot",
		Description: "Return a size-bounded bible projection for grounding a language model",
	}, s.handleGetSnapshot)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "export_bible",
		Description: "Return a deep copy of the full bible",
	}, s.handleExportBible)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "import_bible",
		Description: "Merge a partial bible through the normal upsert paths",
	}, s.handleImportBible)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_projects",
		Description: "List every known project key",
	}, s.handleListProjects)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "clear_bible",
		Description: "Delete a project's bible entirely",
	}, s.handleClearBible)
}

func (in EntityInput) toEntity() (bible.Entity, error) {
	e := bible.Entity{ID: in.ID, Type: bible.EntityType(in.Type)}
	if len(in.Attrs) > 0 {
		if err := json.Unmarshal(in.Attrs, &e.Attrs); err != nil {
			return bible.Entity{}, fmt.Errorf("decoding attrs: %w", err)
		}
	}
	for _, ev := range in.Evidence {
		entry := bible.Evidence{Quote: ev.Quote, ChapterID: ev.ChapterID}
		if ev.Span != nil {
			entry.Span = &bible.Span{Start: ev.Span.Start, End: ev.Span.End}
		}
		e.Evidence = append(e.Evidence, entry)
	}
	return e, nil
}

func (in ThreadInput) toThread() bible.Thread {
	return bible.Thread{
		Name:   in.Name,
		Status: bible.ThreadStatus(in.Status),
		Notes:  in.Notes,
		Hooks:  in.Hooks,
		Todos:  in.Todos,
	}
}

func (s *Server) handleGetBible(ctx context.Context, req *sdk.CallToolRequest, input ProjectInput) (*sdk.CallToolResult, BibleOutput, error) {
	if input.ProjectID == "" {
		return nil, BibleOutput{}, fmt.Errorf("projectId is required")
	}
	b, err := s.svc.GetBible(ctx, input.ProjectID)
	if err != nil {
		return nil, BibleOutput{}, err
	}
	out, err := marshalBible(b)
	return nil, out, err
}

func (s *Server) handlePutBible(ctx context.Context, req *sdk.CallToolRequest, input PutBibleInput) (*sdk.CallToolResult, AckOutput, error) {
	if input.ProjectID == "" {
		return nil, AckOutput{}, fmt.Errorf("projectId is required")
	}
	var b bible.Bible
	if err := json.Unmarshal(input.Bible, &b); err != nil {
		return nil, AckOutput{}, fmt.Errorf("decoding bible: %w", err)
	}
	b.ProjectID = input.ProjectID
	if err := s.svc.PutBible(ctx, &b); err != nil {
		return nil, AckOutput{}, err
	}
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleUpsertEntity(ctx context.Context, req *sdk.CallToolRequest, input UpsertEntityInput) (*sdk.CallToolResult, AckOutput, error) {
	if input.ProjectID == "" {
		return nil, AckOutput{}, fmt.Errorf("projectId is required")
	}
	delta, err := input.Entity.toEntity()
	if err != nil {
		return nil, AckOutput{}, err
	}
	if err := s.svc.UpsertEntities(ctx, input.ProjectID, []bible.Entity{delta}); err != nil {
		return nil, AckOutput{}, err
	}
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleUpsertEntities(ctx context.Context, req *sdk.CallToolRequest, input UpsertEntitiesInput) (*sdk.CallToolResult, AckOutput, error) {
	if input.ProjectID == "" {
		return nil, AckOutput{}, fmt.Errorf("projectId is required")
	}
	deltas := make([]bible.Entity, 0, len(input.Entities))
	for _, in := range input.Entities {
		delta, err := in.toEntity()
		if err != nil {
			return nil, AckOutput{}, err
		}
		deltas = append(deltas, delta)
	}
	if err := s.svc.UpsertEntities(ctx, input.ProjectID, deltas); err != nil {
		return nil, AckOutput{}, err
	}
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleUpsertThread(ctx context.Context, req *sdk.CallToolRequest, input UpsertThreadInput) (*sdk.CallToolResult, AckOutput, error) {
	if input.ProjectID == "" {
		return nil, AckOutput{}, fmt.Errorf("projectId is required")
	}
	if err := s.svc.UpsertThread(ctx, input.ProjectID, input.Thread.toThread()); err != nil {
		return nil, AckOutput{}, err
	}
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleCloseThread(ctx context.Context, req *sdk.CallToolRequest, input ThreadNameInput) (*sdk.CallToolResult, AckOutput, error) {
	if input.ProjectID == "" {
		return nil, AckOutput{}, fmt.Errorf("projectId is required")
	}
	if err := s.svc.CloseThread(ctx, input.ProjectID, input.Name); err != nil {
		return nil, AckOutput{}, err
	}
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleRemoveEntity(ctx context.Context, req *sdk.CallToolRequest, input RemoveEntityInput) (*sdk.CallToolResult, AckOutput, error) {
	if input.ProjectID == "" {
		return nil, AckOutput{}, fmt.Errorf("projectId is required")
	}
	if err := s.svc.RemoveEntity(ctx, input.ProjectID, input.ID); err != nil {
		return nil, AckOutput{}, err
	}
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleRemoveThread(ctx context.Context, req *sdk.CallToolRequest, input ThreadNameInput) (*sdk.CallToolResult, AckOutput, error) {
	if input.ProjectID == "" {
		return nil, AckOutput{}, fmt.Errorf("projectId is required")
	}
	if err := s.svc.RemoveThread(ctx, input.ProjectID, input.Name); err != nil {
		return nil, AckOutput{}, err
	}
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleSearchBible(ctx context.Context, req *sdk.CallToolRequest, input SearchInput) (*sdk.CallToolResult, SearchOutput, error) {
	if input.ProjectID == "" {
		return nil, SearchOutput{}, fmt.Errorf("projectId is required")
	}
	result, err := s.svc.SearchBible(ctx, input.ProjectID, input.Query)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("encoding search result: %w", err)
	}
	return nil, SearchOutput{Result: data}, nil
}

func (s *Server) handleGetSnapshot(ctx context.Context, req *sdk.CallToolRequest, input SnapshotInput) (*sdk.CallToolResult, SnapshotOutput, error) {
	if input.ProjectID == "" {
		return nil, SnapshotOutput{}, fmt.Errorf("projectId is required")
	}
	snap, err := s.svc.GetSnapshot(ctx, input.ProjectID, bible.SnapshotOptions{
		MaxEntities:       input.MaxEntities,
		MaxAttrsPerEntity: input.MaxAttrsPerEntity,
	})
	if err != nil {
		return nil, SnapshotOutput{}, err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, SnapshotOutput{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil, SnapshotOutput{Snapshot: data}, nil
}

func (s *Server) handleExportBible(ctx context.Context, req *sdk.CallToolRequest, input ProjectInput) (*sdk.CallToolResult, BibleOutput, error) {
	if input.ProjectID == "" {
		return nil, BibleOutput{}, fmt.Errorf("projectId is required")
	}
	b, err := s.svc.ExportBible(ctx, input.ProjectID)
	if err != nil {
		return nil, BibleOutput{}, err
	}
	out, err := marshalBible(b)
	return nil, out, err
}

func (s *Server) handleImportBible(ctx context.Context, req *sdk.CallToolRequest, input ImportInput) (*sdk.CallToolResult, AckOutput, error) {
	if input.ProjectID == "" {
		return nil, AckOutput{}, fmt.Errorf("projectId is required")
	}
	var partial bible.Bible
	if err := json.Unmarshal(input.Bible, &partial); err != nil {
		return nil, AckOutput{}, fmt.Errorf("decoding partial bible: %w", err)
	}
	if err := s.svc.ImportBible(ctx, input.ProjectID, &partial); err != nil {
		return nil, AckOutput{}, err
	}
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleListProjects(ctx context.Context, req *sdk.CallToolRequest, input ListProjectsInput) (*sdk.CallToolResult, ListProjectsOutput, error) {
	projects, err := s.svc.ListProjects(ctx)
	if err != nil {
		return nil, ListProjectsOutput{}, err
	}
	if projects == nil {
		projects = []string{}
	}
	return nil, ListProjectsOutput{Projects: projects}, nil
}

func (s *Server) handleClearBible(ctx context.Context, req *sdk.CallToolRequest, input ProjectInput) (*sdk.CallToolResult, AckOutput, error) {
	if input.ProjectID == "" {
		return nil, AckOutput{}, fmt.Errorf("projectId is required")
	}
	if err := s.svc.ClearBible(ctx, input.ProjectID); err != nil {
		return nil, AckOutput{}, err
	}
	return nil, AckOutput{OK: true}, nil
}

func marshalBible(b *bible.Bible) (BibleOutput, error) {
	data, err := b.Encode()
	if err != nil {
		return BibleOutput{}, err
	}
	return BibleOutput{Bible: data}, nil
}
