package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

type stubConversationRepo struct {
	conversations map[string]*types.Conversation
	createErr     error
	closedAt      *time.Time
}

func (s *stubConversationRepo) Create(ctx context.Context, conv *types.Conversation) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.conversations[conv.ID] = conv
	return nil
}

func (s *stubConversationRepo) GetByID(ctx context.Context, id string) (*types.Conversation, error) {
	if c, ok := s.conversations[id]; ok {
		return c, nil
	}
	return nil, errs.NotFound("conversation", id)
}

func (s *stubConversationRepo) GetBySessionID(ctx context.Context, sessionID string) (*types.Conversation, error) {
	for _, c := range s.conversations {
		if c.SessionID == sessionID {
			return c, nil
		}
	}
	return nil, errs.NotFound("conversation", sessionID)
}

func (s *stubConversationRepo) Close(ctx context.Context, id string, endedAt time.Time) error {
	s.closedAt = &endedAt
	return nil
}

type stubMessageRepo struct {
	created   []*types.Message
	missing   []*types.Message
	attached  map[string][]float32
	createErr error
	attachErr error
}

func (s *stubMessageRepo) Create(ctx context.Context, msg *types.Message) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, msg)
	return nil
}

func (s *stubMessageRepo) GetByID(ctx context.Context, id string) (*types.Message, error) {
	return nil, errs.NotFound("message", id)
}

func (s *stubMessageRepo) AttachEmbedding(ctx context.Context, id string, embedding []float32) error {
	if s.attachErr != nil {
		return s.attachErr
	}
	if s.attached == nil {
		s.attached = map[string][]float32{}
	}
	s.attached[id] = embedding
	return nil
}

func (s *stubMessageRepo) ListMissingEmbeddings(ctx context.Context, limit int) ([]*types.Message, error) {
	if limit < len(s.missing) {
		return s.missing[:limit], nil
	}
	return s.missing, nil
}

type stubFactStore struct {
	created   []*types.MemoryFact
	createErr error
}

func (s *stubFactStore) Create(ctx context.Context, fact *types.MemoryFact) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, fact)
	return nil
}

func (s *stubFactStore) GetByID(ctx context.Context, id string) (*types.MemoryFact, error) {
	return nil, errs.NotFound("fact", id)
}

func (s *stubFactStore) GetByIDs(ctx context.Context, ownerID string, ids []string) ([]*types.MemoryFact, error) {
	return nil, nil
}

func (s *stubFactStore) TouchAccess(ctx context.Context, ids []string, at time.Time) error {
	return nil
}

func (s *stubFactStore) Supersede(ctx context.Context, id string, at time.Time) error { return nil }

func (s *stubFactStore) Summary(ctx context.Context, ownerID string) (*types.MemorySummary, error) {
	return nil, nil
}

type stubClusterService struct {
	assigned []string
	err      error
}

func (s *stubClusterService) Assign(ctx context.Context, fact *types.MemoryFact) (*types.ClusterAssignment, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.assigned = append(s.assigned, fact.ID)
	return &types.ClusterAssignment{FactID: fact.ID, ClusterID: "c1"}, nil
}

type stubSessionService struct {
	updates map[string]map[string]string
	err     error
}

func (s *stubSessionService) GetContext(ctx context.Context, sessionID string) (map[string]string, error) {
	return s.updates[sessionID], nil
}

func (s *stubSessionService) UpdateContext(ctx context.Context, sessionID string, updates map[string]string) error {
	if s.err != nil {
		return s.err
	}
	if s.updates == nil {
		s.updates = map[string]map[string]string{}
	}
	s.updates[sessionID] = updates
	return nil
}

type seqEmbedder struct {
	vector []float32
	errs   []error
	calls  int
}

func (s *seqEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	return s.vector, nil
}

type recordingIndex struct {
	upserts []string
	err     error
}

func (s *recordingIndex) Upsert(ctx context.Context, ownerID, recordID string, vector []float32) error {
	if s.err != nil {
		return s.err
	}
	s.upserts = append(s.upserts, recordID)
	return nil
}

func (s *recordingIndex) TopK(ctx context.Context, ownerID string, vector []float32, k int, minScore float64, validOnly bool) ([]types.VectorMatch, error) {
	return nil, nil
}

func (s *recordingIndex) Invalidate(ctx context.Context, ownerID, recordID string, at time.Time) error {
	return nil
}

type recordingGraph struct {
	nodes []string
	edges []string
	err   error
}

func (s *recordingGraph) MergeNode(ctx context.Context, ownerID, nodeType, key string, props map[string]any) error {
	if s.err != nil {
		return s.err
	}
	s.nodes = append(s.nodes, nodeType+":"+key)
	return nil
}

func (s *recordingGraph) MergeEdge(ctx context.Context, ownerID, edgeType, fromKey, toKey string, props map[string]any) error {
	if s.err != nil {
		return s.err
	}
	s.edges = append(s.edges, edgeType+":"+fromKey+"->"+toKey)
	return nil
}

func (s *recordingGraph) Neighborhood(ctx context.Context, ownerID string, startKeys []string, maxDepth int) (map[string][]string, error) {
	return nil, nil
}

type stubExtractor struct {
	candidates []types.FactCandidate
	entities   []types.GraphEntity
	err        error
}

func (s *stubExtractor) Extract(ctx context.Context, content string) ([]types.FactCandidate, []types.GraphEntity, error) {
	return s.candidates, s.entities, s.err
}

type pipeline struct {
	conversations *stubConversationRepo
	messages      *stubMessageRepo
	facts         *stubFactStore
	clusters      *stubClusterService
	sessions      *stubSessionService
	embedder      *seqEmbedder
	index         *recordingIndex
	graph         *recordingGraph
	extractor     *stubExtractor
}

func newPipeline() *pipeline {
	return &pipeline{
		conversations: &stubConversationRepo{conversations: map[string]*types.Conversation{}},
		messages:      &stubMessageRepo{},
		facts:         &stubFactStore{},
		clusters:      &stubClusterService{},
		sessions:      &stubSessionService{},
		embedder:      &seqEmbedder{vector: []float32{1, 0, 0}},
		index:         &recordingIndex{},
		graph:         &recordingGraph{},
		extractor:     &stubExtractor{},
	}
}

func (p *pipeline) service() interfaces.IngestService {
	return NewService(
		p.conversations, p.messages, p.facts, p.clusters, p.sessions,
		p.embedder, p.index, p.graph, p.extractor, 100,
	)
}

func seedConversation(p *pipeline) *types.Conversation {
	conv := &types.Conversation{ID: "conv1", UserID: "u1", SessionID: "s1", StartedAt: time.Now()}
	p.conversations.conversations[conv.ID] = conv
	return conv
}

func TestCreateConversationCachesSessionContext(t *testing.T) {
	p := newPipeline()
	svc := p.service()

	conv, err := svc.CreateConversation(context.Background(), "u1", "s1", map[string]any{"channel": "voice"})
	require.NoError(t, err)

	assert.NotEmpty(t, conv.ID)
	assert.Contains(t, conv.Metadata, "voice")
	assert.Equal(t, "u1", p.sessions.updates["s1"]["user_id"])
	assert.Equal(t, conv.ID, p.sessions.updates["s1"]["conversation_id"])
}

func TestCreateConversationSurvivesSessionCacheFailure(t *testing.T) {
	p := newPipeline()
	p.sessions.err = errors.New("redis down")
	svc := p.service()

	conv, err := svc.CreateConversation(context.Background(), "u1", "s1", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
}

func TestIngestHappyPath(t *testing.T) {
	p := newPipeline()
	seedConversation(p)
	p.extractor.candidates = []types.FactCandidate{
		{FactType: "preference", Content: "user loves hiking", Confidence: 0.9},
	}
	p.extractor.entities = []types.GraphEntity{{Type: types.NodeTopic, Name: "hiking"}}
	svc := p.service()

	msg, err := svc.Ingest(context.Background(), "conv1", types.RoleUser, "I love hiking", "")
	require.NoError(t, err)

	require.NotNil(t, msg.Embedding)
	require.Len(t, p.facts.created, 1)
	fact := p.facts.created[0]
	assert.Equal(t, "u1", fact.UserID)
	assert.Equal(t, msg.ID, fact.SourceMessageID)
	assert.Equal(t, 0.9, fact.Confidence)

	assert.Equal(t, []string{fact.ID}, p.index.upserts)
	assert.Equal(t, []string{fact.ID}, p.clusters.assigned)

	assert.Contains(t, p.graph.nodes, types.NodeEpisode+":conv1")
	assert.Contains(t, p.graph.nodes, types.NodeFact+":"+fact.ID)
	assert.Contains(t, p.graph.nodes, types.NodeTopic+":"+types.NodeTopic+":hiking")
	assert.Contains(t, p.graph.edges, types.EdgeRelatesTo+":"+fact.ID+"->"+types.NodeTopic+":hiking")
}

func TestIngestRejectsUnknownRole(t *testing.T) {
	p := newPipeline()
	seedConversation(p)
	svc := p.service()

	_, err := svc.Ingest(context.Background(), "conv1", types.Role("narrator"), "hello", "")
	assert.Error(t, err)
	assert.Empty(t, p.messages.created)
}

func TestIngestMessagePersistFailureIsFatal(t *testing.T) {
	p := newPipeline()
	seedConversation(p)
	p.messages.createErr = errs.Storage("create message", errors.New("disk full"))
	svc := p.service()

	_, err := svc.Ingest(context.Background(), "conv1", types.RoleUser, "hello", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrStorage)
	assert.Zero(t, p.embedder.calls)
}

func TestIngestEmbeddingFailureDegradesToNull(t *testing.T) {
	p := newPipeline()
	seedConversation(p)
	p.embedder.errs = []error{errs.Embedding("embed", errors.New("timeout"))}
	svc := p.service()

	msg, err := svc.Ingest(context.Background(), "conv1", types.RoleUser, "hello", "")
	require.NoError(t, err)

	assert.Nil(t, msg.Embedding)
	require.Len(t, p.messages.created, 1)
	assert.Empty(t, p.messages.attached)
}

func TestIngestExtractorFailureMeansZeroCandidates(t *testing.T) {
	p := newPipeline()
	seedConversation(p)
	p.extractor.err = errors.New("llm unavailable")
	svc := p.service()

	msg, err := svc.Ingest(context.Background(), "conv1", types.RoleUser, "hello", "")
	require.NoError(t, err)

	assert.NotNil(t, msg)
	assert.Empty(t, p.facts.created)
	assert.Empty(t, p.index.upserts)
	assert.Empty(t, p.graph.nodes)
}

func TestIngestGraphFailureIsNotFatal(t *testing.T) {
	p := newPipeline()
	seedConversation(p)
	p.extractor.candidates = []types.FactCandidate{
		{FactType: "preference", Content: "user loves hiking", Confidence: 0.9},
	}
	p.graph.err = errs.Graph("merge node", errors.New("bolt refused"))
	svc := p.service()

	_, err := svc.Ingest(context.Background(), "conv1", types.RoleUser, "I love hiking", "")
	require.NoError(t, err)
	assert.Len(t, p.facts.created, 1)
}

func TestIngestFactEmbeddingFailureSkipsCandidate(t *testing.T) {
	p := newPipeline()
	seedConversation(p)
	p.extractor.candidates = []types.FactCandidate{
		{FactType: "preference", Content: "first", Confidence: 0.9},
		{FactType: "preference", Content: "second", Confidence: 0.8},
	}
	// Message embed succeeds, first fact embed fails, second succeeds.
	p.embedder.errs = []error{nil, errs.Embedding("embed", errors.New("timeout")), nil}
	svc := p.service()

	_, err := svc.Ingest(context.Background(), "conv1", types.RoleUser, "hello", "")
	require.NoError(t, err)

	require.Len(t, p.facts.created, 1)
	assert.Equal(t, "second", p.facts.created[0].Content)
}

func TestBackfillAttachesEmbeddings(t *testing.T) {
	p := newPipeline()
	p.messages.missing = []*types.Message{
		{ID: "m1", Content: "first"},
		{ID: "m2", Content: "second"},
	}
	svc := p.service()

	n, err := svc.BackfillEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, p.messages.attached, 2)
}

func TestBackfillHaltsWhenEmbeddingStillDown(t *testing.T) {
	p := newPipeline()
	p.messages.missing = []*types.Message{
		{ID: "m1", Content: "first"},
		{ID: "m2", Content: "second"},
	}
	p.embedder.errs = []error{errs.Embedding("embed", errors.New("still down"))}
	svc := p.service()

	n, err := svc.BackfillEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	// The pass stops at the first unavailable signal instead of burning
	// through the whole batch.
	assert.Equal(t, 1, p.embedder.calls)
}
