// Package milvus implements the vector index on a Milvus collection, as an
// alternative to the pgvector backend for deployments that keep embeddings
// out of the relational store.
package milvus

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	client "github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/agentmemz/agentmemz/internal/config"
	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

const (
	fieldID         = "id"
	fieldOwnerID    = "owner_id"
	fieldEmbedding  = "embedding"
	fieldCreatedAt  = "created_at"
	fieldValidUntil = "valid_until"
)

var outputFields = []string{fieldID, fieldOwnerID, fieldCreatedAt, fieldValidUntil}

// NewVectorIndex creates a Milvus-backed vector index.
func NewVectorIndex(c *client.Client, cfg config.MilvusConfig, timeout time.Duration) interfaces.VectorIndex {
	return &vectorIndex{
		client:         c,
		collectionName: cfg.Collection,
		dimension:      cfg.Dimension,
		timeout:        timeoutConfig{perCall: timeout.Milliseconds()},
	}
}

func (m *vectorIndex) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(m.timeout.perCall)*time.Millisecond)
}

// ensureCollection creates and loads the collection on first use.
func (m *vectorIndex) ensureCollection(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.initErr = m.createAndLoad(ctx)
	})
	return m.initErr
}

func (m *vectorIndex) createAndLoad(ctx context.Context) error {
	log := logger.GetLogger(ctx)

	has, err := m.client.HasCollection(ctx, client.NewHasCollectionOption(m.collectionName))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !has {
		log.Infof("[Milvus] Creating collection %s with dimension %d", m.collectionName, m.dimension)

		schema := &entity.Schema{
			CollectionName: m.collectionName,
			Description:    "agentmemz fact embeddings",
			AutoID:         false,
			Fields: []*entity.Field{
				entity.NewField().
					WithName(fieldID).
					WithDataType(entity.FieldTypeVarChar).
					WithIsPrimaryKey(true).
					WithMaxLength(64),
				entity.NewField().
					WithName(fieldOwnerID).
					WithDataType(entity.FieldTypeVarChar).
					WithMaxLength(255),
				entity.NewField().
					WithName(fieldEmbedding).
					WithDataType(entity.FieldTypeFloatVector).
					WithDim(int64(m.dimension)),
				entity.NewField().
					WithName(fieldCreatedAt).
					WithDataType(entity.FieldTypeInt64),
				entity.NewField().
					WithName(fieldValidUntil).
					WithDataType(entity.FieldTypeInt64),
			},
		}

		indexOpts := []client.CreateIndexOption{
			client.NewCreateIndexOption(m.collectionName, fieldEmbedding, index.NewHNSWIndex(entity.COSINE, 16, 128)),
			client.NewCreateIndexOption(m.collectionName, fieldOwnerID, index.NewAutoIndex(entity.COSINE)),
			client.NewCreateIndexOption(m.collectionName, fieldValidUntil, index.NewAutoIndex(entity.COSINE)),
		}

		err = m.client.CreateCollection(ctx, client.NewCreateCollectionOption(m.collectionName, schema).WithIndexOptions(indexOpts...))
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	loadTask, err := m.client.LoadCollection(ctx, client.NewLoadCollectionOption(m.collectionName))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to await load collection: %w", err)
	}
	return nil
}

func (m *vectorIndex) Upsert(ctx context.Context, ownerID, recordID string, vector []float32) error {
	ctx, cancel := m.callCtx(ctx)
	defer cancel()

	if err := m.ensureCollection(ctx); err != nil {
		return errs.Index("upsert vector", err)
	}

	opt := client.NewColumnBasedInsertOption(m.collectionName).
		WithVarcharColumn(fieldID, []string{recordID}).
		WithVarcharColumn(fieldOwnerID, []string{ownerID}).
		WithFloatVectorColumn(fieldEmbedding, m.dimension, [][]float32{vector}).
		WithInt64Column(fieldCreatedAt, []int64{time.Now().UTC().UnixNano()}).
		WithInt64Column(fieldValidUntil, []int64{0})
	if _, err := m.client.Upsert(ctx, opt); err != nil {
		return errs.Index("upsert vector", err)
	}
	return nil
}

func (m *vectorIndex) TopK(ctx context.Context, ownerID string, vector []float32, k int, minScore float64, validOnly bool) ([]types.VectorMatch, error) {
	ctx, cancel := m.callCtx(ctx)
	defer cancel()

	if err := m.ensureCollection(ctx); err != nil {
		return nil, errs.Index("vector top-k", err)
	}

	f := newFilterExpr().and(fieldOwnerID, "==", ownerID)
	if validOnly {
		f.andAny(
			f.clause(fieldValidUntil, "==", int64(0)),
			f.clause(fieldValidUntil, ">", time.Now().UTC().UnixNano()),
		)
	}

	searchOpt := client.NewSearchOption(m.collectionName, k, []entity.Vector{entity.FloatVector(vector)})
	searchOpt.WithANNSField(fieldEmbedding)
	if minScore > 0 {
		ann := index.NewCustomAnnParam()
		ann.WithRadius(minScore)
		searchOpt.WithAnnParam(&ann)
	}
	searchOpt.WithFilter(f.expr)
	for name, value := range f.params {
		searchOpt.WithTemplateParam(name, value)
	}
	searchOpt.WithOutputFields(outputFields...)

	resultSet, err := m.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, errs.Index("vector top-k", err)
	}

	hits, err := convertResultSet(resultSet)
	if err != nil {
		return nil, errs.Index("vector top-k", err)
	}

	// Milvus orders by score only; apply the earlier-created-first tie-break.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].CreatedAt < hits[j].CreatedAt
	})

	matches := make([]types.VectorMatch, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < minScore {
			continue
		}
		matches = append(matches, types.VectorMatch{ID: hit.ID, Score: hit.Score})
	}

	logger.Debugf(ctx, "milvus top-k returned %d matches for owner %s", len(matches), ownerID)
	return matches, nil
}

// Invalidate closes the record's validity window so validOnly searches stop
// returning it. The stored vector is re-upserted with valid_until set; the
// embedding itself is read back from the collection.
func (m *vectorIndex) Invalidate(ctx context.Context, ownerID, recordID string, at time.Time) error {
	ctx, cancel := m.callCtx(ctx)
	defer cancel()

	if err := m.ensureCollection(ctx); err != nil {
		return errs.Index("invalidate vector", err)
	}

	f := newFilterExpr().and(fieldID, "==", recordID).and(fieldOwnerID, "==", ownerID)
	queryOpt := client.NewQueryOption(m.collectionName).
		WithFilter(f.expr).
		WithOutputFields("*")
	for name, value := range f.params {
		queryOpt.WithTemplateParam(name, value)
	}

	resultSet, err := m.client.Query(ctx, queryOpt)
	if err != nil {
		return errs.Index("invalidate vector", err)
	}
	rows, err := convertQueryResult(resultSet)
	if err != nil {
		return errs.Index("invalidate vector", err)
	}
	if len(rows) == 0 {
		return nil
	}

	row := rows[0]
	opt := client.NewColumnBasedInsertOption(m.collectionName).
		WithVarcharColumn(fieldID, []string{row.ID}).
		WithVarcharColumn(fieldOwnerID, []string{row.OwnerID}).
		WithFloatVectorColumn(fieldEmbedding, m.dimension, [][]float32{row.Embedding}).
		WithInt64Column(fieldCreatedAt, []int64{row.CreatedAt}).
		WithInt64Column(fieldValidUntil, []int64{at.UnixNano()})
	if _, err := m.client.Upsert(ctx, opt); err != nil {
		return errs.Index("invalidate vector", err)
	}
	return nil
}

func convertResultSet(resultSet []client.ResultSet) ([]*factVectorWithScore, error) {
	if len(resultSet) == 0 {
		return nil, nil
	}
	set := resultSet[0]

	n := 0
	if len(set.Fields) > 0 {
		n = set.Fields[0].Len()
	}
	hits := make([]*factVectorWithScore, n)
	for i := range hits {
		hits[i] = &factVectorWithScore{}
	}
	for i, score := range set.Scores {
		if i < n {
			hits[i].Score = float64(score)
		}
	}

	if err := fillScalarColumns(set, func(i int) *factVector { return &hits[i].factVector }, n); err != nil {
		return nil, err
	}
	return hits, nil
}

func convertQueryResult(set client.ResultSet) ([]*factVector, error) {
	n := 0
	if len(set.Fields) > 0 {
		n = set.Fields[0].Len()
	}
	rows := make([]*factVector, n)
	for i := range rows {
		rows[i] = &factVector{}
	}
	if err := fillScalarColumns(set, func(i int) *factVector { return rows[i] }, n); err != nil {
		return nil, err
	}

	if col := set.GetColumn(fieldEmbedding); col != nil {
		for i := 0; i < n; i++ {
			val, err := col.Get(i)
			if err != nil {
				return nil, fmt.Errorf("get embedding column: %w", err)
			}
			if vec, ok := val.([]float32); ok {
				rows[i].Embedding = vec
			}
		}
	}
	return rows, nil
}

func fillScalarColumns(set client.ResultSet, row func(i int) *factVector, n int) error {
	if col := set.GetColumn(fieldID); col != nil {
		for i := 0; i < n && i < col.Len(); i++ {
			val, err := col.GetAsString(i)
			if err != nil {
				return err
			}
			row(i).ID = val
		}
	}
	if col := set.GetColumn(fieldOwnerID); col != nil {
		for i := 0; i < n && i < col.Len(); i++ {
			val, err := col.GetAsString(i)
			if err != nil {
				return err
			}
			row(i).OwnerID = val
		}
	}
	if col := set.GetColumn(fieldCreatedAt); col != nil {
		for i := 0; i < n && i < col.Len(); i++ {
			val, err := col.GetAsInt64(i)
			if err != nil {
				return err
			}
			row(i).CreatedAt = val
		}
	}
	if col := set.GetColumn(fieldValidUntil); col != nil {
		for i := 0; i < n && i < col.Len(); i++ {
			val, err := col.GetAsInt64(i)
			if err != nil {
				return err
			}
			row(i).ValidUntil = val
		}
	}
	return nil
}
