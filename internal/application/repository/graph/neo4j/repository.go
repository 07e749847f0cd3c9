// Package neo4j implements the graph store on Neo4j. Every query carries
// the owner id so one user's subgraph is never reachable from another's.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

var nodeLabels = map[string]bool{
	types.NodeFact:       true,
	types.NodePerson:     true,
	types.NodeTopic:      true,
	types.NodeConcept:    true,
	types.NodeLocation:   true,
	types.NodePreference: true,
	types.NodeEpisode:    true,
}

var edgeTypes = map[string]bool{
	types.EdgeRelatesTo:   true,
	types.EdgeMentions:    true,
	types.EdgeFollowsFrom: true,
	types.EdgeContradicts: true,
	types.EdgeSupports:    true,
	types.EdgePartOf:      true,
}

type graphStore struct {
	driver  neo4j.Driver
	timeout time.Duration
}

// NewGraphStore creates a Neo4j-backed graph store.
func NewGraphStore(driver neo4j.Driver, timeout time.Duration) interfaces.GraphStore {
	return &graphStore{driver: driver, timeout: timeout}
}

func (g *graphStore) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

func (g *graphStore) MergeNode(ctx context.Context, ownerID, nodeType, key string, props map[string]any) error {
	if !nodeLabels[nodeType] {
		return fmt.Errorf("unknown node type %q", nodeType)
	}
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	// Labels cannot be parameterized; nodeType is validated above.
	query := fmt.Sprintf(`
		MERGE (n:%s {key: $key, user_id: $user_id})
		SET n += $props
	`, nodeType)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, query, map[string]interface{}{
			"key":     key,
			"user_id": ownerID,
			"props":   sanitizeProps(props),
		})
	})
	if err != nil {
		return errs.Graph("merge node", err)
	}
	return nil
}

func (g *graphStore) MergeEdge(ctx context.Context, ownerID, edgeType, fromKey, toKey string, props map[string]any) error {
	if !edgeTypes[edgeType] {
		return fmt.Errorf("unknown edge type %q", edgeType)
	}
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (a {key: $from, user_id: $user_id})
		MATCH (b {key: $to, user_id: $user_id})
		MERGE (a)-[r:%s]->(b)
		SET r += $props
	`, edgeType)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, query, map[string]interface{}{
			"from":    fromKey,
			"to":      toKey,
			"user_id": ownerID,
			"props":   sanitizeProps(props),
		})
	})
	if err != nil {
		return errs.Graph("merge edge", err)
	}
	return nil
}

func (g *graphStore) Neighborhood(ctx context.Context, ownerID string, startKeys []string, maxDepth int) (map[string][]string, error) {
	if len(startKeys) == 0 {
		return map[string][]string{}, nil
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	ctx, cancel := g.callCtx(ctx)
	defer cancel()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	// Variable-length bounds cannot be parameterized; maxDepth is a small
	// validated integer.
	query := fmt.Sprintf(`
		MATCH (s {user_id: $user_id})-[*1..%d]-(n {user_id: $user_id})
		WHERE s.key IN $keys AND n.key <> s.key
		RETURN s.key AS start, collect(DISTINCT n.key) AS neighbors
	`, maxDepth)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"user_id": ownerID,
			"keys":    startKeys,
		})
		if err != nil {
			return nil, err
		}

		neighborhoods := make(map[string][]string, len(startKeys))
		for res.Next(ctx) {
			record := res.Record()
			startVal, _ := record.Get("start")
			neighborsVal, _ := record.Get("neighbors")

			start, ok := startVal.(string)
			if !ok {
				continue
			}
			raw, ok := neighborsVal.([]interface{})
			if !ok {
				continue
			}
			neighbors := make([]string, 0, len(raw))
			for _, v := range raw {
				if s, ok := v.(string); ok {
					neighbors = append(neighbors, s)
				}
			}
			neighborhoods[start] = neighbors
		}
		return neighborhoods, res.Err()
	})
	if err != nil {
		return nil, errs.Graph("neighborhood", err)
	}

	neighborhoods := result.(map[string][]string)
	logger.Debugf(ctx, "graph neighborhood resolved for %d/%d start nodes", len(neighborhoods), len(startKeys))
	return neighborhoods, nil
}

// sanitizeProps drops nil values so MERGE SET never writes null properties.
func sanitizeProps(props map[string]any) map[string]any {
	if props == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
