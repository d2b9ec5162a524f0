package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/cruise"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/graph"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/observability"
	"github.com/cdanielsen/dep-cruiser-no-ancestor/internal/rules"
)

const (
	saveRunQuery = "MERGE (r:Run {id: $runId}) " +
		"SET r.errors = $errors, r.warnings = $warnings, r.infos = $infos, r.modules = $modules, r.edges = $edges"

	saveModulesQuery = "UNWIND $rows AS row " +
		"MERGE (m:Module {path: row.path, kind: row.kind})"

	saveEdgesQuery = "UNWIND $rows AS row " +
		"MATCH (a:Module {path: row.from, kind: row.fromKind}), (b:Module {path: row.to, kind: row.toKind}) " +
		"MERGE (a)-[d:DEPENDS_ON {run: $runId}]->(b) " +
		"SET d.types = row.types, d.specifiers = row.specifiers, d.dynamic = row.dynamic, d.circular = row.circular"

	saveViolationsQuery = "MATCH (r:Run {id: $runId}) " +
		"UNWIND $rows AS row " +
		"CREATE (v:Violation) SET v = row " +
		"MERGE (r)-[:REPORTED]->(v) " +
		"WITH v, row " +
		"MATCH (a:Module {path: row.from, kind: row.fromKind}), (b:Module {path: row.to, kind: row.toKind}) " +
		"MERGE (v)-[:FROM]->(a) " +
		"MERGE (v)-[:TO]->(b)"

	runViolationsQuery = "MATCH (:Run {id: $runId})-[:REPORTED]->(v:Violation) " +
		"RETURN properties(v) AS v ORDER BY v.seq"
)

// Neo4jRepository implements graph.Repository using Neo4j.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a Neo4j-backed repository.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver}, nil
}

func (r *Neo4jRepository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
}

// SaveRun writes the run in a single transaction so a failed save leaves
// no partial run behind.
func (r *Neo4jRepository) SaveRun(ctx context.Context, res *cruise.Result) (err error) {
	ctx, span := observability.StartStoreSpan(ctx, "neo4j", res.RunID)
	defer func() {
		if err != nil {
			observability.RecordError(span, err)
		}
		span.End()
	}()

	rows := graph.BuildRows(res)
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		steps := []struct {
			name   string
			query  string
			params map[string]any
		}{
			{"run", saveRunQuery, map[string]any{
				"runId":    rows.RunID,
				"errors":   int64(res.Summary.Errors),
				"warnings": int64(res.Summary.Warnings),
				"infos":    int64(res.Summary.Infos),
				"modules":  int64(res.Summary.Modules),
				"edges":    int64(res.Summary.Edges),
			}},
			{"modules", saveModulesQuery, map[string]any{"rows": rows.Modules}},
			{"edges", saveEdgesQuery, map[string]any{"runId": rows.RunID, "rows": rows.Edges}},
			{"violations", saveViolationsQuery, map[string]any{"runId": rows.RunID, "rows": rows.Violations}},
		}
		for _, s := range steps {
			if _, err := tx.Run(ctx, s.query, s.params); err != nil {
				return nil, fmt.Errorf("store %s: %w", s.name, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", res.RunID, err)
	}
	return nil
}

func (r *Neo4jRepository) RunViolations(ctx context.Context, runID string) ([]rules.Violation, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, runViolationsQuery, map[string]any{"runId": runID})
		if err != nil {
			return nil, err
		}
		var out []rules.Violation
		for records.Next(ctx) {
			v, _ := records.Record().Get("v")
			props, _ := v.(map[string]any)
			out = append(out, graph.ViolationFromRecord(props))
		}
		return out, records.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]rules.Violation), nil
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

var _ graph.Repository = (*Neo4jRepository)(nil)
