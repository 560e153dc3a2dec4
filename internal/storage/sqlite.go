package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"symplan/internal/clustering"
	"symplan/internal/graph"

	_ "github.com/mattn/go-sqlite3"
)

// SourceFilter narrows which symbol rows are loaded from the index.
type SourceFilter struct {
	// Types keeps only symbols with these canonical tags. Empty keeps all.
	Types []graph.SymbolType

	// ExcludePrefixes drops symbols whose file path starts with any entry,
	// e.g. vendored trees the documentation run should skip.
	ExcludePrefixes []string
}

// DefaultSourceFilter keeps function/struct/typedef symbols and skips
// contrib/ trees, matching the documentation pipeline's usual input.
func DefaultSourceFilter() SourceFilter {
	return SourceFilter{
		Types:           append([]graph.SymbolType(nil), graph.RecognizedTypes...),
		ExcludePrefixes: []string{"contrib/"},
	}
}

// SQLiteSource reads the symbol_definitions and symbol_reference tables
// written by the external indexing tool. Read-only.
type SQLiteSource struct {
	db     *sql.DB
	filter SourceFilter
}

// OpenSource opens the index database. A missing or unreadable file is
// reported as ErrSourceUnavailable.
func OpenSource(path string, filter SourceFilter) (*SQLiteSource, error) {
	// sqlite would happily create an empty file here, so check existence
	// up front to keep the failure mode explicit.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, path)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	return &SQLiteSource{db: db, filter: filter}, nil
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// LoadSymbols reads all symbol definitions passing the filter.
func (s *SQLiteSource) LoadSymbols(ctx context.Context) ([]*graph.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol_name, file_path, line_num_start, line_num_end, symbol_type
		FROM symbol_definitions
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query symbol_definitions: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	allowed := make(map[graph.SymbolType]bool, len(s.filter.Types))
	for _, t := range s.filter.Types {
		allowed[t] = true
	}

	var symbols []*graph.Symbol
	for rows.Next() {
		var (
			sym     graph.Symbol
			rawType string
		)
		if err := rows.Scan(&sym.ID, &sym.Name, &sym.FilePath, &sym.StartLine, &sym.EndLine, &rawType); err != nil {
			return nil, fmt.Errorf("%w: failed to scan symbol row: %v", ErrSourceUnavailable, err)
		}
		sym.Type = graph.NormalizeType(rawType)

		if len(allowed) > 0 && !allowed[sym.Type] {
			continue
		}
		if s.excludedPath(sym.FilePath) {
			continue
		}
		symbols = append(symbols, &sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return symbols, nil
}

// LoadReferences reads the raw edge list. Dangling endpoints are not
// resolved here; the graph adapter drops and counts them.
func (s *SQLiteSource) LoadReferences(ctx context.Context) ([]graph.Edge, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT from_node, to_node FROM symbol_reference")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query symbol_reference: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.From, &e.To); err != nil {
			return nil, fmt.Errorf("%w: failed to scan reference row: %v", ErrSourceUnavailable, err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return edges, nil
}

func (s *SQLiteSource) excludedPath(filePath string) bool {
	for _, prefix := range s.filter.ExcludePrefixes {
		if strings.HasPrefix(filePath, prefix) {
			return true
		}
	}
	return false
}

// SQLiteMeta is the metadata store holding layered and clustered symbols.
type SQLiteMeta struct {
	db *sql.DB
}

// OpenMeta creates or opens the metadata database and ensures its schema.
func OpenMeta(path string) (*SQLiteMeta, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	m := &SQLiteMeta{db: db}
	if err := m.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return m, nil
}

func (m *SQLiteMeta) Close() error {
	return m.db.Close()
}

func (m *SQLiteMeta) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS symbols (
			id INTEGER PRIMARY KEY,
			name TEXT,
			symbol_type TEXT,
			file_path TEXT,
			module TEXT,
			start_line INTEGER,
			end_line INTEGER,
			layer INTEGER,
			cluster_id INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS dependencies (
			from_node INTEGER,
			to_node INTEGER,
			PRIMARY KEY (from_node, to_node)
		);`,
		`CREATE TABLE IF NOT EXISTS clusters (
			cluster_id INTEGER PRIMARY KEY,
			cluster_type TEXT,
			layer INTEGER,
			symbols JSON,
			estimated_tokens INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path);`,
	}

	for _, q := range queries {
		if _, err := m.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears all prior run state. Full-table-replace semantics: a fresh
// run never sees stale layer or cluster assignments.
func (m *SQLiteMeta) Reset(ctx context.Context) error {
	for _, table := range []string{"symbols", "dependencies", "clusters"} {
		if _, err := m.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (m *SQLiteMeta) SaveSymbols(ctx context.Context, symbols []*graph.Symbol) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (id, name, symbol_type, file_path, module, start_line, end_line)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			symbol_type=excluded.symbol_type,
			file_path=excluded.file_path,
			module=excluded.module,
			start_line=excluded.start_line,
			end_line=excluded.end_line
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range symbols {
		if _, err := stmt.Exec(s.ID, s.Name, string(s.Type), s.FilePath, s.Module, s.StartLine, s.EndLine); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *SQLiteMeta) SaveDependencies(ctx context.Context, edges []graph.Edge) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dependencies (from_node, to_node) VALUES (?, ?)
		ON CONFLICT(from_node, to_node) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.Exec(e.From, e.To); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *SQLiteMeta) UpdateLayers(ctx context.Context, layers [][]int64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "UPDATE symbols SET layer = ? WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for layerIdx, members := range layers {
		for _, id := range members {
			if _, err := stmt.Exec(layerIdx, id); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (m *SQLiteMeta) Symbols(ctx context.Context) ([]*graph.Symbol, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, symbol_type, file_path, module, start_line, end_line, layer, cluster_id
		FROM symbols
		ORDER BY file_path, symbol_type, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []*graph.Symbol
	for rows.Next() {
		var (
			s         graph.Symbol
			symType   string
			layer     sql.NullInt64
			clusterID sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Name, &symType, &s.FilePath, &s.Module, &s.StartLine, &s.EndLine, &layer, &clusterID); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		s.Type = graph.SymbolType(symType)
		if layer.Valid {
			v := int(layer.Int64)
			s.Layer = &v
		}
		if clusterID.Valid {
			v := int(clusterID.Int64)
			s.ClusterID = &v
		}
		symbols = append(symbols, &s)
	}
	return symbols, rows.Err()
}

func (m *SQLiteMeta) SaveCluster(ctx context.Context, c *clustering.Cluster) error {
	memberJSON, err := json.Marshal(c.SymbolIDs)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO clusters (cluster_id, cluster_type, layer, symbols, estimated_tokens)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Type, c.Layer, memberJSON, c.EstimatedTokens); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "UPDATE symbols SET cluster_id = ? WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range c.SymbolIDs {
		if _, err := stmt.Exec(c.ID, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *SQLiteMeta) Clusters(ctx context.Context) ([]*clustering.Cluster, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT cluster_id, cluster_type, layer, symbols, estimated_tokens
		FROM clusters
		ORDER BY layer, cluster_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	var clusters []*clustering.Cluster
	for rows.Next() {
		var (
			c          clustering.Cluster
			memberJSON []byte
		)
		if err := rows.Scan(&c.ID, &c.Type, &c.Layer, &memberJSON, &c.EstimatedTokens); err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		if err := json.Unmarshal(memberJSON, &c.SymbolIDs); err != nil {
			return nil, fmt.Errorf("failed to decode cluster %d members: %w", c.ID, err)
		}
		clusters = append(clusters, &c)
	}
	return clusters, rows.Err()
}

func (m *SQLiteMeta) Stats(ctx context.Context) (*Stats, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(id) FROM symbols),
			(SELECT COUNT(cluster_id) FROM clusters),
			(SELECT COUNT(DISTINCT layer) FROM symbols WHERE layer IS NOT NULL),
			(SELECT COALESCE(AVG(estimated_tokens), 0) FROM clusters)
	`)

	var stats Stats
	if err := row.Scan(&stats.TotalSymbols, &stats.TotalClusters, &stats.TotalLayers, &stats.AvgTokensPerCluster); err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return &stats, nil
}
