package pg

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/sweetpotato0/govassist/vector"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PGVectorStore implements VectorStore using PostgreSQL with pgvector extension.
// One table holds one service collection.
type PGVectorStore struct {
	db        *sql.DB
	dimension int
	tableName string
}

var _ vector.VectorStore = (*PGVectorStore)(nil)

// PGVectorConfig holds pgvector configuration
type PGVectorConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int    // Embedding dimension
	TableName string // Table holding one service collection
}

// DefaultPGVectorConfig returns default pgvector configuration
func DefaultPGVectorConfig() *PGVectorConfig {
	return &PGVectorConfig{
		Host:      "127.0.0.1",
		Port:      5432,
		User:      "postgres",
		DBName:    "govassist",
		SSLMode:   "disable",
		Dimension: 384,
	}
}

// DSN builds a lib/pq connection string.
func (c *PGVectorConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Open connects to PostgreSQL. The returned handle is shared by every
// service collection.
func Open(ctx context.Context, config *PGVectorConfig) (*sql.DB, error) {
	if config == nil {
		config = DefaultPGVectorConfig()
	}
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return db, nil
}

// NewWithDB binds a collection table on an open database handle.
func NewWithDB(db *sql.DB, tableName string, dimension int) (*PGVectorStore, error) {
	if !tableNamePattern.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name %q", tableName)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	return &PGVectorStore{db: db, dimension: dimension, tableName: tableName}, nil
}

// Setup enables pgvector and creates the collection table.
func (s *PGVectorStore) Setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		service VARCHAR(64) NOT NULL,
		region VARCHAR(64) NOT NULL DEFAULT '',
		section VARCHAR(255) NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, s.tableName, s.dimension)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// AddEmbedding adds a new embedding to the store
func (s *PGVectorStore) AddEmbedding(ctx context.Context, embedding *vector.Embedding) error {
	if embedding == nil {
		return fmt.Errorf("embedding cannot be nil")
	}
	if embedding.ID == "" {
		return fmt.Errorf("embedding ID cannot be empty")
	}
	if len(embedding.Vector) != s.dimension {
		return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.dimension, len(embedding.Vector))
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, service, region, section, text, embedding)
	VALUES ($1, $2, $3, $4, $5, $6::vector)
	ON CONFLICT (id) DO UPDATE SET
		service = EXCLUDED.service,
		region = EXCLUDED.region,
		section = EXCLUDED.section,
		text = EXCLUDED.text,
		embedding = EXCLUDED.embedding
	`, s.tableName)

	meta := embedding.Metadata
	_, err := s.db.ExecContext(ctx, query,
		embedding.ID,
		meta[vector.MetaService],
		meta[vector.MetaRegion],
		meta[vector.MetaSection],
		embedding.Text,
		vectorToString(embedding.Vector),
	)
	if err != nil {
		return fmt.Errorf("failed to add embedding: %w", err)
	}
	return nil
}

// Search orders the collection by negative inner product (`<#>`), so the
// highest inner product comes first. Scores are returned as inner products.
func (s *PGVectorStore) Search(ctx context.Context, queryVector []float32, topK int) ([]vector.Match, error) {
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension mismatch: expected %d, got %d", s.dimension, len(queryVector))
	}
	if topK <= 0 {
		topK = 10
	}

	query := fmt.Sprintf(`
	SELECT id, service, region, section, text, (embedding <#> $1::vector) * -1 AS score
	FROM %s
	ORDER BY embedding <#> $1::vector
	LIMIT $2
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, vectorToString(queryVector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}
	defer rows.Close()

	matches := make([]vector.Match, 0, topK)
	for rows.Next() {
		var id, service, region, section, text string
		var score float64
		if err := rows.Scan(&id, &service, &region, &section, &text, &score); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		matches = append(matches, vector.Match{
			Embedding: &vector.Embedding{
				ID:   id,
				Text: text,
				Metadata: map[string]string{
					vector.MetaService: service,
					vector.MetaRegion:  region,
					vector.MetaSection: section,
				},
			},
			Score: float32(score),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w", err)
	}
	return matches, nil
}

// Count returns the number of embeddings
func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

// Reset deletes every row so a collection can be rebuilt.
func (s *PGVectorStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.tableName)); err != nil {
		return fmt.Errorf("failed to reset %s: %w", s.tableName, err)
	}
	return nil
}

func vectorToString(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
