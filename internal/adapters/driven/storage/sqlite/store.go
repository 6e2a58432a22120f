package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/vectorindex/cosine"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "ragbot.db"

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.ragbot/data/ragbot.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragbot", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SessionStore returns a SessionStore interface backed by this store.
func (s *Store) SessionStore() driven.SessionStore {
	return &sessionStore{store: s}
}

// VectorStore returns the local vector backend backed by this store.
func (s *Store) VectorStore() *VectorStore {
	return &VectorStore{store: s}
}

// migrate runs all pending migrations in version order, recording each
// applied version in schema_migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_sessions.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Session Store ====================

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// Create stores a new session, assigning an ID and timestamps when unset.
func (s *sessionStore) Create(ctx context.Context, session *domain.Session) error {
	if session.UserID == "" {
		return domain.ErrMissingTenant
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, session.ID, session.UserID, session.Title,
		session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get retrieves a session with its messages in insertion order.
func (s *sessionStore) Get(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	if userID == "" {
		return nil, domain.ErrMissingTenant
	}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM sessions WHERE id = ? AND user_id = ?
	`, sessionID, userID)

	session, err := scanSession(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT role, content, sources, created_at
		FROM messages WHERE session_id = ?
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	session.Messages = []domain.ConversationTurn{}
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		session.Messages = append(session.Messages, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return session, nil
}

// List returns the user's sessions, most recently updated first.
func (s *sessionStore) List(ctx context.Context, userID string) ([]domain.Session, error) {
	if userID == "" {
		return nil, domain.ErrMissingTenant
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM sessions WHERE user_id = ?
		ORDER BY updated_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// AppendMessage adds a turn and bumps the session's update time.
func (s *sessionStore) AppendMessage(ctx context.Context, userID, sessionID string, turn domain.ConversationTurn) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	sources := turn.Sources
	if sources == nil {
		sources = []string{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET updated_at = ? WHERE id = ? AND user_id = ?
	`, turn.Timestamp.UnixNano(), sessionID, userID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content, sources, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, string(turn.Role), turn.Content, string(sourcesJSON), turn.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	return tx.Commit()
}

// UpdateTitle renames a session.
func (s *sessionStore) UpdateTitle(ctx context.Context, userID, sessionID, title string) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE sessions SET title = ? WHERE id = ? AND user_id = ?
	`, title, sessionID, userID)
	if err != nil {
		return fmt.Errorf("updating title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a session; its messages cascade.
func (s *sessionStore) Delete(ctx context.Context, userID, sessionID string) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}

	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE id = ? AND user_id = ?
	`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAllForUser removes all of the user's sessions.
func (s *sessionStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.ErrMissingTenant
	}

	res, err := s.store.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted sessions: %w", err)
	}
	return int(n), nil
}

// Close is a no-op; the owning Store closes the database.
func (s *sessionStore) Close() error {
	return nil
}

// ==================== Vector Store ====================

// VectorStore is the local vector backend. Embeddings are stored as
// little-endian float32 blobs and searched by a cosine scan over the
// tenant's rows.
type VectorStore struct {
	store *Store
}

// Upsert stores or replaces vectors by ID in one transaction.
func (s *VectorStore) Upsert(ctx context.Context, vectors []domain.IndexedVector) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rag_chunks (id, user_id, source, chunk_id, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			chunk_id = excluded.chunk_id,
			content = excluded.content,
			embedding = excluded.embedding
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, v := range vectors {
		if v.UserID == "" {
			return 0, domain.ErrMissingTenant
		}
		if _, err := stmt.ExecContext(ctx, v.ID, v.UserID, v.Source, v.ChunkID, v.Content,
			float32SliceToBytes(v.Embedding)); err != nil {
			return 0, fmt.Errorf("upserting chunk %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing upsert: %w", err)
	}
	return len(vectors), nil
}

// Search scans the user's vectors and returns the k most similar.
func (s *VectorStore) Search(ctx context.Context, userID string, vector []float32, k int) ([]domain.RetrievedCandidate, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source, chunk_id, content, embedding
		FROM rag_chunks WHERE user_id = ?
		ORDER BY source, chunk_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	candidates := make([]domain.RetrievedCandidate, 0)
	for rows.Next() {
		var c domain.RetrievedCandidate
		var blob []byte
		if err := rows.Scan(&c.Metadata.Source, &c.Metadata.ChunkID, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Score = cosine.Similarity(vector, bytesToFloat32Slice(blob))
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return cosine.TopK(candidates, k), nil
}

// Sources returns the distinct source names.
func (s *VectorStore) Sources(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT DISTINCT source FROM rag_chunks WHERE user_id = ? ORDER BY source
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// DeleteSource removes every vector of one source.
func (s *VectorStore) DeleteSource(ctx context.Context, userID, source string) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM rag_chunks WHERE user_id = ? AND source = ?
	`, userID, source)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	return nil
}

// DeleteSourceFrom removes the vectors of one source with a chunk id of
// at least fromChunkID.
func (s *VectorStore) DeleteSourceFrom(ctx context.Context, userID, source string, fromChunkID int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM rag_chunks WHERE user_id = ? AND source = ? AND chunk_id >= ?
	`, userID, source, fromChunkID)
	if err != nil {
		return fmt.Errorf("deleting source tail: %w", err)
	}
	return nil
}

// DeleteUser removes every vector of the user.
func (s *VectorStore) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM rag_chunks WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// Count returns the number of vectors stored for the user.
func (s *VectorStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	row := s.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rag_chunks WHERE user_id = ?`, userID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Name identifies the backend.
func (s *VectorStore) Name() string {
	return string(domain.VectorBackendSQLite)
}

// Close closes the owning store's database.
func (s *VectorStore) Close() error {
	return s.store.Close()
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSession scans a session row without messages.
func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var createdAt, updatedAt int64

	if err := row.Scan(&session.ID, &session.UserID, &session.Title, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	session.CreatedAt = time.Unix(0, createdAt).UTC()
	session.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &session, nil
}

// scanTurn scans a message row.
func scanTurn(row rowScanner) (domain.ConversationTurn, error) {
	var turn domain.ConversationTurn
	var role, sourcesJSON string
	var createdAt int64

	if err := row.Scan(&role, &turn.Content, &sourcesJSON, &createdAt); err != nil {
		return turn, fmt.Errorf("scanning message: %w", err)
	}

	turn.Role = domain.Role(role)
	turn.Timestamp = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(sourcesJSON), &turn.Sources); err != nil {
		return turn, fmt.Errorf("unmarshalling sources: %w", err)
	}
	if len(turn.Sources) == 0 {
		turn.Sources = nil
	}
	return turn, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
