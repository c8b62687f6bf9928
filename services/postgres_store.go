package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/bytebloomg/PrivateCourt/court"
	"github.com/bytebloomg/PrivateCourt/crypto"
)

// PostgresStore implements TrialStore with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trials (
		id BIGINT PRIMARY KEY,
		judge VARCHAR(42) NOT NULL,
		party_a VARCHAR(42) NOT NULL,
		party_b VARCHAR(42) NOT NULL,
		is_active BOOLEAN NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		message_count BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trial_messages (
		trial_id BIGINT NOT NULL REFERENCES trials(id),
		message_index BIGINT NOT NULL,
		sender VARCHAR(42) NOT NULL,
		encrypted_content VARCHAR(66) NOT NULL,
		encrypted_author VARCHAR(66) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (trial_id, message_index)
	);

	CREATE INDEX IF NOT EXISTS idx_trials_judge ON trials(judge);
	CREATE INDEX IF NOT EXISTS idx_messages_trial ON trial_messages(trial_id);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveTrial upserts a trial record. Only the mutable columns are updated on
// conflict; roles and creation time never change after insert.
func (s *PostgresStore) SaveTrial(t *court.Trial) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO trials
		(id, judge, party_a, party_b, is_active, created_at, message_count)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		is_active = EXCLUDED.is_active,
		message_count = EXCLUDED.message_count
	`

	_, err := s.db.ExecContext(ctx, query,
		int64(t.ID),
		t.Judge.String(),
		t.PartyA.String(),
		t.PartyB.String(),
		t.IsActive,
		t.CreatedAt,
		int64(t.MessageCount),
	)
	return err
}

// SaveMessage persists one ledger entry. Entries are immutable; replays of
// the same (trial, index) pair are ignored.
func (s *PostgresStore) SaveMessage(trialID, index uint64, entry *court.MessageEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO trial_messages
		(trial_id, message_index, sender, encrypted_content, encrypted_author, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (trial_id, message_index) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		int64(trialID),
		int64(index),
		entry.Sender.String(),
		entry.EncryptedContent.String(),
		entry.EncryptedAuthor.String(),
		entry.Timestamp,
	)
	return err
}

// LoadAll retrieves every persisted trial and its messages in index order.
func (s *PostgresStore) LoadAll() ([]court.Trial, map[uint64][]court.MessageEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	trials, err := s.loadTrials(ctx)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.loadMessages(ctx)
	if err != nil {
		return nil, nil, err
	}
	return trials, messages, nil
}

func (s *PostgresStore) loadTrials(ctx context.Context) ([]court.Trial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, judge, party_a, party_b, is_active, created_at, message_count
		FROM trials ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trials []court.Trial
	for rows.Next() {
		var (
			id, messageCount      int64
			judge, partyA, partyB string
			isActive              bool
			createdAt             time.Time
		)
		if err := rows.Scan(&id, &judge, &partyA, &partyB, &isActive, &createdAt, &messageCount); err != nil {
			return nil, fmt.Errorf("scanning trial row: %w", err)
		}

		t := court.Trial{
			ID:           uint64(id),
			IsActive:     isActive,
			CreatedAt:    createdAt,
			MessageCount: uint64(messageCount),
		}
		if t.Judge, err = crypto.AddressFromHex(judge); err != nil {
			return nil, fmt.Errorf("trial %d judge: %w", id, err)
		}
		if t.PartyA, err = crypto.AddressFromHex(partyA); err != nil {
			return nil, fmt.Errorf("trial %d party A: %w", id, err)
		}
		if t.PartyB, err = crypto.AddressFromHex(partyB); err != nil {
			return nil, fmt.Errorf("trial %d party B: %w", id, err)
		}
		trials = append(trials, t)
	}
	return trials, rows.Err()
}

func (s *PostgresStore) loadMessages(ctx context.Context) (map[uint64][]court.MessageEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trial_id, message_index, sender, encrypted_content, encrypted_author, created_at
		FROM trial_messages ORDER BY trial_id, message_index
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make(map[uint64][]court.MessageEntry)
	for rows.Next() {
		var (
			trialID, index          int64
			sender, content, author string
			createdAt               time.Time
		)
		if err := rows.Scan(&trialID, &index, &sender, &content, &author, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		var entry court.MessageEntry
		entry.Timestamp = createdAt
		if entry.Sender, err = crypto.AddressFromHex(sender); err != nil {
			return nil, fmt.Errorf("trial %d message %d sender: %w", trialID, index, err)
		}
		if err = entry.EncryptedContent.UnmarshalText([]byte(content)); err != nil {
			return nil, fmt.Errorf("trial %d message %d content handle: %w", trialID, index, err)
		}
		if err = entry.EncryptedAuthor.UnmarshalText([]byte(author)); err != nil {
			return nil, fmt.Errorf("trial %d message %d author handle: %w", trialID, index, err)
		}

		if int64(len(messages[uint64(trialID)])) != index {
			return nil, fmt.Errorf("trial %d: message index %d out of sequence", trialID, index)
		}
		messages[uint64(trialID)] = append(messages[uint64(trialID)], entry)
	}
	return messages, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
