// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tenanthub/internal/models"
	"tenanthub/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store is the PostgreSQL-backed storage.Store implementation. Deployments
// that cannot run the document store use it; the sorted-pair primary key on
// conversations gives the same create-if-absent guarantee natively.
type Store struct {
	DB *sqlx.DB
}

// NewStore creates a new PostgreSQL database connection
func NewStore(connectionString string) (*Store, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL!")

	store := &Store{DB: db}
	if err := store.initializeTables(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// Close closes the database connection
func (p *Store) Close(ctx context.Context) error {
	log.Println("Closing PostgreSQL connection...")
	return p.DB.Close()
}

// initializeTables creates all necessary tables if they don't exist
func (p *Store) initializeTables(ctx context.Context) error {
	// Users table
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			avatar VARCHAR(255),
			role VARCHAR(20) NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}

	// Conversations table. The primary key is the sorted participant pair,
	// so inserting a duplicate pair is a conflict rather than a second row.
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id VARCHAR(130) PRIMARY KEY,
			participant_a VARCHAR(64) NOT NULL,
			participant_b VARCHAR(64) NOT NULL,
			participant_details JSONB NOT NULL,
			last_message JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create conversations table: %v", err)
	}

	// Messages table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR(64) PRIMARY KEY,
			conversation_id VARCHAR(130) REFERENCES conversations(id),
			sender_id VARCHAR(64) NOT NULL,
			sender_name VARCHAR(100) NOT NULL,
			content TEXT NOT NULL,
			type VARCHAR(10) NOT NULL,
			timestamp BIGINT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create messages table: %v", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_messages_feed
		ON messages (conversation_id, timestamp, created_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create message index: %v", err)
	}

	return nil
}

type conversationRow struct {
	ID                 string    `db:"id"`
	ParticipantA       string    `db:"participant_a"`
	ParticipantB       string    `db:"participant_b"`
	ParticipantDetails []byte    `db:"participant_details"`
	LastMessage        []byte    `db:"last_message"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r *conversationRow) toModel() (*models.Conversation, error) {
	conv := &models.Conversation{
		ID:           r.ID,
		Participants: [2]string{r.ParticipantA, r.ParticipantB},
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if err := json.Unmarshal(r.ParticipantDetails, &conv.ParticipantDetails); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to decode participant details", err)
	}
	if len(r.LastMessage) > 0 {
		var preview models.MessagePreview
		if err := json.Unmarshal(r.LastMessage, &preview); err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to decode last message", err)
		}
		conv.LastMessage = &preview
	}
	return conv, nil
}

// CreateConversation inserts the conversation under its pair key. ON CONFLICT
// DO NOTHING keeps the first writer's record; the follow-up select returns
// the canonical id to every caller.
func (p *Store) CreateConversation(ctx context.Context, conv *models.Conversation) (string, error) {
	id := models.PairKey(conv.Participants[0], conv.Participants[1])

	details, err := json.Marshal(conv.ParticipantDetails)
	if err != nil {
		return "", utils.NewAppError(utils.ErrDatabase, "failed to encode participant details", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		INSERT INTO conversations (id, participant_a, participant_b, participant_details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
	`, id, conv.Participants[0], conv.Participants[1], details)
	if err != nil {
		return "", utils.NewAppError(utils.ErrDatabase, "failed to create conversation", err)
	}

	return id, nil
}

// GetConversation fetches a conversation by id.
func (p *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var row conversationRow
	err := p.DB.GetContext(ctx, &row, `SELECT * FROM conversations WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewConversationNotFoundError(id)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query conversation", err)
	}
	return row.toModel()
}

// FindByParticipant fetches all conversations containing the user, most
// recently updated first.
func (p *Store) FindByParticipant(ctx context.Context, userID string) ([]models.Conversation, error) {
	var rows []conversationRow
	err := p.DB.SelectContext(ctx, &rows, `
		SELECT * FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user conversations", err)
	}

	var conversations []models.Conversation
	for i := range rows {
		conv, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conv)
	}
	return conversations, nil
}

// UpdateLastMessage replaces the denormalized preview and bumps updated_at.
func (p *Store) UpdateLastMessage(ctx context.Context, conversationID string, preview *models.MessagePreview, at time.Time) error {
	payload, err := json.Marshal(preview)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to encode last message", err)
	}

	result, err := p.DB.ExecContext(ctx, `
		UPDATE conversations SET last_message = $1, updated_at = $2 WHERE id = $3
	`, payload, at, conversationID)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update conversation preview", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewConversationNotFoundError(conversationID)
	}
	return nil
}

// SaveMessage appends a message row.
func (p *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, sender_name, content, type, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.SenderName, msg.Content, string(msg.Type), msg.Timestamp, msg.CreatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save message", err)
	}
	return nil
}

type messageRow struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	SenderName     string    `db:"sender_name"`
	Content        string    `db:"content"`
	Type           string    `db:"type"`
	Timestamp      int64     `db:"timestamp"`
	CreatedAt      time.Time `db:"created_at"`
}

// GetConversationMessages fetches the feed ordered by the client timestamp,
// write time breaking ties.
func (p *Store) GetConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var rows []messageRow
	err := p.DB.SelectContext(ctx, &rows, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY timestamp ASC, created_at ASC
	`, conversationID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query conversation messages", err)
	}

	var messages []models.Message
	for _, row := range rows {
		messages = append(messages, models.Message{
			ID:             row.ID,
			ConversationID: row.ConversationID,
			SenderID:       row.SenderID,
			SenderName:     row.SenderName,
			Content:        row.Content,
			Type:           models.MessageType(row.Type),
			Timestamp:      row.Timestamp,
			CreatedAt:      row.CreatedAt,
		})
	}
	return messages, nil
}

// SaveUser inserts or updates a user.
func (p *Store) SaveUser(ctx context.Context, user *models.User) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO users (id, name, email, avatar, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, avatar = EXCLUDED.avatar, role = EXCLUDED.role,
		    password_hash = EXCLUDED.password_hash
	`, user.ID, user.Name, user.Email, user.Avatar, user.Role, user.HashedPassword, user.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return utils.NewAppError(utils.ErrUserAlreadyExists, "User already exists: "+user.Email, err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to save user", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (p *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewUserNotFoundError(id)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by id", err)
	}
	return &user, nil
}

// GetUserByEmail fetches a user by email address.
func (p *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewUserNotFoundError(email)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by email", err)
	}
	return &user, nil
}
