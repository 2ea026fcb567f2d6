package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/recipebook/internal/client/models"
	"github.com/dmitrijs2005/recipebook/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/recipebook/internal/dbx"
)

const (
	keyUser  = "user"
	keyToken = "token"
)

// Persistence keeps the session across restarts. The user and the token are
// always written and cleared together.
type Persistence interface {
	// Load returns the stored session. A missing or unreadable user yields a
	// nil user; a missing token yields "".
	Load(ctx context.Context) (*models.User, string, error)
	Save(ctx context.Context, user models.User, token string) error
	Clear(ctx context.Context) error
}

// SQLitePersistence stores the session in the metadata table.
type SQLitePersistence struct {
	db *sql.DB
}

func NewSQLitePersistence(db *sql.DB) *SQLitePersistence {
	return &SQLitePersistence{db: db}
}

func (p *SQLitePersistence) Load(ctx context.Context) (*models.User, string, error) {
	repo := metadata.NewSQLiteRepository(p.db)

	token, err := repo.Get(ctx, keyToken)
	if err != nil {
		return nil, "", fmt.Errorf("load token: %w", err)
	}
	raw, err := repo.Get(ctx, keyUser)
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}

	var user *models.User
	if raw != nil {
		var u models.User
		if json.Unmarshal(raw, &u) == nil {
			user = &u
		}
	}
	return user, string(token), nil
}

func (p *SQLitePersistence) Save(ctx context.Context, user models.User, token string) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyUser, raw); err != nil {
			return err
		}
		return repo.Set(ctx, keyToken, []byte(token))
	})
}

func (p *SQLitePersistence) Clear(ctx context.Context) error {
	return metadata.NewSQLiteRepository(p.db).Delete(ctx, keyUser, keyToken)
}
