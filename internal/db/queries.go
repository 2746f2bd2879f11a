package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx runs the queries inside tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

type Drawing struct {
	ID         string
	OwnerID    string
	Name       string
	Content    []byte
	ShapeCount int32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// --- users ---

const createUser = `INSERT INTO users (id, email, password, display_name)
VALUES ($1, $2, $3, $4)
RETURNING id, email, password, display_name, created_at`

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.ID, arg.Email, arg.Password, arg.DisplayName)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `SELECT id, email, password, display_name, created_at
FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const getUserByID = `SELECT id, email, password, display_name, created_at
FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

// --- drawings ---

const drawingColumns = `id, owner_id, name, content, shape_count, created_at, updated_at`

func scanDrawing(row pgx.Row) (Drawing, error) {
	var d Drawing
	err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Content, &d.ShapeCount, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

const createDrawing = `INSERT INTO drawings (id, owner_id, name, content, shape_count)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + drawingColumns

type CreateDrawingParams struct {
	ID         string
	OwnerID    string
	Name       string
	Content    []byte
	ShapeCount int32
}

func (q *Queries) CreateDrawing(ctx context.Context, arg CreateDrawingParams) (Drawing, error) {
	return scanDrawing(q.db.QueryRow(ctx, createDrawing,
		arg.ID, arg.OwnerID, arg.Name, arg.Content, arg.ShapeCount))
}

const getDrawing = `SELECT ` + drawingColumns + ` FROM drawings WHERE id = $1`

func (q *Queries) GetDrawing(ctx context.Context, id string) (Drawing, error) {
	return scanDrawing(q.db.QueryRow(ctx, getDrawing, id))
}

// Content is left empty in list results.
const listDrawingsForOwner = `SELECT id, owner_id, name, ''::bytea, shape_count, created_at, updated_at
FROM drawings WHERE owner_id = $1
ORDER BY updated_at DESC`

func (q *Queries) ListDrawingsForOwner(ctx context.Context, ownerID string) ([]Drawing, error) {
	rows, err := q.db.Query(ctx, listDrawingsForOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Drawing
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const updateDrawingContent = `UPDATE drawings
SET content = $2, shape_count = $3, updated_at = now()
WHERE id = $1
RETURNING ` + drawingColumns

type UpdateDrawingContentParams struct {
	ID         string
	Content    []byte
	ShapeCount int32
}

func (q *Queries) UpdateDrawingContent(ctx context.Context, arg UpdateDrawingContentParams) (Drawing, error) {
	return scanDrawing(q.db.QueryRow(ctx, updateDrawingContent, arg.ID, arg.Content, arg.ShapeCount))
}

const deleteDrawing = `DELETE FROM drawings WHERE id = $1`

func (q *Queries) DeleteDrawing(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteDrawing, id)
	return err
}
