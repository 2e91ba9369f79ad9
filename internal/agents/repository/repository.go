package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/platform/apperr"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new agent repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

const agentQuery = `
	SELECT a.id, a.name, a.email, a.role, a.team_lead_id, a.is_active,
		COALESCE(array_agg(DISTINCT al.language) FILTER (WHERE al.language IS NOT NULL), '{}'),
		COALESCE(array_agg(DISTINCT at.territory) FILTER (WHERE at.territory IS NOT NULL), '{}')
	FROM agents a
	LEFT JOIN agent_languages al ON al.agent_id = a.id
	LEFT JOIN agent_territories at ON at.agent_id = a.id`

const agentGroupBy = ` GROUP BY a.id, a.name, a.email, a.role, a.team_lead_id, a.is_active`

// List retrieves all agents with their languages and territories.
func (r *Repo) List(ctx context.Context) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, agentQuery+agentGroupBy+` ORDER BY a.name`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	return scanAgents(rows)
}

// ListActive retrieves agents eligible for allocation.
func (r *Repo) ListActive(ctx context.Context) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, agentQuery+` WHERE a.is_active`+agentGroupBy+` ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("list active agents: %w", err)
	}
	defer rows.Close()

	return scanAgents(rows)
}

// GetByID retrieves one agent.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Agent, error) {
	row := r.pool.QueryRow(ctx, agentQuery+` WHERE a.id = $1`+agentGroupBy, id)

	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, apperr.NotFound("agent not found")
		}
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

// SetLanguages replaces the agent's language rows in one transaction.
func (r *Repo) SetLanguages(ctx context.Context, agentID uuid.UUID, languages []string) error {
	return r.replaceAttributeRows(ctx, agentID, "agent_languages", "language", languages)
}

// SetTerritories replaces the agent's territory rows in one transaction.
func (r *Repo) SetTerritories(ctx context.Context, agentID uuid.UUID, territories []string) error {
	return r.replaceAttributeRows(ctx, agentID, "agent_territories", "territory", territories)
}

func (r *Repo) replaceAttributeRows(ctx context.Context, agentID uuid.UUID, table, column string, values []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s update: %w", table, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE agent_id = $1`, agentID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	insert := `INSERT INTO ` + table + ` (agent_id, ` + column + `) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, value := range values {
		if _, err := tx.Exec(ctx, insert, agentID, value); err != nil {
			return fmt.Errorf("insert %s row: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s update: %w", table, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Role, &a.TeamLeadID, &a.IsActive, &a.Languages, &a.Territories)
	if err != nil {
		return Agent{}, err
	}
	return a, nil
}

func scanAgents(rows pgx.Rows) ([]Agent, error) {
	var results []Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		results = append(results, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return results, nil
}
