package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
)

const uniqueViolation = "23505"

// RobotRepository stores robots in the robo table and their persona in
// parametros_iniciais, one row per robot.
type RobotRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ repositories.RobotRepository = (*RobotRepository)(nil)

// NewRobotRepository creates a new Postgres robot repository
func NewRobotRepository(pool *pgxpool.Pool, logger *zap.Logger) *RobotRepository {
	return &RobotRepository{pool: pool, logger: logger}
}

// GetSystemInstructions implements repositories.DeviceConfigRepository
func (r *RobotRepository) GetSystemInstructions(ctx context.Context, robotCode string) (string, error) {
	var instructions string
	err := r.pool.QueryRow(ctx, `
		SELECT pi.preferencias_iniciais
		FROM robo r
		INNER JOIN parametros_iniciais pi ON r.id = pi.id_robo
		WHERE r.codigo = $1`, robotCode).Scan(&instructions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrDeviceNotFound
		}
		return "", fmt.Errorf("failed to query robot configuration: %w", err)
	}
	return instructions, nil
}

// Create inserts the robot and its initial parameters in one transaction
func (r *RobotRepository) Create(ctx context.Context, robot *entities.Robot) error {
	if robot == nil {
		return errors.New("robot cannot be nil")
	}
	if robot.Status == "" {
		robot.Status = entities.RobotStatusActive
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		id        int64
		createdAt time.Time
	)
	err = tx.QueryRow(ctx, `
		INSERT INTO robo (codigo, nome, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, robot.Code, robot.Name, robot.Status).Scan(&id, &createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrRobotExists
		}
		return fmt.Errorf("failed to insert robot: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO parametros_iniciais (id_usuario_cognito, preferencias_iniciais, id_robo)
		VALUES ($1, $2, $3)`, robot.OwnerID, robot.SystemInstructions, id); err != nil {
		return fmt.Errorf("failed to insert robot parameters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit robot: %w", err)
	}

	robot.ID = strconv.FormatInt(id, 10)
	robot.CreatedAt = createdAt
	r.logger.Info("Robot created", zap.String("id", robot.ID), zap.String("code", robot.Code))
	return nil
}

// ListByOwner implements repositories.RobotRepository
func (r *RobotRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Robot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.codigo, r.nome, r.status, r.created_at, pi.id_usuario_cognito, pi.preferencias_iniciais
		FROM robo r
		INNER JOIN parametros_iniciais pi ON r.id = pi.id_robo
		WHERE pi.id_usuario_cognito = $1
		ORDER BY r.created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list robots: %w", err)
	}

	robots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.Robot, error) {
		var (
			id    int64
			robot entities.Robot
		)
		err := row.Scan(&id, &robot.Code, &robot.Name, &robot.Status, &robot.CreatedAt, &robot.OwnerID, &robot.SystemInstructions)
		robot.ID = strconv.FormatInt(id, 10)
		return &robot, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan robots: %w", err)
	}
	return robots, nil
}

// Delete removes the robot when ownerID owns it; parameters cascade.
func (r *RobotRepository) Delete(ctx context.Context, id, ownerID string) error {
	robotID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return domain.ErrRobotNotFound
	}

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM robo
		WHERE id = $1
		AND id IN (SELECT id_robo FROM parametros_iniciais WHERE id_usuario_cognito = $2)`, robotID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete robot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRobotNotFound
	}
	return nil
}
