package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
)

// RobotRepository keeps robots in process memory. It suits local development
// and single-instance deployments where robots are registered at startup.
type RobotRepository struct {
	mu     sync.RWMutex
	robots map[string]*entities.Robot // id -> robot
	codes  map[string]*entities.Robot // code -> robot
}

var _ repositories.RobotRepository = (*RobotRepository)(nil)

// NewRobotRepository creates a repository pre-populated with robots
func NewRobotRepository(robots ...*entities.Robot) (*RobotRepository, error) {
	m := &RobotRepository{
		robots: make(map[string]*entities.Robot),
		codes:  make(map[string]*entities.Robot),
	}
	for _, robot := range robots {
		if err := m.Create(context.Background(), robot); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// GetSystemInstructions implements repositories.DeviceConfigRepository
func (m *RobotRepository) GetSystemInstructions(ctx context.Context, robotCode string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	robot, ok := m.codes[robotCode]
	if !ok {
		return "", domain.ErrDeviceNotFound
	}
	return robot.SystemInstructions, nil
}

// Create implements repositories.RobotRepository
func (m *RobotRepository) Create(ctx context.Context, robot *entities.Robot) error {
	if robot == nil {
		return errors.New("robot cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.codes[robot.Code]; exists {
		return domain.ErrRobotExists
	}
	if robot.ID == "" {
		robot.ID = uuid.New().String()
	}
	if robot.Status == "" {
		robot.Status = entities.RobotStatusActive
	}
	if robot.CreatedAt.IsZero() {
		robot.CreatedAt = time.Now().UTC()
	}

	stored := *robot
	m.robots[stored.ID] = &stored
	m.codes[stored.Code] = &stored
	return nil
}

// ListByOwner implements repositories.RobotRepository, newest first
func (m *RobotRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Robot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	robots := make([]*entities.Robot, 0)
	for _, robot := range m.robots {
		if robot.OwnerID == ownerID {
			copied := *robot
			robots = append(robots, &copied)
		}
	}
	sort.Slice(robots, func(i, j int) bool {
		return robots[i].CreatedAt.After(robots[j].CreatedAt)
	})
	return robots, nil
}

// Delete implements repositories.RobotRepository
func (m *RobotRepository) Delete(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	robot, ok := m.robots[id]
	if !ok || robot.OwnerID != ownerID {
		return domain.ErrRobotNotFound
	}
	delete(m.robots, id)
	delete(m.codes, robot.Code)
	return nil
}
