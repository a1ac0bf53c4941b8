package repositories

import (
	"context"

	"github.com/satriahrh/robozinho/domain/entities"
)

// DeviceConfigRepository resolves the system instructions a device speaks with
type DeviceConfigRepository interface {
	// GetSystemInstructions returns domain.ErrDeviceNotFound when the code is unknown
	GetSystemInstructions(ctx context.Context, robotCode string) (string, error)
}

// RobotRepository defines data access methods for robots
type RobotRepository interface {
	DeviceConfigRepository
	// Create stores the robot and its initial parameters, filling ID and CreatedAt.
	// Returns domain.ErrRobotExists when the code is taken.
	Create(ctx context.Context, robot *entities.Robot) error
	ListByOwner(ctx context.Context, ownerID string) ([]*entities.Robot, error)
	// Delete returns domain.ErrRobotNotFound unless the robot exists and belongs to ownerID
	Delete(ctx context.Context, id, ownerID string) error
}
