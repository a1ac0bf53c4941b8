package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
)

// robotDocument is the stored shape of a robot
type robotDocument struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Code               string             `bson:"code"`
	Name               string             `bson:"name"`
	Status             string             `bson:"status"`
	OwnerID            string             `bson:"owner_id"`
	SystemInstructions string             `bson:"system_instructions"`
	CreatedAt          time.Time          `bson:"created_at"`
}

func (d robotDocument) toEntity() *entities.Robot {
	return &entities.Robot{
		ID:                 d.ID.Hex(),
		Code:               d.Code,
		Name:               d.Name,
		Status:             d.Status,
		OwnerID:            d.OwnerID,
		SystemInstructions: d.SystemInstructions,
		CreatedAt:          d.CreatedAt,
	}
}

// RobotRepository implements RobotRepository using MongoDB
type RobotRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ repositories.RobotRepository = (*RobotRepository)(nil)

// NewRobotRepository creates the repository and ensures its indexes exist
func NewRobotRepository(ctx context.Context, db *mongo.Database, logger *zap.Logger) (*RobotRepository, error) {
	collection := db.Collection("robots")

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create robot indexes: %w", err)
	}

	return &RobotRepository{collection: collection, logger: logger}, nil
}

// GetSystemInstructions implements repositories.DeviceConfigRepository
func (r *RobotRepository) GetSystemInstructions(ctx context.Context, robotCode string) (string, error) {
	var doc robotDocument
	opts := options.FindOne().SetProjection(bson.M{"system_instructions": 1})
	err := r.collection.FindOne(ctx, bson.M{"code": robotCode}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", domain.ErrDeviceNotFound
		}
		return "", fmt.Errorf("failed to find robot: %w", err)
	}
	return doc.SystemInstructions, nil
}

// Create implements repositories.RobotRepository
func (r *RobotRepository) Create(ctx context.Context, robot *entities.Robot) error {
	if robot == nil {
		return errors.New("robot cannot be nil")
	}
	if robot.Status == "" {
		robot.Status = entities.RobotStatusActive
	}
	if robot.CreatedAt.IsZero() {
		robot.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, robotDocument{
		Code:               robot.Code,
		Name:               robot.Name,
		Status:             robot.Status,
		OwnerID:            robot.OwnerID,
		SystemInstructions: robot.SystemInstructions,
		CreatedAt:          robot.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRobotExists
		}
		return fmt.Errorf("failed to create robot: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		robot.ID = oid.Hex()
	}
	r.logger.Info("Robot created", zap.String("id", robot.ID), zap.String("code", robot.Code))
	return nil
}

// ListByOwner implements repositories.RobotRepository
func (r *RobotRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Robot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list robots: %w", err)
	}
	defer cursor.Close(ctx)

	robots := make([]*entities.Robot, 0)
	for cursor.Next(ctx) {
		var doc robotDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode robot: %w", err)
		}
		robots = append(robots, doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return robots, nil
}

// Delete implements repositories.RobotRepository
func (r *RobotRepository) Delete(ctx context.Context, id, ownerID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrRobotNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete robot: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrRobotNotFound
	}
	return nil
}
