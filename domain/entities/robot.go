package entities

import "time"

// RobotStatusActive is the status given to newly registered robots
const RobotStatusActive = "ATIVO"

// Robot is a registered device and the persona it speaks with
type Robot struct {
	ID                 string    `json:"id" bson:"-"`
	Code               string    `json:"code" bson:"code"`
	Name               string    `json:"name" bson:"name"`
	Status             string    `json:"status" bson:"status"`
	OwnerID            string    `json:"owner_id" bson:"owner_id"`
	SystemInstructions string    `json:"system_instructions" bson:"system_instructions"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
}
