package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
)

type robotHandlers struct {
	repo   repositories.RobotRepository
	logger *zap.Logger
}

func (h *robotHandlers) create(c echo.Context) error {
	var req CreateRobotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.Code == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "code is required"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
	}

	robot := &entities.Robot{
		Code:               req.Code,
		Name:               req.Name,
		Status:             entities.RobotStatusActive,
		OwnerID:            ownerID(c),
		SystemInstructions: req.systemInstructions(),
	}
	if err := h.repo.Create(c.Request().Context(), robot); err != nil {
		if errors.Is(err, domain.ErrRobotExists) {
			return c.JSON(http.StatusConflict, ErrorResponse{Error: "a robot with this code already exists"})
		}
		h.logger.Error("Failed to create robot", zap.String("code", req.Code), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	h.logger.Info("Robot registered",
		zap.String("id", robot.ID),
		zap.String("code", robot.Code),
		zap.String("ownerID", robot.OwnerID))
	return c.JSON(http.StatusCreated, CreateRobotResponse{Message: "robot created", ID: robot.ID})
}

func (h *robotHandlers) list(c echo.Context) error {
	robots, err := h.repo.ListByOwner(c.Request().Context(), ownerID(c))
	if err != nil {
		h.logger.Error("Failed to list robots", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(http.StatusOK, robots)
}

func (h *robotHandlers) delete(c echo.Context) error {
	err := h.repo.Delete(c.Request().Context(), c.Param("id"), ownerID(c))
	if err != nil {
		if errors.Is(err, domain.ErrRobotNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "robot not found"})
		}
		h.logger.Error("Failed to delete robot", zap.String("id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "robot deleted"})
}
