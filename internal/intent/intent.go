// Package intent maps structured commands onto lifecycle operations.
// The structured command is produced by the language front-end; this
// package never inspects raw text.
package intent

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxdeploy/voxdeploy/internal/lifecycle"
	"github.com/voxdeploy/voxdeploy/internal/market"
	"github.com/voxdeploy/voxdeploy/pkg/logger"
)

// Actions and targets recognized by the router.
const (
	ActionDeploy    = "deploy"
	ActionStatus    = "status"
	ActionTerminate = "terminate"

	TargetDeployment = "deployment"
)

// Command is a structured intent extracted from a caller request.
type Command struct {
	Action  string   `json:"action"`
	Target  string   `json:"target"`
	ID      string   `json:"id"`
	Image   string   `json:"image"`
	CPU     float64  `json:"cpu"`
	Memory  string   `json:"memory"`
	Storage string   `json:"storage"`
	Ports   []string `json:"ports"`
}

// Lifecycle is the subset of deployment operations the router dispatches to.
type Lifecycle interface {
	Create(ctx context.Context, walletAddress string, spec market.Spec) (string, error)
	Status(ctx context.Context, deploymentID string) (string, error)
	Terminate(ctx context.Context, deploymentID string) bool
}

// Router dispatches commands to lifecycle operations. It holds no state.
type Router struct {
	lifecycle Lifecycle
	log       *logger.Logger
}

// NewRouter creates an intent router
func NewRouter(lc Lifecycle, log *logger.Logger) *Router {
	return &Router{lifecycle: lc, log: log}
}

// Route executes the command on behalf of a wallet and returns a
// user-facing result line.
func (r *Router) Route(ctx context.Context, cmd Command, walletAddress string) string {
	if cmd.Target != TargetDeployment {
		return "Command not recognized"
	}

	switch cmd.Action {
	case ActionDeploy:
		dseq, err := r.lifecycle.Create(ctx, walletAddress, market.Spec{
			Image:   cmd.Image,
			CPU:     cmd.CPU,
			Memory:  cmd.Memory,
			Storage: cmd.Storage,
			Ports:   cmd.Ports,
		})
		if err != nil {
			r.log.Error("Deploy command failed", "wallet", walletAddress, "error", err)
			if errors.Is(err, lifecycle.ErrValidation) {
				return "Deployment request invalid"
			}
			return "Deployment failed"
		}
		return fmt.Sprintf("Deployed %s with ID: %s", cmd.Image, dseq)

	case ActionStatus:
		if cmd.ID == "" {
			return "Please provide deployment ID"
		}
		status, err := r.lifecycle.Status(ctx, cmd.ID)
		if err != nil {
			if errors.Is(err, lifecycle.ErrNotFound) {
				return "Not found"
			}
			r.log.Error("Status command failed", "dseq", cmd.ID, "error", err)
			return "Status check failed"
		}
		return fmt.Sprintf("Status: %s", status)

	case ActionTerminate:
		if cmd.ID == "" {
			return "Please provide deployment ID"
		}
		if r.lifecycle.Terminate(ctx, cmd.ID) {
			return "Deployment terminated"
		}
		return "Termination failed or ID not found"

	default:
		return "Command not recognized"
	}
}
