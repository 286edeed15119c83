package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Deployment is the durable record of a workload created on the marketplace.
// The spec fields are immutable after creation; only status changes.
type Deployment struct {
	DeploymentID  string    `json:"id"`
	TxHash        string    `json:"tx_hash"`
	WalletAddress string    `json:"wallet_address"`
	Status        string    `json:"status"`
	Image         string    `json:"image"`
	CPU           float64   `json:"cpu"`
	Memory        string    `json:"memory"`
	Storage       string    `json:"storage"`
	Ports         []string  `json:"ports"`
	CreatedAt     time.Time `json:"created_at"`
}

// InsertDeployment inserts a new deployment record
func (db *DB) InsertDeployment(ctx context.Context, d *Deployment) error {
	ports, err := json.Marshal(d.Ports)
	if err != nil {
		return fmt.Errorf("failed to encode ports: %w", err)
	}

	err = db.QueryRowContext(ctx, `
		INSERT INTO deployments (deployment_id, tx_hash, wallet_address, status, image, cpu, memory, storage, ports)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, d.DeploymentID, d.TxHash, d.WalletAddress, d.Status, d.Image, d.CPU, d.Memory, d.Storage, string(ports)).
		Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert deployment: %w", err)
	}
	return nil
}

// GetDeployment returns the deployment with the given marketplace id,
// or sql.ErrNoRows when no record exists.
func (db *DB) GetDeployment(ctx context.Context, deploymentID string) (*Deployment, error) {
	var (
		d     Deployment
		ports string
	)
	err := db.QueryRowContext(ctx, `
		SELECT deployment_id, tx_hash, wallet_address, status, image, cpu, memory, storage, ports, created_at
		FROM deployments
		WHERE deployment_id = $1
	`, deploymentID).Scan(&d.DeploymentID, &d.TxHash, &d.WalletAddress, &d.Status,
		&d.Image, &d.CPU, &d.Memory, &d.Storage, &ports, &d.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query deployment: %w", err)
	}

	if err := json.Unmarshal([]byte(ports), &d.Ports); err != nil {
		return nil, fmt.Errorf("failed to decode ports: %w", err)
	}
	return &d, nil
}

// UpdateDeploymentStatus updates the status of a deployment
func (db *DB) UpdateDeploymentStatus(ctx context.Context, deploymentID, status string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE deployments SET status = $2 WHERE deployment_id = $1",
		deploymentID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update deployment status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListDeployments returns one page of a wallet's deployments ordered by
// creation time, newest first.
func (db *DB) ListDeployments(ctx context.Context, walletAddress string, limit, offset int) ([]Deployment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT deployment_id, tx_hash, wallet_address, status, image, cpu, memory, storage, ports, created_at
		FROM deployments
		WHERE wallet_address = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletAddress, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployments: %w", err)
	}
	defer rows.Close()

	var deployments []Deployment
	for rows.Next() {
		var (
			d     Deployment
			ports string
		)
		if err := rows.Scan(&d.DeploymentID, &d.TxHash, &d.WalletAddress, &d.Status,
			&d.Image, &d.CPU, &d.Memory, &d.Storage, &ports, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		if err := json.Unmarshal([]byte(ports), &d.Ports); err != nil {
			return nil, fmt.Errorf("failed to decode ports: %w", err)
		}
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}

// CountDeployments returns the total number of deployments for a wallet
func (db *DB) CountDeployments(ctx context.Context, walletAddress string) (int, error) {
	var total int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM deployments WHERE wallet_address = $1",
		walletAddress,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count deployments: %w", err)
	}
	return total, nil
}
