package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	sdkerrors "cosmossdk.io/errors"

	"github.com/voxdeploy/voxdeploy/internal/database"
	"github.com/voxdeploy/voxdeploy/internal/market"
	"github.com/voxdeploy/voxdeploy/internal/metrics"
	"github.com/voxdeploy/voxdeploy/pkg/logger"
)

// Deployment lifecycle states. A deployment moves pending → active →
// closed; error and unknown are reconciliation side-branches.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusClosed  = "closed"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

// Store is the durable deployment record storage the manager writes through.
type Store interface {
	InsertDeployment(ctx context.Context, d *database.Deployment) error
	GetDeployment(ctx context.Context, deploymentID string) (*database.Deployment, error)
	UpdateDeploymentStatus(ctx context.Context, deploymentID, status string) error
	ListDeployments(ctx context.Context, walletAddress string, limit, offset int) ([]database.Deployment, error)
	CountDeployments(ctx context.Context, walletAddress string) (int, error)
}

// Manager orchestrates deployments against the external marketplace and
// keeps the local store consistent with it.
type Manager struct {
	store  Store
	market market.Client
	denom  string
	price  int64
	log    *logger.Logger

	// per-deployment write serialization
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a lifecycle manager
func NewManager(store Store, client market.Client, denom string, price int64, log *logger.Logger) *Manager {
	return &Manager{
		store:  store,
		market: client,
		denom:  denom,
		price:  price,
		log:    log,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockFor returns the write lock for one deployment id. Operations on
// different ids stay independent.
func (m *Manager) lockFor(deploymentID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[deploymentID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[deploymentID] = l
	}
	return l
}

// Create builds a manifest from the spec, submits it to the marketplace
// signed by the operating wallet, and persists a pending record. No
// record is ever created on submission failure. If the submission
// succeeds but the local write fails, the deployment exists remotely but
// not locally; that divergence is logged as a reconciliation gap and the
// error still surfaces.
func (m *Manager) Create(ctx context.Context, walletAddress string, spec market.Spec) (string, error) {
	manifest, err := market.NewManifest(spec, m.denom, m.price)
	if err != nil {
		return "", sdkerrors.Wrap(ErrValidation, err.Error())
	}

	start := time.Now()
	result, err := m.market.CreateDeployment(ctx, manifest)
	if err != nil {
		metrics.RecordMarketplaceTx("create", "failure", time.Since(start))
		m.log.Error("Deployment submission failed", "wallet", walletAddress, "error", err)
		return "", sdkerrors.Wrap(ErrTransport, err.Error())
	}
	metrics.RecordMarketplaceTx("create", "success", time.Since(start))

	record := &database.Deployment{
		DeploymentID:  result.DSeq,
		TxHash:        result.TxHash,
		WalletAddress: walletAddress,
		Status:        StatusPending,
		Image:         spec.Image,
		CPU:           spec.CPU,
		Memory:        spec.Memory,
		Storage:       spec.Storage,
		Ports:         spec.Ports,
	}
	if err := m.store.InsertDeployment(ctx, record); err != nil {
		// The marketplace holds a live deployment this store does not
		// know about. The remote stays the source of truth; a later
		// status query with the known dseq can still reach it.
		metrics.ReconciliationGaps.Inc()
		m.log.Error("Reconciliation gap: deployment created remotely but local persist failed",
			"dseq", result.DSeq, "tx_hash", result.TxHash, "wallet", walletAddress, "error", err)
		return "", sdkerrors.Wrap(ErrPersistence, err.Error())
	}

	m.log.Info("Deployment created", "dseq", result.DSeq, "tx_hash", result.TxHash, "wallet", walletAddress)
	return result.DSeq, nil
}

// mapRemoteState maps a marketplace state onto the local status enum.
// Anything outside the known lifecycle is unknown.
func mapRemoteState(state string) string {
	switch state {
	case StatusPending, StatusActive, StatusClosed:
		return state
	default:
		return StatusUnknown
	}
}

// Status reconciles the stored status with the marketplace and returns
// it. When the marketplace cannot be reached the last known local status
// is returned instead of an error.
func (m *Manager) Status(ctx context.Context, deploymentID string) (string, error) {
	l := m.lockFor(deploymentID)
	l.Lock()
	defer l.Unlock()

	record, err := m.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", sdkerrors.Wrap(ErrPersistence, err.Error())
	}

	start := time.Now()
	state, err := m.market.DeploymentState(ctx, record.WalletAddress, deploymentID)
	if err != nil {
		metrics.RecordMarketplaceTx("status", "failure", time.Since(start))
		m.log.Warn("Status query failed, falling back to stored status",
			"dseq", deploymentID, "stored_status", record.Status, "error", err)
		return record.Status, nil
	}
	metrics.RecordMarketplaceTx("status", "success", time.Since(start))

	status := mapRemoteState(state)
	if status != record.Status {
		m.log.Info("Deployment status changed", "dseq", deploymentID, "from", record.Status, "to", status)
	}
	if err := m.store.UpdateDeploymentStatus(ctx, deploymentID, status); err != nil {
		return "", sdkerrors.Wrap(ErrPersistence, err.Error())
	}
	return status, nil
}

// Terminate submits a close transaction for a deployment. It reports
// false for an unknown id and on any failure; local state only moves to
// closed after the marketplace confirms the close. Already-closed
// deployments still issue the close transaction: the marketplace is the
// authority on whether a second close is a no-op.
func (m *Manager) Terminate(ctx context.Context, deploymentID string) bool {
	l := m.lockFor(deploymentID)
	l.Lock()
	defer l.Unlock()

	record, err := m.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			m.log.Error("Terminate lookup failed", "dseq", deploymentID, "error", err)
		}
		return false
	}

	start := time.Now()
	result, err := m.market.CloseDeployment(ctx, record.WalletAddress, deploymentID)
	if err != nil {
		metrics.RecordMarketplaceTx("close", "failure", time.Since(start))
		m.log.Error("Close transaction failed", "dseq", deploymentID, "error", err)
		return false
	}
	metrics.RecordMarketplaceTx("close", "success", time.Since(start))

	if err := m.store.UpdateDeploymentStatus(ctx, deploymentID, StatusClosed); err != nil {
		metrics.ReconciliationGaps.Inc()
		m.log.Error("Reconciliation gap: deployment closed remotely but local persist failed",
			"dseq", deploymentID, "tx_hash", result.TxHash, "error", err)
		return false
	}

	m.log.Info("Deployment terminated", "dseq", deploymentID, "tx_hash", result.TxHash)
	return true
}

// Page is one page of a wallet's deployment listing.
type Page struct {
	Deployments []database.Deployment `json:"deployments"`
	Total       int                   `json:"total"`
	Page        int                   `json:"page"`
	PerPage     int                   `json:"per_page"`
	TotalPages  int                   `json:"total_pages"`
}

// List returns one page of a wallet's deployments, newest first. It is a
// pure local read; no marketplace call is made. Page bounds are clamped
// at this boundary.
func (m *Manager) List(ctx context.Context, walletAddress string, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	total, err := m.store.CountDeployments(ctx, walletAddress)
	if err != nil {
		return nil, sdkerrors.Wrap(ErrPersistence, err.Error())
	}

	deployments, err := m.store.ListDeployments(ctx, walletAddress, perPage, (page-1)*perPage)
	if err != nil {
		return nil, sdkerrors.Wrap(ErrPersistence, err.Error())
	}
	if deployments == nil {
		deployments = []database.Deployment{}
	}

	return &Page{
		Deployments: deployments,
		Total:       total,
		Page:        page,
		PerPage:     perPage,
		TotalPages:  (total + perPage - 1) / perPage,
	}, nil
}
