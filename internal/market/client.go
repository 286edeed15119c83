package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/voxdeploy/voxdeploy/pkg/logger"
)

// Client is the marketplace interface consumed by the lifecycle manager.
type Client interface {
	// CreateDeployment submits a deployment transaction and returns the
	// assigned sequence id and transaction hash.
	CreateDeployment(ctx context.Context, manifest *Manifest) (*TxResult, error)
	// DeploymentState returns the live state of a deployment owned by
	// the operating wallet.
	DeploymentState(ctx context.Context, owner, dseq string) (string, error)
	// CloseDeployment submits a close transaction for a deployment.
	CloseDeployment(ctx context.Context, owner, dseq string) (*TxResult, error)
}

// TxResult is a parsed, validated marketplace transaction result.
type TxResult struct {
	TxHash string
	DSeq   string
	Code   int
	RawLog string
}

// CLIConfig configures the marketplace CLI client.
type CLIConfig struct {
	Binary         string
	KeyName        string
	KeyringBackend string
	ChainID        string
	NodeRPC        string
	NodeREST       string
	TxTimeout      time.Duration
	QueryTimeout   time.Duration
}

// CLIClient submits transactions through the marketplace CLI and reads
// live state through the node REST endpoint.
type CLIClient struct {
	cfg    CLIConfig
	client *http.Client
	log    *logger.Logger
	run    func(ctx context.Context, name string, args []string) ([]byte, error)
}

// NewCLIClient creates a marketplace client from CLI configuration
func NewCLIClient(cfg CLIConfig, log *logger.Logger) *CLIClient {
	return &CLIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.QueryTimeout},
		log:    log,
		run:    runCommand,
	}
}

func runCommand(ctx context.Context, name string, args []string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s failed: %w, stderr: %s", name, err, string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// txResponse is the JSON transaction result emitted by the CLI, reduced
// to the fields this service validates.
type txResponse struct {
	TxHash string  `json:"txhash"`
	Code   int     `json:"code"`
	RawLog string  `json:"raw_log"`
	Logs   []txLog `json:"logs"`
}

type txLog struct {
	Events []txEvent `json:"events"`
}

type txEvent struct {
	Type       string        `json:"type"`
	Attributes []txAttribute `json:"attributes"`
}

type txAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// parseTxResponse decodes and validates a CLI transaction result.
// A missing txhash or a non-zero code is a failed transaction.
func parseTxResponse(data []byte) (*txResponse, error) {
	var resp txResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("transaction failed with code %d: %s", resp.Code, resp.RawLog)
	}
	if resp.TxHash == "" {
		return nil, fmt.Errorf("transaction response missing txhash")
	}
	return &resp, nil
}

// deploymentSeq extracts the assigned sequence id from transaction events.
// The event layout varies between chain versions, so every attribute is
// scanned for the dseq key instead of trusting a fixed path.
func deploymentSeq(resp *txResponse) (string, error) {
	for _, l := range resp.Logs {
		for _, e := range l.Events {
			for _, a := range e.Attributes {
				if a.Key == "dseq" && a.Value != "" {
					return a.Value, nil
				}
			}
		}
	}
	return "", fmt.Errorf("transaction %s contains no dseq attribute", resp.TxHash)
}

// CreateDeployment writes the manifest to a temporary file and submits it
// with the CLI under a bounded deadline.
func (c *CLIClient) CreateDeployment(ctx context.Context, manifest *Manifest) (*TxResult, error) {
	data, err := manifest.Marshal()
	if err != nil {
		return nil, err
	}

	file, err := os.CreateTemp("", "sdl-*.yml")
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest file: %w", err)
	}
	defer os.Remove(file.Name())

	if _, err := file.Write(data); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write manifest file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close manifest file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
	defer cancel()

	args := []string{
		"tx", "deployment", "create", file.Name(),
		"--from", c.cfg.KeyName,
		"--chain-id", c.cfg.ChainID,
		"--node", c.cfg.NodeRPC,
		"--keyring-backend", c.cfg.KeyringBackend,
		"--gas", "auto",
		"--yes",
		"--output", "json",
	}

	c.log.Debug("Submitting deployment transaction", "binary", c.cfg.Binary)
	out, err := c.run(ctx, c.cfg.Binary, args)
	if err != nil {
		return nil, err
	}

	resp, err := parseTxResponse(out)
	if err != nil {
		return nil, err
	}

	dseq, err := deploymentSeq(resp)
	if err != nil {
		return nil, err
	}

	return &TxResult{TxHash: resp.TxHash, DSeq: dseq, Code: resp.Code, RawLog: resp.RawLog}, nil
}

// deploymentInfoResponse is the REST deployment query response, reduced
// to the state field.
type deploymentInfoResponse struct {
	Deployment struct {
		State string `json:"state"`
	} `json:"deployment"`
}

// DeploymentState queries the node REST endpoint for live deployment state
func (c *CLIClient) DeploymentState(ctx context.Context, owner, dseq string) (string, error) {
	endpoint := fmt.Sprintf("%s/akash/deployment/v1beta3/deployments/info?id.owner=%s&id.dseq=%s",
		c.cfg.NodeREST, url.QueryEscape(owner), url.QueryEscape(dseq))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build deployment query: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query deployment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to query deployment: status %d, body: %s", resp.StatusCode, string(body))
	}

	var info deploymentInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode deployment response: %w", err)
	}
	if info.Deployment.State == "" {
		return "", fmt.Errorf("deployment response missing state")
	}

	return strings.ToLower(info.Deployment.State), nil
}

// CloseDeployment submits a close transaction for the given deployment
func (c *CLIClient) CloseDeployment(ctx context.Context, owner, dseq string) (*TxResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
	defer cancel()

	args := []string{
		"tx", "deployment", "close",
		"--owner", owner,
		"--dseq", dseq,
		"--from", c.cfg.KeyName,
		"--chain-id", c.cfg.ChainID,
		"--node", c.cfg.NodeRPC,
		"--keyring-backend", c.cfg.KeyringBackend,
		"--gas", "auto",
		"--yes",
		"--output", "json",
	}

	c.log.Debug("Submitting close transaction", "dseq", dseq)
	out, err := c.run(ctx, c.cfg.Binary, args)
	if err != nil {
		return nil, err
	}

	resp, err := parseTxResponse(out)
	if err != nil {
		return nil, err
	}

	return &TxResult{TxHash: resp.TxHash, DSeq: dseq, Code: resp.Code, RawLog: resp.RawLog}, nil
}
