package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdeploy/voxdeploy/pkg/logger"
)

const createTxJSON = `{
	"txhash": "ABC123",
	"code": 0,
	"raw_log": "",
	"logs": [{
		"events": [
			{"type": "message", "attributes": [{"key": "action", "value": "create-deployment"}]},
			{"type": "akash.v1", "attributes": [
				{"key": "owner", "value": "akash1operator"},
				{"key": "dseq", "value": "42"}
			]}
		]
	}]
}`

func newTestClient(t *testing.T, run func(ctx context.Context, name string, args []string) ([]byte, error)) *CLIClient {
	t.Helper()
	c := NewCLIClient(CLIConfig{
		Binary:         "provider-services",
		KeyName:        "operator",
		KeyringBackend: "test",
		ChainID:        "sandbox-01",
		NodeRPC:        "http://localhost:26657",
		NodeREST:       "http://localhost:1317",
		TxTimeout:      5 * time.Second,
		QueryTimeout:   5 * time.Second,
	}, logger.New("market-test"))
	if run != nil {
		c.run = run
	}
	return c
}

func TestParseTxResponse(t *testing.T) {
	resp, err := parseTxResponse([]byte(createTxJSON))
	require.NoError(t, err)
	assert.Equal(t, "ABC123", resp.TxHash)
	assert.Equal(t, 0, resp.Code)
}

func TestParseTxResponseFailures(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "gas estimate: 150000"},
		{name: "non-zero code", data: `{"txhash":"ABC","code":5,"raw_log":"out of gas"}`},
		{name: "missing txhash", data: `{"code":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTxResponse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDeploymentSeq(t *testing.T) {
	resp, err := parseTxResponse([]byte(createTxJSON))
	require.NoError(t, err)

	dseq, err := deploymentSeq(resp)
	require.NoError(t, err)
	assert.Equal(t, "42", dseq)
}

func TestDeploymentSeqMissing(t *testing.T) {
	resp, err := parseTxResponse([]byte(`{"txhash":"ABC","code":0,"logs":[{"events":[]}]}`))
	require.NoError(t, err)

	_, err = deploymentSeq(resp)
	assert.Error(t, err)
}

func TestCreateDeployment(t *testing.T) {
	var gotArgs []string
	client := newTestClient(t, func(_ context.Context, name string, args []string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(createTxJSON), nil
	})

	manifest, err := NewManifest(Spec{
		Image: "nginx", CPU: 0.1, Memory: "512Mi", Storage: "512Mi", Ports: []string{"80"},
	}, "uakt", 1000)
	require.NoError(t, err)

	result, err := client.CreateDeployment(context.Background(), manifest)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", result.TxHash)
	assert.Equal(t, "42", result.DSeq)

	assert.Equal(t, "provider-services", gotArgs[0])
	assert.Contains(t, gotArgs, "deployment")
	assert.Contains(t, gotArgs, "create")
	assert.Contains(t, gotArgs, "--chain-id")
	assert.Contains(t, gotArgs, "sandbox-01")
	assert.Contains(t, gotArgs, "--yes")
}

func TestCreateDeploymentTxFailure(t *testing.T) {
	client := newTestClient(t, func(_ context.Context, _ string, _ []string) ([]byte, error) {
		return []byte(`{"txhash":"ABC","code":11,"raw_log":"out of gas"}`), nil
	})

	manifest, err := NewManifest(Spec{
		Image: "nginx", CPU: 0.1, Memory: "512Mi", Storage: "512Mi", Ports: []string{"80"},
	}, "uakt", 1000)
	require.NoError(t, err)

	_, err = client.CreateDeployment(context.Background(), manifest)
	assert.ErrorContains(t, err, "out of gas")
}

func TestCreateDeploymentExecFailure(t *testing.T) {
	client := newTestClient(t, func(_ context.Context, _ string, _ []string) ([]byte, error) {
		return nil, errors.New("binary not found")
	})

	manifest, err := NewManifest(Spec{
		Image: "nginx", CPU: 0.1, Memory: "512Mi", Storage: "512Mi", Ports: []string{"80"},
	}, "uakt", 1000)
	require.NoError(t, err)

	_, err = client.CreateDeployment(context.Background(), manifest)
	assert.Error(t, err)
}

func TestCloseDeployment(t *testing.T) {
	client := newTestClient(t, func(_ context.Context, _ string, args []string) ([]byte, error) {
		assert.Contains(t, args, "close")
		assert.Contains(t, args, "--dseq")
		assert.Contains(t, args, "42")
		return []byte(`{"txhash":"DEF456","code":0,"raw_log":""}`), nil
	})

	result, err := client.CloseDeployment(context.Background(), "akash1operator", "42")
	require.NoError(t, err)
	assert.Equal(t, "DEF456", result.TxHash)
	assert.Equal(t, 0, result.Code)
}

func TestDeploymentState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "akash1operator", r.URL.Query().Get("id.owner"))
		assert.Equal(t, "42", r.URL.Query().Get("id.dseq"))
		w.Write([]byte(`{"deployment": {"state": "ACTIVE"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, nil)
	client.cfg.NodeREST = srv.URL

	state, err := client.DeploymentState(context.Background(), "akash1operator", "42")
	require.NoError(t, err)
	assert.Equal(t, "active", state)
}

func TestDeploymentStateErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer srv.Close()

		client := newTestClient(t, nil)
		client.cfg.NodeREST = srv.URL

		_, err := client.DeploymentState(context.Background(), "akash1operator", "42")
		assert.Error(t, err)
	})

	t.Run("missing state field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"deployment": {}}`))
		}))
		defer srv.Close()

		client := newTestClient(t, nil)
		client.cfg.NodeREST = srv.URL

		_, err := client.DeploymentState(context.Background(), "akash1operator", "42")
		assert.Error(t, err)
	})

	t.Run("unreachable node", func(t *testing.T) {
		client := newTestClient(t, nil)
		client.cfg.NodeREST = "http://127.0.0.1:1"

		_, err := client.DeploymentState(context.Background(), "akash1operator", "42")
		assert.Error(t, err)
	})
}
