package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdeploy/voxdeploy/internal/lifecycle"
	"github.com/voxdeploy/voxdeploy/internal/market"
	"github.com/voxdeploy/voxdeploy/pkg/logger"
)

type fakeLifecycle struct {
	createID   string
	createErr  error
	lastSpec   market.Spec
	lastWallet string

	statusValue string
	statusErr   error

	terminateOK bool
	terminated  []string
}

func (f *fakeLifecycle) Create(_ context.Context, wallet string, spec market.Spec) (string, error) {
	f.lastWallet = wallet
	f.lastSpec = spec
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createID, nil
}

func (f *fakeLifecycle) Status(_ context.Context, _ string) (string, error) {
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.statusValue, nil
}

func (f *fakeLifecycle) Terminate(_ context.Context, id string) bool {
	f.terminated = append(f.terminated, id)
	return f.terminateOK
}

func newTestRouter(lc Lifecycle) *Router {
	return NewRouter(lc, logger.New("intent-test"))
}

func TestRouteDeploy(t *testing.T) {
	lc := &fakeLifecycle{createID: "42"}
	r := newTestRouter(lc)

	cmd := Command{
		Action:  ActionDeploy,
		Target:  TargetDeployment,
		Image:   "nginx",
		CPU:     0.5,
		Memory:  "512Mi",
		Storage: "512Mi",
		Ports:   []string{"80"},
	}
	result := r.Route(context.Background(), cmd, "akash1owner")

	assert.Equal(t, "Deployed nginx with ID: 42", result)
	assert.Equal(t, "akash1owner", lc.lastWallet)
	require.Equal(t, "nginx", lc.lastSpec.Image)
	assert.Equal(t, 0.5, lc.lastSpec.CPU)
	assert.Equal(t, []string{"80"}, lc.lastSpec.Ports)
}

func TestRouteDeployFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation error", lifecycle.ErrValidation, "Deployment request invalid"},
		{"transport error", lifecycle.ErrTransport, "Deployment failed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&fakeLifecycle{createErr: tc.err})
			result := r.Route(context.Background(), Command{Action: ActionDeploy, Target: TargetDeployment, Image: "nginx"}, "akash1owner")
			assert.Equal(t, tc.want, result)
		})
	}
}

func TestRouteStatus(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{statusValue: "active"})
	result := r.Route(context.Background(), Command{Action: ActionStatus, Target: TargetDeployment, ID: "42"}, "akash1owner")
	assert.Equal(t, "Status: active", result)
}

func TestRouteStatusMissingID(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{})
	result := r.Route(context.Background(), Command{Action: ActionStatus, Target: TargetDeployment}, "akash1owner")
	assert.Equal(t, "Please provide deployment ID", result)
}

func TestRouteStatusNotFound(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{statusErr: lifecycle.ErrNotFound})
	result := r.Route(context.Background(), Command{Action: ActionStatus, Target: TargetDeployment, ID: "99"}, "akash1owner")
	assert.Equal(t, "Not found", result)
}

func TestRouteTerminate(t *testing.T) {
	lc := &fakeLifecycle{terminateOK: true}
	r := newTestRouter(lc)

	result := r.Route(context.Background(), Command{Action: ActionTerminate, Target: TargetDeployment, ID: "42"}, "akash1owner")

	assert.Equal(t, "Deployment terminated", result)
	assert.Equal(t, []string{"42"}, lc.terminated)
}

func TestRouteTerminateFailed(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{terminateOK: false})
	result := r.Route(context.Background(), Command{Action: ActionTerminate, Target: TargetDeployment, ID: "42"}, "akash1owner")
	assert.Equal(t, "Termination failed or ID not found", result)
}

func TestRouteTerminateMissingID(t *testing.T) {
	lc := &fakeLifecycle{terminateOK: true}
	r := newTestRouter(lc)

	result := r.Route(context.Background(), Command{Action: ActionTerminate, Target: TargetDeployment}, "akash1owner")

	assert.Equal(t, "Please provide deployment ID", result)
	assert.Empty(t, lc.terminated)
}

func TestRouteUnrecognized(t *testing.T) {
	r := newTestRouter(&fakeLifecycle{})

	tests := []Command{
		{Action: "restart", Target: TargetDeployment},
		{Action: ActionDeploy, Target: "cluster"},
		{},
	}
	for _, cmd := range tests {
		assert.Equal(t, "Command not recognized", r.Route(context.Background(), cmd, "akash1owner"))
	}
}
