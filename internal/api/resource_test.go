package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionLevelSatisfies(t *testing.T) {
	assert.True(t, PermissionExecute.Satisfies(PermissionRead))
	assert.True(t, PermissionWrite.Satisfies(PermissionWrite))
	assert.False(t, PermissionRead.Satisfies(PermissionWrite))
	assert.False(t, PermissionNone.Satisfies(PermissionRead))
	assert.True(t, PermissionNone.Satisfies(PermissionNone))
}

func TestPartialServerConfigApply(t *testing.T) {
	base := DefaultServerConfig()
	require.True(t, base.Enabled)
	require.Equal(t, 90.0, base.CPUWarning)

	address := "http://10.0.0.5:9121"
	enabled := false
	cpuWarning := 80.0
	patch := PartialServerConfig{
		Address:    &address,
		Enabled:    &enabled,
		CPUWarning: &cpuWarning,
	}

	merged := patch.Apply(base)
	assert.Equal(t, address, merged.Address)
	assert.False(t, merged.Enabled)
	assert.Equal(t, 80.0, merged.CPUWarning)
	// untouched fields keep defaults
	assert.True(t, merged.AutoPrune)
	assert.Equal(t, 99.0, merged.CPUCritical)
	assert.Equal(t, 95.0, merged.MemCritical)
}

func TestPartialDeploymentConfigApplyClearsSlices(t *testing.T) {
	base := DeploymentConfig{
		ServerID: "srv-1",
		Image:    "nginx:1.25",
		Ports:    []string{"80:80"},
	}
	empty := []string{}
	patch := PartialDeploymentConfig{Ports: &empty}

	merged := patch.Apply(base)
	assert.Empty(t, merged.Ports)
	assert.Equal(t, "nginx:1.25", merged.Image)
	assert.Equal(t, "srv-1", merged.ServerID)
}

func TestPartialConfigOmittedFieldsStayNil(t *testing.T) {
	var patch PartialBuildConfig
	require.NoError(t, json.Unmarshal([]byte(`{"branch":"develop"}`), &patch))
	require.NotNil(t, patch.Branch)
	assert.Nil(t, patch.Version)

	merged := patch.Apply(DefaultBuildConfig())
	assert.Equal(t, "develop", merged.Branch)
	assert.Equal(t, "latest", merged.Version)
	assert.Equal(t, "Dockerfile", merged.DockerfilePath)
}

func TestResourceEnvelopeRoundTrip(t *testing.T) {
	server := Server{
		ResourceMeta: ResourceMeta{ID: "id-1", Name: "prod", Version: 3},
		Config:       DefaultServerConfig(),
		Info:         ServerInfo{Status: ServerOk},
	}
	raw, err := json.Marshal(server)
	require.NoError(t, err)

	var decoded Server
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, server.Name, decoded.Name)
	assert.Equal(t, ServerOk, decoded.Info.Status)
	assert.Equal(t, int64(3), decoded.Version)
}

func TestRequestEnvelopeDecoding(t *testing.T) {
	raw := []byte(`{"type":"GetServer","params":{"server":"prod"}}`)
	var req Request
	require.NoError(t, json.Unmarshal(raw, &req))
	assert.Equal(t, TypeGetServer, req.Type)

	var params GetServer
	require.NoError(t, json.Unmarshal(req.Params, &params))
	assert.Equal(t, "prod", params.Server)
}
