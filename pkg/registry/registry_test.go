package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_ShippedFile(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)

	activity, ok := reg.Find("ticket-image-pin")
	require.True(t, ok)
	assert.Equal(t, "ticket.image.pin", activity.ID)
	assert.Zero(t, activity.Retries)
	assert.Contains(t, activity.ErrorCodes, "CONFIGURATION_ERROR")
	assert.Equal(t, []interface{}{"requestId", "location", "keyword"}, activity.InputSchema["required"])

	_, ok = reg.Find("unknown")
	assert.False(t, ok)
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadRegistry(path)
	assert.Error(t, err)
}

func TestValidate_ShippedFile(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	assert.NoError(t, reg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Activity {
		return Activity{ID: "a", DisplayName: "A", TaskType: "a", Timeout: "30s"}
	}

	tests := []struct {
		name   string
		mutate func(r *ActivityRegistry)
		errMsg string
	}{
		{name: "valid", mutate: func(r *ActivityRegistry) {}},
		{name: "empty", mutate: func(r *ActivityRegistry) { r.Activities = nil }, errMsg: "no activities"},
		{
			name: "duplicate id",
			mutate: func(r *ActivityRegistry) {
				b := valid()
				b.TaskType = "b"
				r.Activities = append(r.Activities, b)
			},
			errMsg: "duplicate activity ID",
		},
		{
			name: "duplicate task type",
			mutate: func(r *ActivityRegistry) {
				b := valid()
				b.ID = "b"
				r.Activities = append(r.Activities, b)
			},
			errMsg: "duplicate task type",
		},
		{name: "missing task type", mutate: func(r *ActivityRegistry) { r.Activities[0].TaskType = "" }, errMsg: "TaskType"},
		{name: "bad timeout", mutate: func(r *ActivityRegistry) { r.Activities[0].Timeout = "soon" }, errMsg: "invalid timeout"},
		{
			name: "schema does not compile",
			mutate: func(r *ActivityRegistry) {
				r.Activities[0].InputSchema = map[string]interface{}{"type": 42}
			},
			errMsg: "inputSchema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: []Activity{valid()}}
			tt.mutate(reg)
			err := reg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestUpdateAndSave(t *testing.T) {
	reg := &ActivityRegistry{Version: "1.0.0", Activities: []Activity{{ID: "a", DisplayName: "A", TaskType: "a"}}}

	require.NoError(t, reg.Update("a", "retries", "0"))
	require.NoError(t, reg.Update("a", "timeout", "30s"))
	assert.Error(t, reg.Update("a", "retries", "many"))
	assert.Error(t, reg.Update("a", "owner", "x"))
	assert.Error(t, reg.Update("missing", "status", "completed"))
	assert.NotEmpty(t, reg.LastUpdated)

	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	activity, ok := loaded.Find("a")
	require.True(t, ok)
	assert.Equal(t, "30s", activity.Timeout)
}
