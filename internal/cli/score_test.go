package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/pqrs/pkg/models"
)

func TestScore_Text(t *testing.T) {
	out, err := run(t, "score", "--length", "3", "--width", "2", "--depth", "50",
		"--pedestrian", "3", "--vehicle", "3", "--speed", "2", "--proximity", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Area: 6.00 m²")
	assert.Contains(t, out, "Score: 62 (Media), SLA 72h")
}

func TestScore_JSON(t *testing.T) {
	out, err := run(t, "--format", "json", "score", "--length", "2", "--width", "1.5",
		"--pedestrian", "2", "--vehicle", "1")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ScoreResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3.0, resp.Data.AreaM2)
	assert.Equal(t, 25, resp.Data.Score)
	assert.Equal(t, models.LevelLow, resp.Data.Level)
	assert.Equal(t, 168, resp.Data.SLAHours)
}

func TestScore_ContextFlagsApply(t *testing.T) {
	without, err := run(t, "--format", "json", "score", "--length", "1", "--width", "1")
	require.NoError(t, err)
	with, err := run(t, "--format", "json", "score", "--length", "1", "--width", "1", "--age-days", "20")
	require.NoError(t, err)

	var a, b struct {
		Data ScoreResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(without), &a))
	require.NoError(t, json.Unmarshal([]byte(with), &b))
	assert.Equal(t, 0, a.Data.Components.Context)
	assert.Equal(t, 100, b.Data.Components.Context)
	assert.Greater(t, b.Data.Score, a.Data.Score)
}

func TestScore_InvalidInput(t *testing.T) {
	out, err := run(t, "score", "--length", "0", "--width", "1", "--speed", "7")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "length must be greater than 0 m")
	assert.Contains(t, out, "road speed must be between 0 and 3")

	_, err = run(t, "score", "--width", "1")
	require.Error(t, err, "length is a required flag")
}
