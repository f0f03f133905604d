package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adaptive-view-backend/internal/auth"
	"adaptive-view-backend/internal/config"
	"adaptive-view-backend/internal/features"
	"adaptive-view-backend/internal/prediction"
)

const snapshotJSON = `{
	"number_of_tasks": 50,
	"num_critical_open": 12, "num_high_open": 10, "num_medium_open": 10, "num_low_open": 5,
	"num_pending": 5, "num_todo": 15, "num_inprogress": 15, "num_done": 5, "num_blocked": 10,
	"overdue_tasks": 8, "due_today": 3, "time_of_day": 10,
	"sorted_by": "DueDate",
	"last_task_created_label": "Bug",
	"last_task_created_priority": "Kritisch",
	"last_task_created_status": "Zu Erledigen"
}`

// testApp returns an App with a quiet logger and config taken from env.
func testApp(t *testing.T, env map[string]string) *App {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	app := NewApp()
	app.Logger = zap.NewNop()
	app.IsTerminal = func() bool { return false }
	return app
}

func run(t *testing.T, app *App, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(app)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestPredictCmd_Rules(t *testing.T) {
	app := testApp(t, map[string]string{"ADAPTIVE_BACKEND": "rules"})

	out, _, err := run(t, app, snapshotJSON, "predict", "-")
	require.NoError(t, err)

	var res prediction.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, prediction.Result{View: "list", StatusFilter: "none", PriorityFilter: "Kritisch"}, res)
	assert.Equal(t, 1, strings.Count(out, "\n"), "compact output off a terminal")
}

func TestPredictCmd_ForestFromFile(t *testing.T) {
	app := testApp(t, map[string]string{"ADAPTIVE_MODEL_DIR": "../model/testdata"})
	app.IsTerminal = func() bool { return true }

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshotJSON), 0o644))

	out, _, err := run(t, app, "", "predict", path)
	require.NoError(t, err)
	assert.Contains(t, out, "\n  \"predicted_status_filter\": \"Blockiert\"")
}

func TestPredictCmd_Errors(t *testing.T) {
	app := testApp(t, map[string]string{"ADAPTIVE_BACKEND": "rules"})
	_, _, err := run(t, app, "{}", "predict")
	assert.ErrorIs(t, err, prediction.ErrInvalidInput)

	app = testApp(t, map[string]string{"ADAPTIVE_BACKEND": "rules"})
	_, _, err = run(t, app, strings.Replace(snapshotJSON, `"num_done": 5`, `"num_done": 4`, 1), "predict")
	assert.ErrorIs(t, err, features.ErrFeatureEngineering)

	app = testApp(t, map[string]string{"ADAPTIVE_BACKEND": "forest", "ADAPTIVE_MODEL_DIR": t.TempDir()})
	_, _, err = run(t, app, snapshotJSON, "predict")
	assert.ErrorContains(t, err, "loading models")
}

func TestEngineerAndEvaluateCmds(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.csv")
	engineered := filepath.Join(dir, "engineered.csv")
	require.NoError(t, os.WriteFile(raw, []byte(
		strings.Join(features.RawFields, ",")+",predicted_view,predicted_status_filter,predicted_priority_filter\n"+
			"4,0,2,1,0,0,3,0,1,0,0,0,9,none,Feature,Hoch,Zu Erledigen,list,Zu Erledigen,none\n"+
			"4,0,2,1,0,0,3,0,0,0,0,0,9,none,Feature,Hoch,Zu Erledigen,list,Zu Erledigen,none\n",
	), 0o644))

	app := testApp(t, map[string]string{"ADAPTIVE_BACKEND": "rules"})
	_, stderr, err := run(t, app, "", "engineer", raw, engineered)
	require.NoError(t, err)
	assert.Equal(t, "2 rows read, 1 written, 1 dropped\n", stderr)

	data, err := os.ReadFile(engineered)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), strings.Join(features.Columns(), ",")))

	app = testApp(t, nil)
	out, _, err := run(t, app, "", "evaluate", "--json", raw)
	require.NoError(t, err)

	var rep struct {
		Targets []struct {
			Target   string  `json:"target"`
			Accuracy float64 `json:"accuracy"`
		} `json:"targets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Targets, 3)
	for _, tr := range rep.Targets {
		assert.Equal(t, 1.0, tr.Accuracy, tr.Target)
	}

	app = testApp(t, nil)
	out, _, err = run(t, app, "", "evaluate", raw)
	require.NoError(t, err)
	assert.Contains(t, out, "accuracy 1.0000 (1/1)")
}

func TestTokenCmd(t *testing.T) {
	app := testApp(t, map[string]string{"ADAPTIVE_JWT_SECRET": "s3cret"})
	out, _, err := run(t, app, "", "token", "9")
	require.NoError(t, err)

	uid, err := auth.ParseToken([]byte("s3cret"), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, 9, uid)

	app = testApp(t, nil)
	_, _, err = run(t, app, "", "token", "nine")
	assert.ErrorContains(t, err, "integer")
}

func TestTokenCmd_NeedsSecret(t *testing.T) {
	app := testApp(t, map[string]string{"ADAPTIVE_JWT_SECRET": ""})
	_, _, err := run(t, app, "", "token", "9")
	assert.ErrorContains(t, err, "secret")
}

func TestRoot_BadConfig(t *testing.T) {
	app := testApp(t, map[string]string{"ADAPTIVE_BACKEND": "neural"})
	_, _, err := run(t, app, "", "token", "1")
	assert.ErrorContains(t, err, "backend")
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	_, err = newLogger("chatty")
	assert.Error(t, err)
}

func TestServe_WithAuditLogStopsOnCancel(t *testing.T) {
	app := testApp(t, nil)
	app.Config = &config.Config{
		ListenAddr:    "127.0.0.1:0",
		Backend:       config.BackendRules,
		LogLevel:      "info",
		JWTSecret:     "s3cret",
		AuditDriver:   "sqlite",
		SQLitePath:    filepath.Join(t.TempDir(), "audit.db"),
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	root := NewRootCmd(app)
	root.SetArgs([]string{"serve"})
	assert.NoError(t, root.ExecuteContext(ctx))

	_, err := os.Stat(app.Config.SQLitePath)
	assert.NoError(t, err)
}
