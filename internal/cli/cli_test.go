package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/replydesk/internal/support"
)

// testEnv points every path at a temp dir and resets command state.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("REPLYDESK_GLOBAL_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("REPLYDESK_GLOBAL_CONFIG_DIR", filepath.Join(dir, "config"))
	t.Setenv("REPLYDESK_LOGGING_LEVEL", "error")
	t.Setenv("REPLYDESK_AI_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("REPLYDESK_AI_CACHE_BACKEND", "none")
	t.Setenv("REPLYDESK_SUPPORT_AGENT", "maria")
	t.Cleanup(func() { resetCommandState(rootCmd) })
	return dir
}

// resetCommandState restores flag defaults between in-process runs.
func resetCommandState(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetCommandState(c)
	}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetCommandState(rootCmd)
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := Execute("test")
	return out.String(), err
}

func seedConversations(t *testing.T, dir string) {
	t.Helper()
	now := time.Now().UTC()
	store := support.NewFileStore(filepath.Join(dir, "data", "conversations.json"), "maria")
	store.Seed([]support.Conversation{
		{
			ID: "conv-refund-1", Subject: "Refund request", Customer: "ana", Status: support.StatusOpen,
			Messages: []support.Message{{ID: "m1", Author: "ana", Body: "<p>necesito un reembolso</p>", CreatedAt: now}},
		},
		{
			ID: "conv-password", Subject: "Password reset", Customer: "bo", Status: support.StatusResolved,
			Messages: []support.Message{{ID: "m2", Author: "bo", Body: "<p>locked out</p>", CreatedAt: now.Add(-time.Hour)}},
		},
	})
	require.NoError(t, store.SaveNow())
}

func newAssistAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ai/translate", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"translated_text": in["language"] + ":" + in["text"]})
	})
	mux.HandleFunc("GET /ai/formats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"formal","name":"Formal"}]`))
	})
	mux.HandleFunc("POST /ai/smart_reply", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"improved_text": "We will refund you today.",
			"improvements":  []string{"tone"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCannedLifecycle(t *testing.T) {
	testEnv(t)

	out, err := runCLI(t, "", "canned", "add", "--title", "Greeting", "--shortcut", "/hi", "--body", "Hello there!")
	require.NoError(t, err)
	assert.Contains(t, out, "Added")
	assert.Contains(t, out, "/hi in the composer")

	_, err = runCLI(t, "Refunds take 5 days.", "canned", "add", "--title", "Refund", "--shortcut", "refund", "--body", "-")
	require.NoError(t, err)

	out, err = runCLI(t, "", "--json", "canned", "list")
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "hi", items[0]["shortcut"])
	assert.Equal(t, "Refunds take 5 days.", items[1]["body"])
	refundID := items[1]["id"].(string)

	_, err = runCLI(t, "", "canned", "disable", refundID)
	require.NoError(t, err)

	out, err = runCLI(t, "", "canned", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Greeting")
	assert.NotContains(t, out, "Refund")

	out, err = runCLI(t, "", "canned", "list", "--all", "-q", "refund")
	require.NoError(t, err)
	assert.Contains(t, out, "Refund")
	assert.NotContains(t, out, "Greeting")

	_, err = runCLI(t, "", "canned", "rm", refundID)
	require.NoError(t, err)

	_, err = runCLI(t, "", "canned", "rm", refundID)
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)
	assert.Equal(t, 2, ExitCode(err))
}

func TestCannedImportExport(t *testing.T) {
	dir := testEnv(t)
	path := filepath.Join(dir, "canned.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`messages:
  - title: Welcome
    shortcut: wel
    body: "Welcome! How can I help?"
    active: true
  - title: Closing
    body: "Anything else?"
    active: false
`), 0o644))

	out, err := runCLI(t, "", "canned", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2")

	out, err = runCLI(t, "", "canned", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "shortcut: wel")
	assert.Contains(t, out, "Anything else?")
}

func TestCannedManagementRequiresSQL(t *testing.T) {
	dir := testEnv(t)
	t.Setenv("REPLYDESK_CATALOG_SOURCE", "yaml")
	t.Setenv("REPLYDESK_CATALOG_PATH", filepath.Join(dir, "canned.yaml"))

	_, err := runCLI(t, "", "canned", "add", "--title", "x", "--body", "y")
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)
	assert.Contains(t, preflight.Message, "read-only")
}

func TestTransformCommands(t *testing.T) {
	testEnv(t)
	srv := newAssistAPI(t)
	t.Setenv("REPLYDESK_AI_BASE_URL", srv.URL)

	out, err := runCLI(t, "", "transform", "translate", "--lang", "en", "hola", "amigo")
	require.NoError(t, err)
	assert.Equal(t, "en:hola amigo\n", out)

	out, err = runCLI(t, "buenos dias\n", "--json", "transform", "translate", "--lang", "en")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"en:buenos dias"}`, out)

	out, err = runCLI(t, "", "transform", "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "formal")

	out, err = runCLI(t, "", "transform", "smart-reply", "--plain", "we refund")
	require.NoError(t, err)
	assert.Equal(t, "We will refund you today.\n", out)

	_, err = runCLI(t, "", "transform", "translate", "hola")
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)

	_, err = runCLI(t, "   ", "transform", "translate", "--lang", "en")
	require.ErrorAs(t, err, &preflight)
	assert.Equal(t, "no input text", preflight.Message)
}

func TestConversationCommands(t *testing.T) {
	dir := testEnv(t)
	seedConversations(t, dir)

	out, err := runCLI(t, "", "conversations", "--status", "open")
	require.NoError(t, err)
	assert.Contains(t, out, "Refund request")
	assert.NotContains(t, out, "Password reset")

	_, err = runCLI(t, "", "reply", "hello")
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)
	assert.Equal(t, "no conversation selected", preflight.Message)

	out, err = runCLI(t, "", "use", "conv-ref")
	require.NoError(t, err)
	assert.Contains(t, out, "conversation:Refund request")

	out, err = runCLI(t, "", "reply", "--resolve", "Your refund is on its way.")
	require.NoError(t, err)
	assert.Contains(t, out, "Sent reply")

	out, err = runCLI(t, "", "--json", "show")
	require.NoError(t, err)
	var conv support.Conversation
	require.NoError(t, json.Unmarshal([]byte(out), &conv))
	assert.Equal(t, support.StatusResolved, conv.Status)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Your refund is on its way.", conv.Messages[1].Body)
	assert.Equal(t, "maria", conv.Messages[1].Author)

	_, err = runCLI(t, "", "status", "password", "open")
	require.NoError(t, err)
	out, err = runCLI(t, "", "show", "conv-password")
	require.NoError(t, err)
	assert.Contains(t, out, "[open]")

	_, err = runCLI(t, "", "status", "conv", "open")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestExportStatus(t *testing.T) {
	dir := testEnv(t)
	seedConversations(t, dir)

	out, err := runCLI(t, "", "--json", "export", "status")
	require.NoError(t, err)
	var status ExportStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 2, status.Conversations)
	assert.Equal(t, 1, status.ByStatus[support.StatusOpen])
	assert.Equal(t, "sql", status.CatalogSource)
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	testEnv(t)
	t.Setenv("REPLYDESK_AI_API_KEY", "super-secret")

	out, err := runCLI(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "sync_debounce: 150ms")
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "super-secret")

	out, err = runCLI(t, "", "--json", "config", "show", "--show-secrets")
	require.NoError(t, err)
	var cfg map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "super-secret", cfg["ai"]["api_key"])
	assert.Equal(t, "50ms", cfg["composer"]["command_debounce"])
}

func TestConfigInit(t *testing.T) {
	dir := testEnv(t)
	path := filepath.Join(dir, "custom.yaml")

	_, err := runCLI(t, "", "--config", path, "config", "init")
	require.Error(t, err, "--config must exist to be loaded")

	_, err = runCLI(t, "", "config", "init")
	require.NoError(t, err)
	written := filepath.Join(dir, "config", "config.yaml")
	data, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.Contains(t, string(data), "menu_limit: 10")

	_, err = runCLI(t, "", "--config", written, "config", "init")
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)
}

func TestRobotHelp(t *testing.T) {
	testEnv(t)

	out, err := runCLI(t, "", "--robot-help")
	require.NoError(t, err)
	assert.Contains(t, out, "replydesk Robot Help")

	out, err = runCLI(t, "", "--robot-help", "--json")
	require.NoError(t, err)
	var manifest SurfaceManifest
	require.NoError(t, json.Unmarshal([]byte(out), &manifest))
	assert.Equal(t, "replydesk", manifest.CLI)
	names := make([]string, 0, len(manifest.Commands))
	for _, c := range manifest.Commands {
		names = append(names, c.Name)
	}
	assert.Subset(t, names, []string{"canned", "config", "conversations", "reply", "serve", "transform", "use", "watch"})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 2, ExitCode(&PreflightError{Message: "x"}))
	assert.Equal(t, 7, ExitCode(&ExitError{Code: 7, Err: errors.New("x")}))
}

func TestWriteTableAlignsWithANSI(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]string{
		{"a", "alpha", "1"},
		{"\x1b[33mbb\x1b[0m", "beta", "22"},
	}
	require.NoError(t, writeTable(&buf, []string{"ID", "NAME", "RUNS"}, rows))

	want := "" +
		"ID  NAME   RUNS\n" +
		"a   alpha  1\n" +
		"\x1b[33mbb\x1b[0m  beta   22\n"
	assert.Equal(t, want, buf.String())
}

func TestMatchConversations(t *testing.T) {
	convs := []support.Conversation{
		{ID: "abc123", Subject: "Refund"},
		{ID: "abd456", Subject: "Password"},
		{ID: "zzz", Subject: "ab testing"},
	}
	assert.Len(t, matchConversations(convs, "ab"), 2)
	assert.Len(t, matchConversations(convs, "abc"), 1)
	assert.Equal(t, "abd456", matchConversations(convs, "pass")[0].ID)
	assert.Empty(t, matchConversations(convs, "nothing"))
}
