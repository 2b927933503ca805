package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI answers every chat completion with "<term>: 테스트 뜻."
func fakeOpenAI(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		var user struct {
			Term string `json:"term"`
		}
		_ = json.Unmarshal([]byte(req.Messages[len(req.Messages)-1].Content), &user)

		content, _ := json.Marshal(map[string]string{"meaning_line": user.Term + ": 테스트 뜻."})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: string(content)}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig writes a config file and isolates the environment.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, env := range []string{"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "SLANGER_REDIS_URL", "SLANGER_DATABASE_DSN"} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func apiConfig(srv *httptest.Server, extra string) string {
	return fmt.Sprintf(`openai:
  api_key: sk-test
  base_url: %s/v1
upstream:
  base_delay: 1ms
  attempt_timeout: 2s
  deadline: 5s
%s`, srv.URL, extra)
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Version(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "slanger")
}

func TestRun_UnknownCommand(t *testing.T) {
	_, _, err := execute(t, "translate")
	assert.Error(t, err)
}

func TestRun_ResolveWithoutAPIKey(t *testing.T) {
	cfg := writeConfig(t, "")

	stdout, stderr, err := execute(t, "--config", cfg, "resolve", "고양이")
	require.NoError(t, err)
	assert.Equal(t, "고양이: 정확한 해석을 찾지 못했습니다.\n", stdout)
	assert.Contains(t, stderr, "no interpretation available")
}

func TestRun_ResolveEmptyTerm(t *testing.T) {
	cfg := writeConfig(t, "")

	_, _, err := execute(t, "--config", cfg, "resolve", "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid term")
}

func TestRun_Resolve(t *testing.T) {
	srv := fakeOpenAI(t, nil)
	cfg := writeConfig(t, apiConfig(srv, ""))

	stdout, _, err := execute(t, "--config", cfg, "resolve", "갓생", "--context", "나 요즘 갓생 살아")
	require.NoError(t, err)
	assert.Equal(t, "갓생: 테스트 뜻.\n", stdout)

	stdout, _, err = execute(t, "--config", cfg, "resolve", "갓생", "--json")
	require.NoError(t, err)
	var resp struct {
		MeaningLine string `json:"meaning_line"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "갓생: 테스트 뜻.", resp.MeaningLine)
}

func TestRun_Stats(t *testing.T) {
	srv := fakeOpenAI(t, nil)
	cfg := writeConfig(t, apiConfig(srv, ""))

	_, stderr, err := execute(t, "--config", cfg, "--stats", "resolve", "갓생")
	require.NoError(t, err)
	assert.Contains(t, stderr, "resolves: upstream=1")
	assert.Contains(t, stderr, "upstream attempts: ok=1")

	_, stderr, err = execute(t, "--config", cfg, "resolve", "갓생")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "resolves:")
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "none", formatCounts(nil))
	assert.Equal(t, "cache_hit=2 fallback=1", formatCounts(map[string]int64{"fallback": 1, "cache_hit": 2}))
}

func TestRun_Scan(t *testing.T) {
	var calls int32
	srv := fakeOpenAI(t, &calls)
	cfg := writeConfig(t, apiConfig(srv, ""))

	page := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(page, []byte(`<p>갓생 살기로 했다. 갓생 살기로 했다.</p><p>킹받네!</p><code>갓생</code>`), 0o600))

	stdout, stderr, err := execute(t, "--config", cfg, "scan", page, "--terms", "갓생,킹받네", "--json")
	require.NoError(t, err)

	var results []scanResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 2)
	assert.Equal(t, scanResult{Term: "갓생", Context: "갓생 살기로 했다.", MeaningLine: "갓생: 테스트 뜻."}, results[0])
	assert.Equal(t, "킹받네", results[1].Term)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Contains(t, stderr, "2 matches")

	stdout, _, err = execute(t, "--config", cfg, "scan", page, "--terms", "갓생", "--annotate")
	require.NoError(t, err)
	assert.Contains(t, stdout, `<span class="slang-term" data-slang="갓생" title="갓생: 테스트 뜻.">갓생</span>`)
	assert.Contains(t, stdout, "<code>갓생</code>")
}

func TestRun_ScanWithoutTerms(t *testing.T) {
	cfg := writeConfig(t, "")

	page := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(page, []byte(`<p>갓생</p>`), 0o600))

	_, _, err := execute(t, "--config", cfg, "scan", page)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no known terms")
}

func TestRun_ImportTermsExport(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, fmt.Sprintf(`store:
  driver: sqlite3
  dsn: %s
cache:
  backend: bolt
  bolt_path: %s
`, filepath.Join(dir, "slang.db"), filepath.Join(dir, "cache.db")))

	seed := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`version: "1.0"
entries:
  - term: 갓생
    meaning_line: "갓생: 완벽한 일상을 추구하는 생활 태도."
  - term: 킹받네
    meaning_line: "킹받네: 몹시 화가 나거나 짜증 난다는 뜻."
  - term: 고양이
    meaning_line: "고양이: 정확한 해석을 찾지 못했습니다."
`), 0o600))

	stdout, _, err := execute(t, "--config", cfg, "import", seed)
	require.NoError(t, err)
	assert.Contains(t, stdout, "imported 2")
	assert.Contains(t, stdout, "skipped 1")

	stdout, _, err = execute(t, "--config", cfg, "terms")
	require.NoError(t, err)
	assert.Equal(t, []string{"갓생", "킹받네"}, strings.Fields(stdout))

	// Served from the store: no API key is configured.
	stdout, _, err = execute(t, "--config", cfg, "resolve", "갓생")
	require.NoError(t, err)
	assert.Equal(t, "갓생: 완벽한 일상을 추구하는 생활 태도.\n", stdout)

	stdout, _, err = execute(t, "--config", cfg, "purge")
	require.NoError(t, err)
	assert.Contains(t, stdout, "removed 1 cache entries from slang:v2")

	out := filepath.Join(dir, "export.json")
	_, stderr, err := execute(t, "--config", cfg, "export", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "exported to")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"meaning_line": "킹받네: 몹시 화가 나거나 짜증 난다는 뜻."`)
}

func TestRun_ImportDryRun(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, fmt.Sprintf(`store:
  driver: sqlite3
  dsn: %s
`, filepath.Join(dir, "slang.db")))

	seed := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`{"version": "1.0", "entries": [
		{"term": "갓생", "meaning_line": "갓생: 완벽한 일상을 추구하는 생활 태도."},
		{"term": "고양이", "meaning_line": "고양이: 정확한 해석을 찾지 못했습니다."}
	]}`), 0o600))

	stdout, _, err := execute(t, "--config", cfg, "import", "--dry-run", seed)
	require.NoError(t, err)
	assert.Contains(t, stdout, "+ 갓생: 완벽한 일상을 추구하는 생활 태도.")
	assert.Contains(t, stdout, "would import 1 (1 new, 0 changed), unchanged 0, skipped 1")

	stdout, _, err = execute(t, "--config", cfg, "terms")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(stdout))

	_, _, err = execute(t, "--config", cfg, "import", seed)
	require.NoError(t, err)

	stdout, _, err = execute(t, "--config", cfg, "import", "--dry-run", seed)
	require.NoError(t, err)
	assert.Contains(t, stdout, "would import 0 (0 new, 0 changed), unchanged 1, skipped 1")
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := writeConfig(t, `cache:
  backend: memcached
`)

	_, _, err := execute(t, "--config", cfg, "terms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	quiet := newLogger(false, &buf)
	assert.False(t, quiet.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, quiet.Enabled(context.Background(), slog.LevelWarn))

	verbose := newLogger(true, &buf)
	assert.True(t, verbose.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand(&bytes.Buffer{}, &bytes.Buffer{})

	assert.Equal(t, "slanger", cmd.Use)
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"resolve", "scan", "terms", "purge", "import", "export", "version"} {
		assert.Contains(t, names, want)
	}
}
