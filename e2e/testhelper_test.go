package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/armelgeek/heysprech-api/internal/client"
	"github.com/armelgeek/heysprech-api/internal/config"
	"github.com/armelgeek/heysprech-api/internal/handler"
	"github.com/armelgeek/heysprech-api/internal/middleware"
	"github.com/armelgeek/heysprech-api/internal/model"
	"github.com/armelgeek/heysprech-api/internal/queue"
	"github.com/armelgeek/heysprech-api/internal/service"
	"github.com/armelgeek/heysprech-api/internal/store"
	"github.com/armelgeek/heysprech-api/internal/worker"
)

const testJWTSecret = "test-secret-for-e2e"

// stubExtractor stands in for yt-dlp: it writes a small file and returns its
// path, so submits succeed without the network.
type stubExtractor struct {
	dir string
}

func (s *stubExtractor) Extract(ctx context.Context, sourceRef string) (string, error) {
	path := filepath.Join(s.dir, sourceRef+".mp3")
	if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, artifactPath string) ([]model.Segment, error) {
	return []model.Segment{{Start: 0, End: 2, Text: "Guten Morgen"}}, nil
}

type stubTranslator struct{}

func (stubTranslator) TranslateSegments(ctx context.Context, segments []model.Segment) ([]model.Segment, error) {
	out := make([]model.Segment, len(segments))
	for i, seg := range segments {
		out[i] = seg
		out[i].Translation = "Bonjour"
	}
	return out, nil
}

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store *store.Store
	queue *queue.Queue
	auth  *middleware.AuthMiddleware
}

// setupApp wires the same components as main.go against miniredis, a
// temporary sqlite database and stub external clients.
func setupApp(t *testing.T) *testApp {
	return setupAppWithLimit(t, 10000)
}

func setupAppWithLimit(t *testing.T, submitPerHour int) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	jobStore, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = jobStore.Close() })

	workQueue := queue.New(redisClient)
	validate := validator.New()

	var extractor client.AudioExtractor = &stubExtractor{dir: t.TempDir()}

	pipelineCtx, stopPipeline := context.WithCancel(context.Background())
	pipeline := worker.NewPipeline(jobStore, workQueue, stubTranscriber{}, stubTranslator{}, &config.PipelineConfig{
		TranscriptionWorkers: 1,
		TranslationWorkers:   1,
		DequeueTimeout:       1,
		StageTimeout:         30,
	})
	pipeline.Start(pipelineCtx)
	t.Cleanup(func() {
		stopPipeline()
		pipeline.Wait()
	})

	videoService := service.NewVideoService(jobStore, workQueue, extractor)
	systemService := service.NewSystemService(workQueue, pipeline)

	videoHandler := handler.NewVideoHandler(videoService, validate)
	systemHandler := handler.NewSystemHandler(systemService)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret, 1)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   redisClient.Ping(c.Context()).Err() == nil,
				"workers": pipeline.ActiveWorkers(),
			},
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	videos := api.Group("/videos")
	videos.Post("/", rateLimiter.SubmitLimit(submitPerHour), videoHandler.Submit)
	videos.Get("/", videoHandler.List)
	videos.Get("/:id", videoHandler.Get)
	videos.Delete("/:id", videoHandler.Delete)

	api.Get("/system/status", systemHandler.Status)

	return &testApp{app: app, store: jobStore, queue: workQueue, auth: authMiddleware}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T, ta *testApp) string {
	t.Helper()
	token, err := ta.auth.GenerateToken("test-user-123")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, ta *testApp, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t, ta)
	return doRequest(ta.app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// parseJSONArray parses response body into a slice.
func parseJSONArray(t *testing.T, resp *http.Response) []interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result []interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON array: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// waitForJobStatus polls the store until the job reaches the wanted status.
func waitForJobStatus(t *testing.T, ta *testApp, jobID string, want model.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := ta.store.Get(context.Background(), jobID)
		if err == nil && job.Status == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
}
