package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/fabricator/internal/catalog"
	"github.com/makeasinger/fabricator/internal/catalog/catalogtest"
	"github.com/makeasinger/fabricator/internal/fabricator"
	"github.com/makeasinger/fabricator/internal/handler"
	"github.com/makeasinger/fabricator/internal/lifecycle"
	"github.com/makeasinger/fabricator/internal/middleware"
	"github.com/makeasinger/fabricator/internal/model"
	"github.com/makeasinger/fabricator/internal/service"
	"github.com/makeasinger/fabricator/internal/ship"
	"github.com/makeasinger/fabricator/internal/store"
	"github.com/makeasinger/fabricator/internal/worker"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app       *fiber.App
	auth      *middleware.AuthMiddleware
	worker    *worker.FabricateWorker
	fixture   *catalogtest.Fixture
	accountID string
}

// setupApp wires the server the way main.go does, against redis DB 15 and
// the test catalog. Object storage stays unconfigured so segments ship to
// redis only. Fabrication is driven by calling the worker directly.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	redisOpt := asynq.RedisClientOpt{Addr: "localhost:6379", DB: 15}
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		redisClient.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { redisClient.Close() })

	asynqClient := asynq.NewClient(redisOpt)
	t.Cleanup(func() { asynqClient.Close() })
	inspector := asynq.NewInspector(redisOpt)
	t.Cleanup(func() { inspector.Close() })

	validate := validator.New()
	fixture := catalogtest.Basic()
	holder := catalog.NewHolder(fixture.Content)

	st := store.New(validate)
	machine := lifecycle.NewMachine(st, nil)
	scheduler := service.NewTaskScheduler(asynqClient, inspector, nil)
	shipper := ship.NewShipper(redisClient, nil, time.Minute, nil)

	chainService := service.NewChainService(st, machine, scheduler, shipper, nil)
	chainHandler := handler.NewChainHandler(chainService, validate, nil)
	catalogHandler := handler.NewCatalogHandler(holder, func(ctx context.Context) (*catalog.Content, error) {
		return fixture.Content, nil
	}, nil)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret, time.Hour)
	rateLimiter := middleware.NewRateLimiter(redisClient, nil)

	tuning := fabricator.DefaultTuning()
	tuning.EntropyLimit = 0
	tuning.DetailTypes = []model.InstrumentType{model.InstrumentTypePad}
	fabricateWorker := worker.NewFabricateWorker(st, machine, scheduler, shipper, nil, holder, worker.FabricateConfig{
		CycleDelay:     time.Second,
		RetryDelay:     time.Second,
		BufferAhead:    time.Minute,
		RetainSegments: 1,
		Seed:           7,
		Tuning:         tuning,
	}, nil)

	app := fiber.New()
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Use very high rate limits so tests don't get blocked
	api := app.Group("/api", authMiddleware.Authenticate(), rateLimiter.APILimit(10000))
	chains := api.Group("/chains")
	chains.Post("/", chainHandler.Create)
	chains.Get("/:chainId", chainHandler.Get)
	chains.Post("/:chainId/bindings", chainHandler.AddBinding)
	chains.Post("/:chainId/state", chainHandler.Transition)
	chains.Get("/:chainId/segments", chainHandler.ListSegments)
	api.Get("/segments/:segmentId", chainHandler.SegmentGraph)
	api.Get("/catalog", catalogHandler.Summary)
	api.Post("/catalog/reload", catalogHandler.Reload)

	return &testApp{
		app:       app,
		auth:      authMiddleware,
		worker:    fabricateWorker,
		fixture:   fixture,
		accountID: uuid.NewString(),
	}
}

// generateToken creates an operator token for test requests.
func (ta *testApp) generateToken(t *testing.T) string {
	t.Helper()
	token, err := ta.auth.GenerateToken("test-operator", ta.accountID)
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
func (ta *testApp) doAuthRequest(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	resp, err := doRequest(ta.app, method, path, body, map[string]string{
		"Authorization": "Bearer " + ta.generateToken(t),
	})
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
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

// decode parses the response body into v.
func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	body := readBody(t, resp)
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, readBody(t, resp))
	}
}
