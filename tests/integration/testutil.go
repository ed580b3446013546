//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/forkful/recommender/internal/api"
	"github.com/forkful/recommender/internal/catalog"
	"github.com/forkful/recommender/internal/config"
	"github.com/forkful/recommender/internal/database"
	"github.com/forkful/recommender/internal/llm"
	mw "github.com/forkful/recommender/internal/middleware"
	"github.com/forkful/recommender/internal/recommend"
	"github.com/forkful/recommender/internal/servelog"
)

const embeddingDim = 768

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	Store       *catalog.PostgresStore
	LogRepo     *servelog.Repository
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container with pgvector
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:0.8.1-pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "recommender_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	dbCfg := config.DBConfig{
		Host:     pgHost,
		Port:     pgPort.Int(),
		User:     "test",
		Password: "test",
		Name:     "recommender_test",
		SSLMode:  "disable",
		MaxConns: 5,
	}

	// Migrations create the vector extension, so they run before the pool connects.
	if err := database.RunMigrations(dbCfg.DSN(), getMigrationsPath()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	pool, err := database.NewPostgresPool(ctx, dbCfg)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Model services are scripted; everything else is real.
	embedder, err := llm.NewCachedEmbedder(axisEmbedder{}, redisClient, "test", 128, time.Hour)
	if err != nil {
		t.Fatalf("creating embedder: %v", err)
	}

	opts := recommend.DefaultOptions()
	opts.Timeout = 10 * time.Second
	store := catalog.NewPostgresStore(pool)
	pipeline := recommend.NewPipeline(store, embedder, scriptedCompleter{}, store, opts)
	logRepo := servelog.NewRepository(pool)

	router := api.NewRouter(api.RouterConfig{
		CORS:               config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RecommendRateLimit: mw.NewRateLimiter(redisClient, "recommend", 1000, 60).Middleware,
		Database: api.HealthCheckFunc(func(ctx context.Context) error {
			return database.HealthCheck(ctx, pool)
		}),
	}, api.HandlerSet{
		Recommend:         recommend.NewHandler(pipeline, nil).Recommend,
		RecommendationLog: servelog.NewHandler(logRepo).List,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		Store:       store,
		LogRepo:     logRepo,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// axisEmbedder maps every text onto the first axis, so venue similarity is
// decided by the seeded embeddings alone.
type axisEmbedder struct{}

func (axisEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return axis(0), nil
}

// scriptedCompleter answers extraction with fixed slots and selection with
// the first three candidate ids in prompt order.
type scriptedCompleter struct{}

var candidateID = regexp.MustCompile(`\[id: ([^\]]+)\]`)

func (scriptedCompleter) Complete(_ context.Context, prompt string, _ float32, _ int) (string, error) {
	if strings.Contains(prompt, "extract restaurant preferences") {
		return `{"cuisine":["hummus"],"occasion":"casual","vibe":[],"budget":"cheap","dietary":[]}`, nil
	}
	var picks []map[string]string
	for _, m := range candidateID.FindAllStringSubmatch(prompt, 3) {
		picks = append(picks, map[string]string{"id": m[1], "reason": "Scripted pick " + m[1]})
	}
	out, _ := json.Marshal(map[string]any{"recommendations": picks})
	return string(out), nil
}

func axis(i int) []float32 {
	v := make([]float32, embeddingDim)
	v[i%embeddingDim] = 1
	return v
}

// SeedVenue inserts v and removes it when the test ends.
func SeedVenue(t *testing.T, env *TestEnv, v catalog.Venue) {
	t.Helper()
	ctx := context.Background()

	var lat, lng *float64
	if v.Location != nil {
		lat, lng = &v.Location.Lat, &v.Location.Lng
	}
	var hours []byte
	if v.OpeningHours != nil {
		hours, _ = json.Marshal(v.OpeningHours)
	}
	var summaryEmb, reviewsEmb *pgvector.Vector
	if v.SummaryEmbedding != nil {
		vec := pgvector.NewVector(v.SummaryEmbedding)
		summaryEmb = &vec
	}
	if v.ReviewsEmbedding != nil {
		vec := pgvector.NewVector(v.ReviewsEmbedding)
		reviewsEmb = &vec
	}

	_, err := env.Pool.Exec(ctx,
		`INSERT INTO venues (id, name, city, lat, lng, rating, review_count, price_level, categories,
		     opening_hours, summary, summary_embedding, reviews_embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		v.ID, v.Name, v.City, lat, lng, v.Rating, v.ReviewCount, v.PriceLevel, v.Categories,
		hours, v.Summary, summaryEmb, reviewsEmb)
	if err != nil {
		t.Fatalf("seeding venue %s: %v", v.ID, err)
	}
	t.Cleanup(func() {
		env.Pool.Exec(ctx, `DELETE FROM venue_social_signals WHERE venue_id = $1`, v.ID)
		env.Pool.Exec(ctx, `DELETE FROM venues WHERE id = $1`, v.ID)
	})
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
