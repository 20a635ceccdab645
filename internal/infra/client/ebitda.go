package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/infra/resilience"
	"github.com/havenlabs/haven-core-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// EbitdaClient fetches the weekly EBITDA snapshot from the finance API.
type EbitdaClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewEbitdaClient creates a new EbitdaClient.
func NewEbitdaClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *EbitdaClient {
	return &EbitdaClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

var _ port.EbitdaSource = (*EbitdaClient)(nil)

// GetEbitdaSnapshot fetches the snapshot for a week with retry, circuit
// breaker, and tracing. A 404 means the finance side has not published the
// week yet and returns (nil, nil).
func (c *EbitdaClient) GetEbitdaSnapshot(ctx context.Context, weekStart string) (*domain.EbitdaSnapshot, error) {
	ctx, span := tracer.Start(ctx, "EbitdaClient.GetEbitdaSnapshot")
	defer span.End()
	span.SetAttributes(attribute.String("ebitda.week_start", weekStart))

	var snapshot *domain.EbitdaSnapshot

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			url := fmt.Sprintf("%s/v1/ebitda/weeks/%s", c.baseURL, weekStart)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				snapshot = nil
				return nil
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ebitda API returned status %d", resp.StatusCode)
			}

			var decoded domain.EbitdaSnapshot
			if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
				return err
			}
			snapshot = &decoded
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "ebitda", Err: err}
	}
	return snapshot, nil
}
