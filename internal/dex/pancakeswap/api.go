// internal/dex/pancakeswap/api.go

package pancakeswap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/lp-yield/internal/types"
)

const (
	pricePath          = "data.price"
	baseVolumeField    = "base_volume"
	liquidityField     = "liquidity"
	defaultRetryDelay  = 500 * time.Millisecond
	maxErrorBodyLength = 256
)

// Config описывает источники данных одной пары.
type Config struct {
	TokenPriceURL string
	PairsURL      string
	PairKey       string        // ключ пары в data: "<base>_<quote>"
	Timeout       time.Duration // 0 - без таймаута
	Retries       int           // 0 - одна попытка
	RetryDelay    time.Duration
}

// Service получает цену токена, объем и ликвидность пары из PancakeSwap API v2.
// Любая ошибка превращается в Reading с нулевым значением; паники и
// возврата ошибок наружу нет.
type Service struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

// NewService создает новый экземпляр сервиса
func NewService(cfg Config, logger *zap.Logger) *Service {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Service{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:    cfg,
		logger: logger.Named("pancakeswap"),
	}
}

// FetchTokenPrice получает цену базового токена в котируемой валюте
func (s *Service) FetchTokenPrice(ctx context.Context) types.Reading {
	return s.reading(ctx, "token price", s.cfg.TokenPriceURL, pricePath)
}

// FetchBaseVolume получает объем пары за 24 часа в базовом токене
func (s *Service) FetchBaseVolume(ctx context.Context) types.Reading {
	return s.reading(ctx, "pairs volume", s.cfg.PairsURL, pairPath(s.cfg.PairKey, baseVolumeField))
}

// FetchLiquidity получает ликвидность пары в базовом токене
func (s *Service) FetchLiquidity(ctx context.Context) types.Reading {
	return s.reading(ctx, "pairs liquidity", s.cfg.PairsURL, pairPath(s.cfg.PairKey, liquidityField))
}

// FetchSnapshot runs the three independent fetches concurrently and waits for all of them.
func (s *Service) FetchSnapshot(ctx context.Context) types.PairSnapshot {
	var (
		snapshot types.PairSnapshot
		g        errgroup.Group
	)

	g.Go(func() error {
		snapshot.Price = s.FetchTokenPrice(ctx)
		return nil
	})
	g.Go(func() error {
		snapshot.BaseVolume24h = s.FetchBaseVolume(ctx)
		return nil
	})
	g.Go(func() error {
		snapshot.Liquidity = s.FetchLiquidity(ctx)
		return nil
	})
	_ = g.Wait()

	snapshot.FetchedAt = time.Now()
	return snapshot
}

// FetchField returns the non-negative number found at path in the JSON served by url.
func (s *Service) FetchField(ctx context.Context, url, path string) (float64, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryDelay
	policy.MaxInterval = s.cfg.RetryDelay * 10

	notify := func(err error, d time.Duration) {
		s.logger.Info("Повтор запроса после ошибки",
			zap.String("url", url),
			zap.Error(err),
			zap.Duration("backoff", d))
	}

	operation := func() (float64, error) {
		value, err := s.fetchOnce(ctx, url, path)
		if err != nil && isPayloadError(err) {
			return 0, backoff.Permanent(err)
		}
		return value, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.cfg.Retries+1)),
		backoff.WithNotify(notify))
}

func (s *Service) reading(ctx context.Context, what, url, path string) types.Reading {
	value, err := s.FetchField(ctx, url, path)
	if err != nil {
		s.logger.Error("Cannot fetch "+what,
			zap.String("url", url),
			zap.String("path", path),
			zap.Error(err))
		return types.Reading{Value: 0, Err: fmt.Errorf("%s: %w", what, err)}
	}

	s.logger.Debug("Fetched "+what, zap.Float64("value", value))
	return types.Reading{Value: value}
}

// fetchOnce выполняет один HTTP запрос и извлекает поле
func (s *Service) fetchOnce(ctx context.Context, url, path string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBodyLength {
			body = body[:maxErrorBodyLength]
		}
		return 0, fmt.Errorf("%w: %d, body: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	return parseField(body, path)
}

// parseField извлекает число по пути gjson. API отдает числа строками,
// поэтому принимаются и строки, и JSON-числа.
func parseField(body []byte, path string) (float64, error) {
	if !gjson.ValidBytes(body) {
		return 0, ErrMalformedPayload
	}

	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return 0, fmt.Errorf("%w: %s", ErrFieldMissing, path)
	}

	var raw string
	switch res.Type {
	case gjson.String:
		raw = res.Str
	case gjson.Number:
		raw = res.Raw
	default:
		return 0, fmt.Errorf("%w: %s = %s", ErrNotNumeric, path, res.Raw)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s = %q", ErrNotNumeric, path, raw)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s = %s", ErrNegativeValue, path, d.String())
	}

	return d.InexactFloat64(), nil
}

func pairPath(pairKey, field string) string {
	return "data." + gjson.Escape(pairKey) + "." + field
}
