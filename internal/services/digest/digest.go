// Package digest формирует ежедневные премиум-сводки погоды и новостей
// по Ибице. Тексты генерирует AI-шлюз, готовые сводки кэшируются в Redis,
// чтобы не обращаться к шлюзу на каждый запрос.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
)

const (
	weatherCacheKey = "digest:weather"
	newsCacheKey    = "digest:news"

	weatherSystemPrompt = "You are a professional meteorologist providing detailed weather reports for Ibiza, Spain. Always use current data from official sources."
	newsSystemPrompt    = "You are a professional news aggregator providing comprehensive daily news digests for Ibiza, Spain. Always use current data from official and credible sources."
)

// Provider описывает генерацию текста по паре промптов.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Digest — готовая сводка и момент ее генерации.
type Digest struct {
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Service генерирует и кэширует сводки.
type Service struct {
	provider Provider
	cache    Cache
	log      *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(provider Provider, cache Cache, log *slog.Logger, ttl time.Duration) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		log:      log,
		ttl:      ttl,
		now:      time.Now,
	}
}

// WeatherDigest возвращает сегодняшнюю сводку погоды по Ибице.
func (s *Service) WeatherDigest(ctx context.Context) (*Digest, error) {
	const op = "digest.WeatherDigest"
	userPrompt := fmt.Sprintf(`Today's date is %s.

Pull the most current data from AEMET Balears, AccuWeather, Windy, ECMWF, GFS, ICON and AROME for the island of Ibiza. Begin with date, day of week and a short headline if notable. Summarize overall conditions, highs and lows in °C and °F, wind direction and speed with gust potential, and the named wind if relevant. Cover waves and coastal conditions by coast, rain chance with timing and intensity, jellyfish risk by beach, and active AEMET alerts with level and time range. Close with a short outlook for the next 2-3 days. Format as clean HTML with headers and lists, using semantic tags like <h3>, <ul>, <strong>.`,
		s.now().UTC().Format("Monday, January 2, 2006"))

	digest, err := s.generate(ctx, weatherCacheKey, weatherSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return digest, nil
}

// NewsDigest возвращает сегодняшнюю сводку новостей по Ибице.
func (s *Service) NewsDigest(ctx context.Context) (*Digest, error) {
	const op = "digest.NewsDigest"
	userPrompt := fmt.Sprintf(`Today's date is %s.

Review and cross-verify today's Ibiza news from Diario de Ibiza, Periodico de Ibiza y Formentera, Ibiza Spotlight, La Voz de Ibiza and Cadena SER Ibiza. Include key topics such as major events, government policies, infrastructure updates, public safety incidents, cultural highlights and weather alerts. For each significant story provide a headline, a 2-3 sentence summary and the source with a link. Present the digest in a well-structured scannable format. Format as clean HTML with headers and lists, using semantic tags like <h2>, <h3>, <ul>, <strong>, <a>.`,
		s.now().UTC().Format("Monday, January 2, 2006"))

	digest, err := s.generate(ctx, newsCacheKey, newsSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return digest, nil
}

func (s *Service) generate(ctx context.Context, cacheKey, systemPrompt, userPrompt string) (*Digest, error) {
	var cached Digest
	found, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		s.log.Warn("digest cache read failed", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	content, err := s.provider.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	digest := &Digest{
		Content:     stripCodeFences(content),
		GeneratedAt: s.now().UTC(),
	}
	if err := s.cache.Set(ctx, cacheKey, digest, s.ttl); err != nil {
		s.log.Warn("failed to cache digest", sl.Err(err))
	}
	return digest, nil
}

// stripCodeFences убирает обрамление ```html, которым модель иногда
// оборачивает ответ.
func stripCodeFences(content string) string {
	content = strings.ReplaceAll(content, "```html\n", "")
	content = strings.ReplaceAll(content, "```html", "")
	content = strings.ReplaceAll(content, "```\n", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}
