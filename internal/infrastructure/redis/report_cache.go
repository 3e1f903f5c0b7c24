// Package redis implementa la caché de snapshots de reportes sobre Redis.
// Los reportes son instantáneas no transaccionales: servir un snapshot con
// unos minutos de antigüedad es aceptable y evita recorrer el ledger en cada
// consulta.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/jhoicas/stock-ledger-api/internal/application/reporting"
	"github.com/jhoicas/stock-ledger-api/pkg/config"
)

var _ reporting.ReportCache = (*ReportCache)(nil)

// ReportCache guarda snapshots de reportes serializados como JSON con TTL.
type ReportCache struct {
	client *redis.Client
}

// NewReportCache conecta al Redis configurado y verifica con un PING.
func NewReportCache(ctx context.Context, cfg config.RedisConfig) (*ReportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &ReportCache{client: client}, nil
}

// Get deserializa el snapshot en v. Devuelve false si la llave no existe o expiró.
func (c *ReportCache) Get(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("leer caché de reporte: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		// Snapshot corrupto o de una versión anterior del DTO: tratarlo como miss.
		return false, nil
	}
	return true, nil
}

// Set serializa v y lo guarda con el TTL dado.
func (c *ReportCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("serializar snapshot de reporte: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("guardar caché de reporte: %w", err)
	}
	return nil
}

// Close cierra la conexión.
func (c *ReportCache) Close() error { return c.client.Close() }
