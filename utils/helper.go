package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/meridianmed/clinicops_backend/config"
	"github.com/shopspring/decimal"
)

var ErrLeaseNotObtained = errors.New("sync lease not obtained")

// ObtainSyncLease takes an advisory lock so only one sync of a given type
// runs at a time. Returns a release func. If Redis isn't initialized the
// lease degrades to a no-op; downstream writes are idempotent upserts, so
// overlapping runs are still data-safe, just noisier in the audit trail.
func ObtainSyncLease(ctx context.Context, syncType string, ttl time.Duration) (func(), error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, nil
	}

	lockKey := fmt.Sprintf("SyncLease:%s", syncType)
	lock, err := locker.Obtain(ctx, lockKey, ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrLeaseNotObtained
	} else if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}

func EnvBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

func EnvDecimalDefault(key string, def decimal.Decimal) decimal.Decimal {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return def
	}
	return d
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
