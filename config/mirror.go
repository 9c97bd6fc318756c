package config

import "time"

// Mirror groups configuration of the coordinator and every cache it provisions.
// Optional subsystems are pointers: nil disables them.
type Mirror struct {
	// Rest configures the request client used by caches that fetch their own records.
	Rest RestCfg `yaml:"rest"`

	// Cache holds defaults applied to every provisioned cache.
	Cache CacheCfg `yaml:"cache"`

	// Recycle bounds the recycle tier of every cache.
	// If nil, retired entities are kept until overwritten or revived (unbounded).
	Recycle *RecycleCfg `yaml:"recycle"`

	// Purger runs background TTL purges of the recycle tiers.
	// If nil (or Recycle.TTL is zero), recycled entities never expire by time.
	Purger *PurgerCfg `yaml:"purger"`

	// Telemetry enables periodic storage logs.
	Telemetry TelemetryCfg `yaml:"telemetry"`

	// ShutdownTimeout bounds the graceful close of the coordinator.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CacheTimeEnabled replaces time.Now with a coarse clock refreshed in background.
	CacheTimeEnabled bool `yaml:"cache_time_enabled"`
}

type CacheCfg struct {
	// KeepExisting forbids Set from replacing a different entity already live under the same key.
	KeepExisting bool `yaml:"keep_existing"`
}

type RecycleCfg struct {
	// Capacity is the maximum number of retired entities per cache.
	// The least recently retired entity is evicted first. Zero means unbounded.
	Capacity int `yaml:"capacity"`

	// TTL is how long a retired entity may wait to be revived before it is purged.
	// Zero disables time-based purging.
	TTL time.Duration `yaml:"ttl"`
}

func (cfg *RecycleCfg) Enabled() bool {
	return cfg != nil
}

type PurgerCfg struct {
	// CallsPerSec defines how many purge scans per second the purger performs.
	CallsPerSec int64 `yaml:"calls_per_sec"`
}

func (cfg *PurgerCfg) Enabled() bool {
	return cfg != nil
}

type TelemetryCfg struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}
