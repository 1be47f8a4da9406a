// Package config loads the selection engine's tuning knobs from a YAML
// file via viper, with optional hot-reload. Grounded on Shannon's
// internal/config/config.go: a mapstructure-tagged struct tree and a
// Load() that resolves a config path from an env var with a fallback
// chain. MEMORY_CONFIG_PATH is the only environment variable read;
// individual knobs have no environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// KalmanConfig mirrors rating.Tuning in a mapstructure-friendly shape.
type KalmanConfig struct {
	SigmaObs   float64 `mapstructure:"sigma_obs"`
	SigmaDrift float64 `mapstructure:"sigma_drift"`
	SigmaMin   float64 `mapstructure:"sigma_min"`
	SigmaMax   float64 `mapstructure:"sigma_max"`
}

// BM25Config mirrors lexical.Tuning.
type BM25Config struct {
	K1 float64 `mapstructure:"k1"`
	B  float64 `mapstructure:"b"`
}

// WeightsConfig mirrors selector.Weights.
type WeightsConfig struct {
	Importance   float64 `mapstructure:"importance"`
	TagRelevance float64 `mapstructure:"tag_relevance"`
	Lexical      float64 `mapstructure:"lexical"`
	Recency      float64 `mapstructure:"recency"`
	Centrality   float64 `mapstructure:"centrality"`
	Thompson     float64 `mapstructure:"thompson"`
}

// Tuning is the full set of knobs an operator can override, serialized
// as selection.yaml.
type Tuning struct {
	BM25                 BM25Config    `mapstructure:"bm25"`
	Weights              WeightsConfig `mapstructure:"weights"`
	Kalman               KalmanConfig  `mapstructure:"kalman"`
	MMRLambda            float64       `mapstructure:"mmr_lambda"`
	OversampleMultiplier int           `mapstructure:"oversample_multiplier"`
	RecencyHalfLifeMs    float64       `mapstructure:"recency_half_life_ms"`
	DefaultLimit         int           `mapstructure:"default_limit"`
}

// Default returns spec.md's fixed constants as the baseline Tuning,
// identical to what every package's own DefaultXxx already returns —
// this struct exists so an operator can override them from one file
// instead of patching code.
func Default() Tuning {
	return Tuning{
		BM25: BM25Config{K1: 1.2, B: 0.75},
		Weights: WeightsConfig{
			Importance:   0.10,
			TagRelevance: 0.25,
			Lexical:      0.30,
			Recency:      0.10,
			Centrality:   0.10,
			Thompson:     0.15,
		},
		Kalman: KalmanConfig{
			SigmaObs:   1.0,
			SigmaDrift: 0.01,
			SigmaMin:   0.1,
			SigmaMax:   2.0,
		},
		MMRLambda:            0.7,
		OversampleMultiplier: 3,
		RecencyHalfLifeMs:    14 * 86_400_000.0,
		DefaultLimit:         20,
	}
}

// resolvePath mirrors Shannon's CONFIG_PATH env override with a
// fallback chain, generalized to this engine's settings file name.
func resolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("MEMORY_CONFIG_PATH"); p != "" {
		return p
	}
	if _, err := os.Stat("/etc/memoryd/selection.yaml"); err == nil {
		return "/etc/memoryd/selection.yaml"
	}
	return "config/selection.yaml"
}

// Load reads path (or the resolved default) into Tuning, starting from
// Default() so an incomplete file only overrides the keys it sets. A
// missing file is not an error: Default() is returned unchanged, since a
// fresh install has no config file yet.
func Load(path string) (Tuning, error) {
	resolved := resolvePath(path)

	v := viper.New()
	v.SetConfigFile(resolved)
	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return Default(), nil
		}
		return Tuning{}, fmt.Errorf("read config %s: %w", resolved, err)
	}

	var t Tuning
	if err := v.Unmarshal(&t); err != nil {
		return Tuning{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return t, nil
}

func setDefaults(v *viper.Viper, d Tuning) {
	v.SetDefault("bm25.k1", d.BM25.K1)
	v.SetDefault("bm25.b", d.BM25.B)
	v.SetDefault("weights.importance", d.Weights.Importance)
	v.SetDefault("weights.tag_relevance", d.Weights.TagRelevance)
	v.SetDefault("weights.lexical", d.Weights.Lexical)
	v.SetDefault("weights.recency", d.Weights.Recency)
	v.SetDefault("weights.centrality", d.Weights.Centrality)
	v.SetDefault("weights.thompson", d.Weights.Thompson)
	v.SetDefault("kalman.sigma_obs", d.Kalman.SigmaObs)
	v.SetDefault("kalman.sigma_drift", d.Kalman.SigmaDrift)
	v.SetDefault("kalman.sigma_min", d.Kalman.SigmaMin)
	v.SetDefault("kalman.sigma_max", d.Kalman.SigmaMax)
	v.SetDefault("mmr_lambda", d.MMRLambda)
	v.SetDefault("oversample_multiplier", d.OversampleMultiplier)
	v.SetDefault("recency_half_life_ms", d.RecencyHalfLifeMs)
	v.SetDefault("default_limit", d.DefaultLimit)
}

// Watch starts a viper file watch on path, invoking onChange with the
// freshly reloaded Tuning whenever the file is written. Parse errors
// during a reload are logged and skipped, leaving the previous Tuning in
// effect rather than crashing a running server on a bad edit.
func Watch(path string, logger *slog.Logger, onChange func(Tuning)) error {
	resolved := resolvePath(path)

	v := viper.New()
	v.SetConfigFile(resolved)
	setDefaults(v, Default())
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("read config %s: %w", resolved, err)
			}
		}
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var t Tuning
		if err := v.Unmarshal(&t); err != nil {
			logger.Warn("config reload failed, keeping previous tuning", "error", err, "path", e.Name)
			return
		}
		onChange(t)
	})
	v.WatchConfig()
	return nil
}
