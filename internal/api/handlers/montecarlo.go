package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wonny/tearsheet/internal/montecarlo"
	"github.com/wonny/tearsheet/internal/series"
)

// maxSimulations caps ?sims per request
const maxSimulations = 100000

// Simulate resamples the posted returns into Monte Carlo paths
// POST /api/montecarlo?sims=1000&method=bootstrap&horizon=252&seed=1&bust=-0.2&goal=0.5
func (h *MetricsHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	cfg, err := simulationConfig(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	mc, err := montecarlo.NewSimulator(cfg)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	in, opts, _, ok := h.decode(w, r)
	if !ok {
		return
	}

	prep := opts.Prepare()
	prep.RiskFreeRate = 0
	s, err := series.Prepare(in.Returns, prep)
	if err != nil {
		respondError(w, statusOf(err), err.Error())
		return
	}

	result, err := mc.Simulate(r.Context(), s.Values)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Warn("Monte Carlo simulation failed")
		respondError(w, statusOf(err), err.Error())
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"simulations": cfg.Simulations,
		"method":      cfg.Method,
	}).Debug("Monte Carlo simulation completed")
	respondJSON(w, http.StatusOK, result)
}

// simulationConfig overlays query parameters on the default config
func simulationConfig(q url.Values) (montecarlo.Config, error) {
	cfg := montecarlo.DefaultConfig()

	ints := []struct {
		key string
		dst *int
	}{
		{"sims", &cfg.Simulations},
		{"horizon", &cfg.Horizon},
		{"min_samples", &cfg.MinSamples},
	}
	for _, p := range ints {
		if v := q.Get(p.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return cfg, fmt.Errorf("invalid %s: %q", p.key, v)
			}
			*p.dst = n
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"bust", &cfg.Bust},
		{"goal", &cfg.Goal},
	}
	for _, p := range floats {
		if v := q.Get(p.key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return cfg, fmt.Errorf("invalid %s: %q", p.key, v)
			}
			*p.dst = f
		}
	}

	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid seed: %q", v)
		}
		cfg.Seed = seed
	}
	if v := q.Get("method"); v != "" {
		cfg.Method = montecarlo.Method(v)
	}

	if cfg.Simulations > maxSimulations {
		return cfg, fmt.Errorf("sims must be <= %d", maxSimulations)
	}
	return cfg, nil
}
