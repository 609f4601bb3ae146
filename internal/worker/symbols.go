package worker

import (
	"context"
	"log/slog"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

// maxStreamSymbols is the vendor's free-tier cap per websocket connection.
const maxStreamSymbols = 50

// SymbolSource derives the watched and streamed symbol sets from the
// relational store.
type SymbolSource struct {
	alerts  domain.AlertRepository
	sectors domain.SectorRepository
	logger  *slog.Logger
}

func NewSymbolSource(alerts domain.AlertRepository, sectors domain.SectorRepository) *SymbolSource {
	return &SymbolSource{
		alerts:  alerts,
		sectors: sectors,
		logger:  slog.Default().With("component", "symbol_source"),
	}
}

// Subscription returns the streamer's subscription set: market indexes first,
// then active alert symbols, then sector symbols, deduplicated and truncated
// to the vendor cap.
func (s *SymbolSource) Subscription(ctx context.Context) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(symbols []string) {
		for _, sym := range symbols {
			if len(out) >= maxStreamSymbols {
				return
			}
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	}

	add(domain.IndexSymbols)

	alertSymbols, err := s.alerts.GetActiveSymbols(ctx)
	if err != nil {
		s.logger.Error("failed to load alert symbols", "err", err)
	}
	add(alertSymbols)

	sectorSymbols, err := s.sectors.GetSectorSymbols(ctx)
	if err != nil {
		s.logger.Error("failed to load sector symbols", "err", err)
	}
	add(sectorSymbols)

	return out
}

// Watched returns every symbol the daily refresher must cover: all active
// alert symbols plus all sector symbols, no truncation.
func (s *SymbolSource) Watched(ctx context.Context) []string {
	seen := make(map[string]bool)
	var out []string

	alertSymbols, err := s.alerts.GetActiveSymbols(ctx)
	if err != nil {
		s.logger.Error("failed to load alert symbols", "err", err)
	}
	sectorSymbols, err := s.sectors.GetSectorSymbols(ctx)
	if err != nil {
		s.logger.Error("failed to load sector symbols", "err", err)
	}

	for _, sym := range append(alertSymbols, sectorSymbols...) {
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	return out
}
