package ingest

import (
	"log/slog"
	"time"
)

type Option func(i *Ingestor)

// WithLogger specifies the logger for the ingestor
func WithLogger(l *slog.Logger) Option {
	return func(i *Ingestor) {
		i.logger = l
	}
}

// WithGate specifies the run gate.
// Defaults to a 60s cooldown gate
func WithGate(g *Gate) Option {
	return func(i *Ingestor) {
		i.gate = g
	}
}

// WithClock specifies the ingestor's time source
func WithClock(clock func() time.Time) Option {
	return func(i *Ingestor) {
		i.clock = clock
	}
}

// WithTopN specifies how many ranked venues a run retains.
// Defaults to 20
func WithTopN(topN int) Option {
	return func(i *Ingestor) {
		i.topN = topN
	}
}

// WithAssetSymbol specifies the tracked asset symbol.
// Defaults to XDC
func WithAssetSymbol(symbol string) Option {
	return func(i *Ingestor) {
		i.symbol = symbol
	}
}
