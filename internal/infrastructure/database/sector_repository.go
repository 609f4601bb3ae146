package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/romanzzaa/cortex-alerts/internal/domain"
)

type SectorRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewSectorRepository(db *DB) *SectorRepository {
	return &SectorRepository{
		db:     db,
		logger: slog.Default().With("component", "sector_repo"),
	}
}

// GetActiveStrategies loads every active strategy with its sector and the
// sector's stock basket attached. Baskets are loaded explicitly; there is no
// lazy navigation.
func (r *SectorRepository) GetActiveStrategies(ctx context.Context) ([]domain.SectorStrategy, error) {
	query := `
		SELECT st.id, st.user_id, st.sector_id, st.is_active,
			   st.percent_majority, st.trend_threshold, st.laggard_threshold,
			   st.last_triggered_at, st.created_at,
			   s.name, s.color, s.icon, s.user_id
		FROM sector_strategies st
		JOIN sectors s ON s.id = st.sector_id
		WHERE st.is_active = TRUE
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active strategies: %w", err)
	}
	defer rows.Close()

	var strategies []domain.SectorStrategy
	var sectorIDs []int64
	for rows.Next() {
		var (
			st            domain.SectorStrategy
			sec           domain.Sector
			lastTriggered sql.NullTime
			color, icon   sql.NullString
		)
		err := rows.Scan(
			&st.ID, &st.UserID, &st.SectorID, &st.IsActive,
			&st.PercentMajority, &st.TrendThreshold, &st.LaggardThreshold,
			&lastTriggered, &st.CreatedAt,
			&sec.Name, &color, &icon, &sec.UserID,
		)
		if err != nil {
			return nil, fmt.Errorf("strategy scan error: %w", err)
		}
		st.LastTriggeredAt = timePtr(lastTriggered)
		sec.ID = st.SectorID
		sec.Color = color.String
		sec.Icon = icon.String
		st.Sector = &sec

		strategies = append(strategies, st)
		sectorIDs = append(sectorIDs, st.SectorID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(strategies) == 0 {
		return nil, nil
	}

	stocksBySector, err := r.getStocks(ctx, sectorIDs)
	if err != nil {
		return nil, err
	}
	for i := range strategies {
		strategies[i].Sector.Stocks = stocksBySector[strategies[i].SectorID]
	}
	return strategies, nil
}

func (r *SectorRepository) getStocks(ctx context.Context, sectorIDs []int64) (map[int64][]domain.SectorStock, error) {
	query := `
		SELECT id, sector_id, symbol, stock_name
		FROM sector_stocks
		WHERE sector_id = ANY($1)
		ORDER BY sector_id, id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(sectorIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get sector stocks: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]domain.SectorStock)
	for rows.Next() {
		var (
			stock domain.SectorStock
			name  sql.NullString
		)
		if err := rows.Scan(&stock.ID, &stock.SectorID, &stock.Symbol, &name); err != nil {
			return nil, fmt.Errorf("sector stock scan error: %w", err)
		}
		stock.StockName = name.String
		result[stock.SectorID] = append(result[stock.SectorID], stock)
	}
	return result, rows.Err()
}

func (r *SectorRepository) GetSectorSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM sector_stocks ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sector symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func (r *SectorRepository) MarkStrategyTriggered(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE sector_strategies SET last_triggered_at = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to mark strategy %d triggered: %w", id, err)
	}
	return nil
}

// --- Seeder support ---

func (r *SectorRepository) CreateSector(ctx context.Context, sector *domain.Sector) error {
	query := `
		INSERT INTO sectors (user_id, name, color, icon, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		sector.UserID, sector.Name, nullString(sector.Color), nullString(sector.Icon),
	).Scan(&sector.ID)
	if err != nil {
		return fmt.Errorf("failed to create sector: %w", err)
	}
	return nil
}

func (r *SectorRepository) AddStock(ctx context.Context, stock *domain.SectorStock) error {
	symbol, err := domain.ParseSymbol(stock.Symbol)
	if err != nil {
		return err
	}
	stock.Symbol = symbol.String()

	query := `
		INSERT INTO sector_stocks (sector_id, symbol, stock_name, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		stock.SectorID, stock.Symbol, nullString(stock.StockName),
	).Scan(&stock.ID)
	if err != nil {
		return fmt.Errorf("failed to add sector stock: %w", err)
	}
	return nil
}

func (r *SectorRepository) CreateStrategy(ctx context.Context, st *domain.SectorStrategy) error {
	query := `
		INSERT INTO sector_strategies (
			user_id, sector_id, is_active, percent_majority, trend_threshold,
			laggard_threshold, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		st.UserID, st.SectorID, st.IsActive, st.PercentMajority,
		st.TrendThreshold, st.LaggardThreshold,
	).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("failed to create strategy: %w", err)
	}
	return nil
}
