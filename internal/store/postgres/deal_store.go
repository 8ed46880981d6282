package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelsh/crossarb/internal/domain"
)

// DealStore implements domain.DealStore using PostgreSQL.
type DealStore struct {
	pool *pgxpool.Pool
}

// NewDealStore creates a new DealStore.
func NewDealStore(pool *pgxpool.Pool) *DealStore {
	return &DealStore{pool: pool}
}

// SaveDeal inserts a deal report and both legs.
func (s *DealStore) SaveDeal(ctx context.Context, r domain.DealReport) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO deals (id, coin, direction, status, size_usd, target_profit, profit_target, profit_real, trigger_venue, trigger_type, counted_at, sent_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.Coin, string(r.Direction), string(r.Status),
		r.SizeUSD, r.TargetProfit, r.ProfitTarget, r.ProfitReal,
		r.TriggerVenue, r.TriggerType, r.CountedAt, r.SentAt, r.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert deal: %w", err)
	}

	for _, leg := range []domain.LegResult{r.Buy, r.Sell} {
		_, err = tx.Exec(ctx, `
			INSERT INTO deal_legs (deal_id, venue, market, side, client_id, exchange_order_id, target_price, fitted_price, real_price, target_size, real_size, placed, place_latency_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			r.ID, leg.Venue, leg.Market, string(leg.Side), leg.ClientID, leg.ExchangeOrderID,
			leg.TargetPrice, leg.FittedPrice, leg.RealPrice, leg.TargetSize, leg.RealSize,
			leg.Placed, leg.PlaceLatency.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("postgres: insert deal leg: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// SaveHedge inserts a hedge report.
func (s *DealStore) SaveHedge(ctx context.Context, r domain.HedgeReport) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO hedges (id, coin, fill_venue, fill_order_id, fill_side, fill_price, fill_size, hedge_venue, hedge_market, hedge_side, hedge_client_id, hedge_order_id, hedge_price, hedge_size, hedge_placed, profit_real, disbalance, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		r.ID, r.Coin, r.Fill.Venue, r.Fill.OrderID, string(r.Fill.Side), r.Fill.Price, r.Fill.Size,
		r.Hedge.Venue, r.Hedge.Market, string(r.Hedge.Side), r.Hedge.ClientID, r.Hedge.ExchangeOrderID,
		r.Hedge.RealPrice, r.Hedge.RealSize, r.Hedge.Placed, r.ProfitReal, r.Disbalance, r.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert hedge: %w", err)
	}
	return nil
}

// RecentDeals returns the most recent deal reports with their legs.
func (s *DealStore) RecentDeals(ctx context.Context, limit int) ([]domain.DealReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, coin, direction, status, size_usd, target_profit, profit_target, profit_real, trigger_venue, trigger_type, counted_at, sent_at, settled_at
		FROM deals ORDER BY settled_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list deals: %w", err)
	}
	defer rows.Close()

	var list []domain.DealReport
	for rows.Next() {
		var r domain.DealReport
		var direction, status string
		if err := rows.Scan(&r.ID, &r.Coin, &direction, &status,
			&r.SizeUSD, &r.TargetProfit, &r.ProfitTarget, &r.ProfitReal,
			&r.TriggerVenue, &r.TriggerType, &r.CountedAt, &r.SentAt, &r.SettledAt); err != nil {
			return nil, err
		}
		r.Direction = domain.Direction(direction)
		r.Status = domain.DealStatus(status)
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range list {
		if err := s.loadLegs(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (s *DealStore) loadLegs(ctx context.Context, r *domain.DealReport) error {
	rows, err := s.pool.Query(ctx, `
		SELECT venue, market, side, client_id, exchange_order_id, target_price, fitted_price, real_price, target_size, real_size, placed, place_latency_ms
		FROM deal_legs WHERE deal_id = $1`, r.ID)
	if err != nil {
		return fmt.Errorf("postgres: get deal legs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg domain.LegResult
		var side string
		var latencyMs int64
		if err := rows.Scan(&leg.Venue, &leg.Market, &side, &leg.ClientID, &leg.ExchangeOrderID,
			&leg.TargetPrice, &leg.FittedPrice, &leg.RealPrice, &leg.TargetSize, &leg.RealSize,
			&leg.Placed, &latencyMs); err != nil {
			return err
		}
		leg.Side = domain.Side(side)
		leg.PlaceLatency = time.Duration(latencyMs) * time.Millisecond
		if leg.Side == domain.SideBuy {
			r.Buy = leg
		} else {
			r.Sell = leg
		}
	}
	return rows.Err()
}
