package services

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type KPIs struct {
	TotalCustomers     int64   `json:"total_customers"`
	TotalLifetimeValue float64 `json:"total_lifetime_value"`
	AverageOrderValue  float64 `json:"average_order_value"`
	RetentionRate      float64 `json:"retention_rate"`
}

type TopCustomer struct {
	CustomerID         int64   `json:"customer_id"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	TotalLifetimeValue float64 `json:"total_lifetime_value"`
}

// Chart is a rendering-agnostic chart description. Which fields are set
// depends on Type.
type Chart struct {
	Type   string     `json:"type"` // pie, line, bar, gauge, scatter3d
	Title  string     `json:"title"`
	Labels []string   `json:"labels,omitempty"`
	Values []float64  `json:"values,omitempty"`
	Gauge  *Gauge     `json:"gauge,omitempty"`
	Points []RFMPoint `json:"points,omitempty"`
}

type GaugeStep struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
}

type Gauge struct {
	Value     float64     `json:"value"`
	Min       float64     `json:"min"`
	Max       float64     `json:"max"`
	Steps     []GaugeStep `json:"steps"`
	Threshold float64     `json:"threshold"`
}

type RFMPoint struct {
	Recency   int     `json:"recency"`
	Frequency int64   `json:"frequency"`
	Monetary  float64 `json:"monetary"`
}

var satisfactionSteps = []GaugeStep{
	{From: 0, To: 3, Color: "red"},
	{From: 3, To: 7, Color: "yellow"},
	{From: 7, To: 10, Color: "green"},
}

const topCustomersLimit = 5

// MetricsService answers the dashboard queries. Results are cached until the
// next rebuild invalidates them.
type MetricsService struct {
	db     *gorm.DB
	cache  MetricsCache
	logger *zap.Logger
}

func NewMetricsService(db *gorm.DB, cache MetricsCache, logger *zap.Logger) *MetricsService {
	if cache == nil {
		cache = NopCache{}
	}
	return &MetricsService{db: db, cache: cache, logger: logger}
}

// cached serves key from the cache, computing and storing it on a miss.
// The result is stored under the generation read before loading, so a load
// that overlaps an Invalidate lands in a generation nobody reads anymore.
// Cache errors are logged and never fail the request.
func cached[T any](ctx context.Context, s *MetricsService, key string, load func(context.Context) (T, error)) (T, error) {
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Warn("metrics cache generation read failed", zap.String("key", key), zap.Error(err))
		return load(ctx)
	}

	var out T
	hit, err := s.cache.Get(ctx, gen, key, &out)
	if err != nil {
		s.logger.Warn("metrics cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return out, nil
	}

	out, err = load(ctx)
	if err != nil {
		return out, err
	}
	if err := s.cache.Set(ctx, gen, key, out); err != nil {
		s.logger.Warn("metrics cache write failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *MetricsService) KPIs(ctx context.Context) (KPIs, error) {
	return cached(ctx, s, "kpis", func(ctx context.Context) (KPIs, error) {
		var k KPIs
		err := s.db.WithContext(ctx).Raw(`
			SELECT COUNT(DISTINCT customer_id) AS total_customers,
			       COALESCE(SUM(total_lifetime_value), 0)::float8 AS total_lifetime_value,
			       COALESCE(AVG(average_order_value), 0)::float8 AS average_order_value,
			       COALESCE(COUNT(*) FILTER (WHERE total_purchases > 1)::float8 / NULLIF(COUNT(*), 0), 0) AS retention_rate
			FROM customer_360
		`).Scan(&k).Error
		if err != nil {
			return k, err
		}
		k.TotalLifetimeValue = round2(k.TotalLifetimeValue)
		k.AverageOrderValue = round2(k.AverageOrderValue)
		k.RetentionRate = round2(k.RetentionRate * 100)
		return k, nil
	})
}

type labelValue struct {
	Label string
	Value float64
}

func (s *MetricsService) distribution(ctx context.Context, query string) ([]string, []float64, error) {
	var rows []labelValue
	if err := s.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, nil, err
	}
	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, r.Label)
		values = append(values, r.Value)
	}
	return labels, values, nil
}

func (s *MetricsService) CustomerSegments(ctx context.Context) (Chart, error) {
	return cached(ctx, s, "customer_segments", func(ctx context.Context) (Chart, error) {
		labels, values, err := s.distribution(ctx, `
			SELECT customer_segment AS label, COUNT(*)::float8 AS value
			FROM customer_360
			GROUP BY customer_segment
			ORDER BY customer_segment`)
		return Chart{Type: "pie", Title: "Customer Segment Distribution", Labels: labels, Values: values}, err
	})
}

func (s *MetricsService) ChurnRisk(ctx context.Context) (Chart, error) {
	return cached(ctx, s, "churn_risk", func(ctx context.Context) (Chart, error) {
		labels, values, err := s.distribution(ctx, `
			SELECT churn_risk_score AS label, COUNT(*)::float8 AS value
			FROM customer_360
			GROUP BY churn_risk_score
			ORDER BY churn_risk_score`)
		return Chart{Type: "pie", Title: "Churn Risk Distribution", Labels: labels, Values: values}, err
	})
}

func (s *MetricsService) MonthlyRevenue(ctx context.Context) (Chart, error) {
	return cached(ctx, s, "monthly_revenue", func(ctx context.Context) (Chart, error) {
		var rows []struct {
			Month   time.Time
			Revenue float64
		}
		err := s.db.WithContext(ctx).Raw(`
			SELECT DATE_TRUNC('month', purchase_date)::date AS month,
			       SUM(total_amount)::float8 AS revenue
			FROM purchase_transactions
			WHERE purchase_date IS NOT NULL
			GROUP BY month
			ORDER BY month`).Scan(&rows).Error
		if err != nil {
			return Chart{}, err
		}
		chart := Chart{Type: "line", Title: "Monthly Revenue Trend"}
		for _, r := range rows {
			chart.Labels = append(chart.Labels, r.Month.Format("2006-01"))
			chart.Values = append(chart.Values, round2(r.Revenue))
		}
		return chart, nil
	})
}

func (s *MetricsService) TopCustomers(ctx context.Context) ([]TopCustomer, error) {
	return cached(ctx, s, "top_customers", func(ctx context.Context) ([]TopCustomer, error) {
		var top []TopCustomer
		err := s.db.WithContext(ctx).Raw(`
			SELECT customer_id, COALESCE(first_name, '') AS first_name, COALESCE(last_name, '') AS last_name,
			       total_lifetime_value::float8 AS total_lifetime_value
			FROM customer_360
			WHERE total_lifetime_value IS NOT NULL
			ORDER BY total_lifetime_value DESC, customer_id
			LIMIT ?`, topCustomersLimit).Scan(&top).Error
		return top, err
	})
}

func (s *MetricsService) ProductCategoryPerformance(ctx context.Context) (Chart, error) {
	return cached(ctx, s, "product_category_performance", func(ctx context.Context) (Chart, error) {
		labels, values, err := s.distribution(ctx, `
			SELECT COALESCE(pc.category, 'Uncategorized') AS label, SUM(pt.total_amount)::float8 AS value
			FROM purchase_transactions pt
			JOIN product_catalog pc ON pt.product_id = pc.product_id
			GROUP BY label
			ORDER BY value DESC`)
		return Chart{Type: "bar", Title: "Product Category Performance", Labels: labels, Values: values}, err
	})
}

func (s *MetricsService) CustomerSatisfaction(ctx context.Context) (Chart, error) {
	return cached(ctx, s, "customer_satisfaction", func(ctx context.Context) (Chart, error) {
		var avg float64
		err := s.db.WithContext(ctx).Raw(
			`SELECT COALESCE(AVG(average_satisfaction_score), 0)::float8 FROM customer_360`,
		).Scan(&avg).Error
		if err != nil {
			return Chart{}, err
		}
		value := round2(avg)
		return Chart{
			Type:  "gauge",
			Title: "Customer Satisfaction Score",
			Gauge: &Gauge{Value: value, Min: 0, Max: 10, Steps: satisfactionSteps, Threshold: value},
		}, nil
	})
}

func (s *MetricsService) RFMSegmentation(ctx context.Context) (Chart, error) {
	return cached(ctx, s, "rfm_segmentation", func(ctx context.Context) (Chart, error) {
		var points []RFMPoint
		err := s.db.WithContext(ctx).Raw(`
			SELECT recency_score AS recency, frequency_score AS frequency, monetary_score::float8 AS monetary
			FROM customer_360
			WHERE recency_score IS NOT NULL
			ORDER BY customer_id`).Scan(&points).Error
		return Chart{Type: "scatter3d", Title: "RFM Segmentation", Points: points}, err
	})
}

// Invalidate drops cached metrics so the next read sees the new snapshot.
func (s *MetricsService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}
