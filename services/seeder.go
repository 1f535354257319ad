package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cdp-analytics/models"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	seedCategories   = []string{"Home Care", "Personal Care", "Baby Care", "Fabric Care", "Hair Care"}
	seedBrands       = []string{"Tide", "Pampers", "Gillette", "Pantene", "Oral-B", "Olay", "Dawn", "Bounty", "Charmin", "Crest"}
	seedInteractions = []string{"complaint", "inquiry", "feedback"}
	seedResolutions  = []string{"resolved", "pending", "escalated"}
	seedChannels     = []string{"email", "social media", "TV", "print", "radio"}
	seedAudiences    = []string{"all", "young adults", "parents", "seniors"}
	seedResponses    = []string{models.ResponseClick, models.ResponsePurchase, models.ResponseUnsubscribe}
	seedSources      = []string{"organic search", "paid ad", "direct", "social media", "email"}
)

type SeedCounts struct {
	Customers           int
	Products            int
	Campaigns           int
	Purchases           int
	SupportInteractions int
	CampaignResponses   int
	WebSessions         int
}

func DefaultSeedCounts() SeedCounts {
	return SeedCounts{
		Customers:           1000,
		Products:            100,
		Campaigns:           20,
		Purchases:           5000,
		SupportInteractions: 2000,
		CampaignResponses:   10000,
		WebSessions:         20000,
	}
}

func (c SeedCounts) Total() int {
	return c.Customers + c.Products + c.Campaigns + c.Purchases +
		c.SupportInteractions + c.CampaignResponses + c.WebSessions
}

// ProgressFunc is told how many rows of table were just written. It is
// called from several goroutines.
type ProgressFunc func(table string, rows int)

// Seeder fills the raw tables with fake data. Parent tables are written and
// committed before any child table, whose foreign keys are drawn from the
// ids the parents were actually assigned.
type Seeder struct {
	db        *gorm.DB
	faker     *gofakeit.Faker
	batchSize int
	now       time.Time
	logger    *zap.Logger
	Progress  ProgressFunc
}

func NewSeeder(db *gorm.DB, seed int64, batchSize int, logger *zap.Logger) *Seeder {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Seeder{
		db:        db,
		faker:     gofakeit.New(seed),
		batchSize: batchSize,
		now:       time.Now().UTC(),
		logger:    logger,
	}
}

// Reset empties every raw table and restarts their id sequences.
func (s *Seeder) Reset(ctx context.Context) error {
	stmt := "TRUNCATE TABLE " + strings.Join(models.RawTables, ", ") + " RESTART IDENTITY CASCADE"
	return s.db.WithContext(ctx).Exec(stmt).Error
}

func (s *Seeder) Seed(ctx context.Context, counts SeedCounts) error {
	customers := s.customers(counts.Customers)
	products := s.products(counts.Products)
	campaigns := s.campaigns(counts.Campaigns)

	parents, pctx := errgroup.WithContext(ctx)
	parents.Go(func() error { return insertBatches(pctx, s, customers) })
	parents.Go(func() error { return insertBatches(pctx, s, products) })
	parents.Go(func() error { return insertBatches(pctx, s, campaigns) })
	if err := parents.Wait(); err != nil {
		return fmt.Errorf("seed parent tables: %w", err)
	}
	s.logger.Info("parent tables seeded",
		zap.Int("customers", len(customers)),
		zap.Int("products", len(products)),
		zap.Int("campaigns", len(campaigns)))

	customerIDs := make([]int64, len(customers))
	for i, c := range customers {
		customerIDs[i] = c.CustomerID
	}
	productIDs := make([]int64, len(products))
	for i, p := range products {
		productIDs[i] = p.ProductID
	}
	campaignIDs := make([]int64, len(campaigns))
	for i, c := range campaigns {
		campaignIDs[i] = c.CampaignID
	}

	purchases := s.purchases(counts.Purchases, customerIDs, productIDs)
	support := s.supportInteractions(counts.SupportInteractions, customerIDs, productIDs)
	responses := s.responses(counts.CampaignResponses, customerIDs, campaignIDs)
	sessions := s.sessions(counts.WebSessions, customerIDs)

	children, cctx := errgroup.WithContext(ctx)
	children.Go(func() error { return insertBatches(cctx, s, purchases) })
	children.Go(func() error { return insertBatches(cctx, s, support) })
	children.Go(func() error { return insertBatches(cctx, s, responses) })
	children.Go(func() error { return insertBatches(cctx, s, sessions) })
	if err := children.Wait(); err != nil {
		return fmt.Errorf("seed child tables: %w", err)
	}
	s.logger.Info("child tables seeded",
		zap.Int("purchases", len(purchases)),
		zap.Int("support_interactions", len(support)),
		zap.Int("campaign_responses", len(responses)),
		zap.Int("web_sessions", len(sessions)))
	return nil
}

type tabler interface {
	TableName() string
}

// insertBatches writes rows in one transaction, batch by batch, so a table
// is either fully seeded or not at all.
func insertBatches[T tabler](ctx context.Context, s *Seeder, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	table := rows[0].TableName()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(rows); start += s.batchSize {
			end := start + s.batchSize
			if end > len(rows) {
				end = len(rows)
			}
			chunk := rows[start:end]
			if err := tx.Create(&chunk).Error; err != nil {
				return fmt.Errorf("insert %s: %w", table, err)
			}
			if s.Progress != nil {
				s.Progress(table, len(chunk))
			}
		}
		return nil
	})
}

func (s *Seeder) date(from time.Time) time.Time {
	d := s.faker.DateRange(from, s.now)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func (s *Seeder) pick(ids []int64) int64 {
	return ids[s.faker.Number(0, len(ids)-1)]
}

func (s *Seeder) customers(n int) []models.CustomerInfo {
	rows := make([]models.CustomerInfo, n)
	for i := range rows {
		dob := s.faker.DateRange(s.now.AddDate(-80, 0, 0), s.now.AddDate(-18, 0, 0))
		dob = time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
		registered := s.date(s.now.AddDate(-5, 0, 0))
		rows[i] = models.CustomerInfo{
			FirstName:        ptr(s.faker.FirstName()),
			LastName:         ptr(s.faker.LastName()),
			Email:            ptr(s.faker.Email()),
			PhoneNumber:      ptr(s.faker.Phone()),
			DateOfBirth:      &dob,
			RegistrationDate: &registered,
		}
	}
	return rows
}

func (s *Seeder) products(n int) []models.ProductCatalog {
	rows := make([]models.ProductCatalog, n)
	for i := range rows {
		launched := s.date(s.now.AddDate(-3, 0, 0))
		rows[i] = models.ProductCatalog{
			ProductName: capitalize(s.faker.Word()) + " " + capitalize(s.faker.Word()),
			Category:    s.faker.RandomString(seedCategories),
			Brand:       s.faker.RandomString(seedBrands),
			Price:       s.faker.Price(5, 100),
			LaunchDate:  &launched,
		}
	}
	return rows
}

func (s *Seeder) campaigns(n int) []models.MarketingCampaign {
	rows := make([]models.MarketingCampaign, n)
	for i := range rows {
		start := s.date(s.now.AddDate(0, -6, 0))
		end := start.AddDate(0, 0, s.faker.Number(7, 90))
		rows[i] = models.MarketingCampaign{
			CampaignName:   s.faker.BuzzWord() + " " + s.faker.BS(),
			StartDate:      &start,
			EndDate:        &end,
			Channel:        s.faker.RandomString(seedChannels),
			TargetAudience: s.faker.RandomString(seedAudiences),
		}
	}
	return rows
}

func (s *Seeder) purchases(n int, customers, products []int64) []models.PurchaseTransaction {
	if len(customers) == 0 || len(products) == 0 {
		return nil
	}
	rows := make([]models.PurchaseTransaction, n)
	for i := range rows {
		rows[i] = models.PurchaseTransaction{
			CustomerID:   s.pick(customers),
			ProductID:    s.pick(products),
			PurchaseDate: s.date(s.now.AddDate(-1, 0, 0)),
			Quantity:     s.faker.Number(1, 5),
			TotalAmount:  s.faker.Price(10, 500),
			StoreID:      s.faker.Number(1, 50),
		}
	}
	return rows
}

func (s *Seeder) supportInteractions(n int, customers, products []int64) []models.SupportInteraction {
	if len(customers) == 0 || len(products) == 0 {
		return nil
	}
	rows := make([]models.SupportInteraction, n)
	for i := range rows {
		product := s.pick(products)
		rows[i] = models.SupportInteraction{
			CustomerID:        s.pick(customers),
			InteractionDate:   s.date(s.now.AddDate(-1, 0, 0)),
			InteractionType:   s.faker.RandomString(seedInteractions),
			ProductID:         &product,
			ResolutionStatus:  s.faker.RandomString(seedResolutions),
			SatisfactionScore: s.faker.Number(1, 10),
		}
	}
	return rows
}

func (s *Seeder) responses(n int, customers, campaigns []int64) []models.CampaignResponse {
	if len(customers) == 0 || len(campaigns) == 0 {
		return nil
	}
	rows := make([]models.CampaignResponse, n)
	for i := range rows {
		rows[i] = models.CampaignResponse{
			CampaignID:   s.pick(campaigns),
			CustomerID:   s.pick(customers),
			ResponseDate: s.date(s.now.AddDate(0, -6, 0)),
			ResponseType: s.faker.RandomString(seedResponses),
		}
	}
	return rows
}

func (s *Seeder) sessions(n int, customers []int64) []models.WebSession {
	if len(customers) == 0 {
		return nil
	}
	rows := make([]models.WebSession, n)
	for i := range rows {
		rows[i] = models.WebSession{
			CustomerID:  s.pick(customers),
			VisitDate:   s.date(s.now.AddDate(-1, 0, 0)),
			PagesViewed: s.faker.Number(1, 20),
			TimeSpent:   s.faker.Number(30, 1800),
			Source:      s.faker.RandomString(seedSources),
		}
	}
	return rows
}
