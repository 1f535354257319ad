package etl

import (
	"fmt"

	"cdp-analytics/models"
)

// PurchaseProfile is a customer joined with purchase stats and favorites.
// Purchases and Favorites are nil for customers who never bought anything.
type PurchaseProfile struct {
	Customer  models.CustomerInfo
	Purchases *PurchaseStats
	Favorites *Favorites
}

// EngagementProfile merges support and web activity. It exists only for
// customers with at least one support interaction.
type EngagementProfile struct {
	Support SupportSummary
	Web     *WebSummary
}

// ComprehensiveProfile is the fully consolidated per-customer record fed to
// the derivation stage.
type ComprehensiveProfile struct {
	PurchaseProfile
	Engagement *EngagementProfile
	Campaign   *CampaignSummary
}

// BuildPurchaseProfiles left-joins purchase stats and favorites onto the
// customer base, keeping base order.
func BuildPurchaseProfiles(customers []models.CustomerInfo, purchases map[int64]PurchaseStats, favs map[int64]Favorites) ([]PurchaseProfile, error) {
	seen := make(map[int64]struct{}, len(customers))
	profiles := make([]PurchaseProfile, 0, len(customers))

	for _, c := range customers {
		if _, dup := seen[c.CustomerID]; dup {
			return nil, fmt.Errorf("%w: customer %d appears twice in the base", ErrCardinality, c.CustomerID)
		}
		seen[c.CustomerID] = struct{}{}

		p := PurchaseProfile{Customer: c}
		if s, ok := purchases[c.CustomerID]; ok {
			p.Purchases = &s
		}
		if f, ok := favs[c.CustomerID]; ok {
			p.Favorites = &f
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// BuildEngagementProfiles is driven by support interactions: web activity of
// customers who never contacted support is not carried forward.
func BuildEngagementProfiles(support map[int64]SupportSummary, web map[int64]WebSummary) map[int64]EngagementProfile {
	out := make(map[int64]EngagementProfile, len(support))
	for id, s := range support {
		e := EngagementProfile{Support: s}
		if w, ok := web[id]; ok {
			e.Web = &w
		}
		out[id] = e
	}
	return out
}

// BuildComprehensiveProfiles merges the purchase and engagement profiles and
// the campaign summary. Output has exactly one entry per purchase profile.
func BuildComprehensiveProfiles(purchase []PurchaseProfile, engagement map[int64]EngagementProfile, campaigns map[int64]CampaignSummary) []ComprehensiveProfile {
	out := make([]ComprehensiveProfile, 0, len(purchase))
	for _, p := range purchase {
		cp := ComprehensiveProfile{PurchaseProfile: p}
		id := p.Customer.CustomerID
		if e, ok := engagement[id]; ok {
			cp.Engagement = &e
		}
		if c, ok := campaigns[id]; ok {
			cp.Campaign = &c
		}
		out = append(out, cp)
	}
	return out
}

// Consolidate runs both sub-merges and the final merge.
func Consolidate(agg *Aggregates) ([]ComprehensiveProfile, error) {
	purchase, err := BuildPurchaseProfiles(agg.Customers, agg.Purchases, agg.Favorites)
	if err != nil {
		return nil, &StageError{Stage: StageConsolidate, Err: err}
	}
	engagement := BuildEngagementProfiles(agg.Support, agg.Web)
	profiles := BuildComprehensiveProfiles(purchase, engagement, agg.Campaigns)

	if len(profiles) != len(agg.Customers) {
		return nil, &StageError{
			Stage: StageConsolidate,
			Err:   fmt.Errorf("%w: %d profiles for %d customers", ErrCardinality, len(profiles), len(agg.Customers)),
		}
	}
	return profiles, nil
}
