package crm

import "time"

// Input is everything one pipeline run reads.
type Input struct {
	OrgID    string
	Orders   []OrderRecord
	Records  []CustomerRecord
	Spending []SpendingSummary
	Now      time.Time
}

// Compute runs merge, derivation, classification, rollup and ordering over a
// fully fetched input. It performs no I/O and is deterministic for a fixed Now.
func Compute(in Input, classifier *Classifier) Result {
	profiles := MergeProfiles(in.OrgID, in.Orders, in.Records, in.Now)
	if len(in.Spending) > 0 {
		profiles = ApplySpending(profiles, in.Spending)
	}
	return Derive(profiles, in.Now, classifier)
}

// Derive recomputes every derived field from the order aggregates already on
// the profiles. Used after enrichment changes those aggregates.
func Derive(profiles []CustomerProfile, now time.Time, classifier *Classifier) Result {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	customers := make([]CustomerProfile, len(profiles))
	for i, p := range profiles {
		customers[i] = classifier.Apply(p, now)
	}
	stats := Rollup(customers, now)
	SortByLastOrder(customers)
	return Result{Customers: customers, Stats: stats}
}

// Apply derives metrics for one profile and assigns its segment.
func (c *Classifier) Apply(p CustomerProfile, now time.Time) CustomerProfile {
	p = DeriveMetrics(p, now)
	p.Segment = c.Classify(InputsFrom(p))
	return p
}
