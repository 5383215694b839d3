package crm

import (
	"strings"
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/shopspring/decimal"
)

// NormalizeEmail is the identity key for a customer within an org.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitName turns a free-form contact name into first and last names. The
// first token is the first name, everything after it the last name.
func SplitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

type accumulator struct {
	profile CustomerProfile
	spent   decimal.Decimal
}

// MergeProfiles joins orders with CRM records into one profile per lowercased
// email. Orders without an email are dropped, a missing order date counts as
// now, and CRM records never matched by an order become zero-order profiles.
// Derived metrics and segments are not computed here.
func MergeProfiles(orgID string, orders []OrderRecord, records []CustomerRecord, now time.Time) []CustomerProfile {
	byEmail, recordOrder := indexRecords(records)

	seen := make(map[string]*accumulator, len(orders))
	ordered := make([]string, 0, len(orders)+len(recordOrder))

	for _, order := range orders {
		email := NormalizeEmail(order.CustomerEmail)
		if email == "" {
			continue
		}
		placed := now
		if order.CreatedAt != nil && !order.CreatedAt.IsZero() {
			placed = *order.CreatedAt
		}

		acc, ok := seen[email]
		if !ok {
			acc = &accumulator{profile: seedProfile(orgID, email, byEmail[email], order)}
			first, last := placed, placed
			acc.profile.FirstOrderDate = &first
			acc.profile.LastOrderDate = &last
			seen[email] = acc
			ordered = append(ordered, email)
		} else {
			if placed.Before(*acc.profile.FirstOrderDate) {
				first := placed
				acc.profile.FirstOrderDate = &first
			}
			if placed.After(*acc.profile.LastOrderDate) {
				last := placed
				acc.profile.LastOrderDate = &last
			}
		}
		acc.profile.OrderCount++
		acc.spent = acc.spent.Add(order.TotalAmount)
	}

	for _, email := range recordOrder {
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = &accumulator{profile: seedProfile(orgID, email, byEmail[email], OrderRecord{})}
		ordered = append(ordered, email)
	}

	profiles := make([]CustomerProfile, 0, len(ordered))
	for _, email := range ordered {
		acc := seen[email]
		p := acc.profile
		p.TotalSpent = acc.spent.InexactFloat64()
		p.UpdatedAt = now
		p.CreatedAt = createdAtFor(byEmail[email], p.FirstOrderDate, now)
		profiles = append(profiles, p)
	}
	return profiles
}

// indexRecords keys records by normalized email. Duplicate emails keep the last
// record while preserving the position of the first one.
func indexRecords(records []CustomerRecord) (map[string]*CustomerRecord, []string) {
	byEmail := make(map[string]*CustomerRecord, len(records))
	order := make([]string, 0, len(records))
	for i := range records {
		email := NormalizeEmail(records[i].Email)
		if email == "" {
			continue
		}
		if _, ok := byEmail[email]; !ok {
			order = append(order, email)
		}
		byEmail[email] = &records[i]
	}
	return byEmail, order
}

func seedProfile(orgID, email string, record *CustomerRecord, order OrderRecord) CustomerProfile {
	p := CustomerProfile{
		ID:                  email,
		OrgID:               orgID,
		Email:               email,
		Segment:             enums.SegmentNew,
		Tier:                enums.TierBronze,
		PriceRange:          enums.PriceRangeMid,
		PreferredCategories: []string{},
		PreferredProducts:   []string{},
		CustomTags:          []string{},
	}

	if record == nil {
		p.FirstName, p.LastName = SplitName(order.CustomerName)
		p.Phone = strings.TrimSpace(order.CustomerPhone)
		p.DisplayName = displayName(p.FirstName, p.LastName, "", email)
		return p
	}

	if id := strings.TrimSpace(record.ID); id != "" {
		p.ID = id
	}
	p.FirstName = strings.TrimSpace(record.FirstName)
	p.LastName = strings.TrimSpace(record.LastName)
	if p.FirstName == "" && p.LastName == "" {
		p.FirstName, p.LastName = SplitName(order.CustomerName)
	}
	p.Phone = strings.TrimSpace(record.Phone)
	if p.Phone == "" {
		p.Phone = strings.TrimSpace(order.CustomerPhone)
	}
	p.DisplayName = displayName(p.FirstName, p.LastName, record.DisplayName, email)

	if record.PriceRange.IsValid() {
		p.PriceRange = record.PriceRange
	}
	p.PreferredCategories = cloneStrings(record.PreferredCategories)
	p.PreferredProducts = cloneStrings(record.PreferredProducts)
	p.CustomTags = cloneStrings(record.CustomTags)
	if record.BirthDate != nil {
		birth := *record.BirthDate
		p.BirthDate = &birth
	}
	if len(record.Preferences) > 0 {
		p.Preferences = make(map[string]string, len(record.Preferences))
		for k, v := range record.Preferences {
			p.Preferences[k] = v
		}
	}
	p.Source = record.Source
	p.Notes = record.Notes
	return p
}

func displayName(first, last, explicit, email string) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	if name := strings.TrimSpace(first + " " + last); name != "" {
		return name
	}
	return email
}

func createdAtFor(record *CustomerRecord, firstOrder *time.Time, now time.Time) time.Time {
	if record != nil && record.CreatedAt != nil && !record.CreatedAt.IsZero() {
		return *record.CreatedAt
	}
	if firstOrder != nil {
		return *firstOrder
	}
	return now
}

func cloneStrings(in []string) []string {
	out := make([]string, 0, len(in))
	return append(out, in...)
}
