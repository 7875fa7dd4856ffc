package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/store"
)

// SeedCategories is the canonical numbering namespace set. The seed data
// lives here and nowhere else; every surface reads it from this package.
var SeedCategories = []models.Category{
	{ID: "RPAS", Name: "Remote Piloted Aircraft Systems", RangeStart: 1000, RangeEnd: 1999},
	{ID: "CRM", Name: "Crew Resource Management", RangeStart: 2000, RangeEnd: 2999},
	{ID: "HSE", Name: "Health, Safety and Environment", RangeStart: 3000, RangeEnd: 3999},
}

// seedDocuments is the canonical starter policy set.
var seedDocuments = []CreateParams{
	{
		Kind:        models.KindPolicy,
		CategoryID:  "RPAS",
		Number:      1001,
		Title:       "Drone Operations Policy",
		Description: "Rules governing remote piloted aircraft operations, pilot currency, and flight authorization.",
		Sections: []models.Section{
			{Heading: "Purpose", Body: "Defines the conditions under which company drones may be operated."},
			{Heading: "Flight Authorization", Body: "All flights require an approved flight plan and an active operating area."},
			{Heading: "Pilot Currency", Body: "Pilots must have logged a flight within the preceding 90 days."},
		},
		OwnerID:     "ops-manager",
		AckRoles:    []string{"pilot", "observer"},
		RequiresAck: true,
	},
	{
		Kind:        models.KindPolicy,
		CategoryID:  "RPAS",
		Number:      1002,
		Title:       "Battery Handling Policy",
		Description: "Storage, charging, and transport requirements for lithium polymer flight batteries.",
		Sections: []models.Section{
			{Heading: "Storage", Body: "Batteries are stored at 40-60% charge in fire-rated containers."},
			{Heading: "Charging", Body: "Charging is attended at all times and logged per battery serial."},
		},
		OwnerID:     "maintenance-lead",
		AckRoles:    []string{"pilot", "maintenance"},
		RequiresAck: true,
	},
	{
		Kind:        models.KindPolicy,
		CategoryID:  "CRM",
		Number:      2001,
		Title:       "Crew Fatigue Management Policy",
		Description: "Duty time limits and fatigue reporting expectations for field crews.",
		Sections: []models.Section{
			{Heading: "Duty Limits", Body: "Maximum 10 hours of field duty in any 24-hour period."},
			{Heading: "Reporting", Body: "Crew members report fatigue concerns without penalty."},
		},
		OwnerID:     "safety-officer",
		RequiresAck: true,
	},
	{
		Kind:        models.KindProcedure,
		CategoryID:  "HSE",
		Number:      3001,
		Title:       "Incident Reporting Procedure",
		Description: "Steps for reporting and escalating safety incidents and near misses.",
		Sections: []models.Section{
			{Heading: "Immediate Actions", Body: "Secure the scene and render aid before any reporting step."},
			{Heading: "Notification", Body: "Notify the safety officer within 2 hours of the occurrence."},
			{Heading: "Written Report", Body: "Submit the incident form within 72 hours."},
		},
		OwnerID:     "safety-officer",
		AckRoles:    nil, // all roles
		RequiresAck: true,
	},
}

// SeedResult reports what a seed run created.
type SeedResult struct {
	CategoriesCreated int
	DocumentsCreated  int
	Skipped           int
}

// Seed loads the canonical categories and starter documents. Already-seeded
// records are skipped, so the call is idempotent.
func Seed(ctx context.Context, st *store.Store, aud *audit.Ledger) (*SeedResult, error) {
	res := &SeedResult{}

	for _, cat := range SeedCategories {
		c := cat
		c.CreatedAt = time.Now().UTC()
		err := st.CreateCategory(&c)
		if errors.Is(err, ErrAlreadyExists) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed category %s: %w", cat.ID, err)
		}
		res.CategoriesCreated++
	}

	for _, p := range seedDocuments {
		p.ActorID = "seed"
		doc, err := CreateDocument(ctx, st, aud, p)
		if errors.Is(err, ErrAlreadyExists) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed document %s-%d: %w", p.CategoryID, p.Number, err)
		}
		if err := aud.Append("seed", audit.ActionSeed, doc.ID, doc.Ref()); err != nil {
			return res, fmt.Errorf("append audit entry: %w", err)
		}
		res.DocumentsCreated++
	}

	return res, nil
}
