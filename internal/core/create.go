package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avior/policyvault/internal/audit"
	"github.com/avior/policyvault/internal/models"
	"github.com/avior/policyvault/internal/store"
)

// CreateParams describes a new document.
type CreateParams struct {
	Kind        string // models.KindPolicy (default) or models.KindProcedure
	CategoryID  string
	Number      int // 0 assigns the next free number in the category range
	Title       string
	Description string
	Sections    []models.Section
	OwnerID     string
	ViewRoles   []string
	AckRoles    []string
	RequiresAck bool
	ActorID     string
}

// CreateDocument creates a document at version 1.0 in draft status. Number
// reservation and the insert run in one transaction, so concurrent creates
// in the same category cannot be assigned the same number.
func CreateDocument(ctx context.Context, st *store.Store, aud *audit.Ledger, p CreateParams) (*models.Document, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	kind := p.Kind
	if kind == "" {
		kind = models.KindPolicy
	}
	if kind != models.KindPolicy && kind != models.KindProcedure {
		return nil, fmt.Errorf("%w: unknown document kind %q", ErrValidation, kind)
	}

	var doc *models.Document
	err := st.WithTx(func(tx *store.Tx) error {
		cat, err := tx.GetCategory(p.CategoryID)
		if err != nil {
			return err
		}

		number := p.Number
		if number == 0 {
			number, err = nextNumber(tx, cat)
			if err != nil {
				return err
			}
		} else if !cat.InRange(number) {
			return fmt.Errorf("%w: number %d is outside range %d-%d of category %s",
				ErrValidation, number, cat.RangeStart, cat.RangeEnd, cat.ID)
		}

		now := time.Now().UTC()
		doc = &models.Document{
			ID:          uuid.New().String(),
			Kind:        kind,
			CategoryID:  cat.ID,
			Number:      number,
			Title:       p.Title,
			Description: p.Description,
			Sections:    p.Sections,
			Status:      models.StatusDraft,
			Version:     models.InitialVersion.String(),
			OwnerID:     p.OwnerID,
			ViewRoles:   p.ViewRoles,
			AckRoles:    p.AckRoles,
			RequiresAck: p.RequiresAck,
			CreatedAt:   now,
			CreatedBy:   p.ActorID,
			UpdatedAt:   now,
			UpdatedBy:   p.ActorID,
		}
		return tx.InsertDocument(doc)
	})
	if err != nil {
		return nil, err
	}

	if err := aud.Append(p.ActorID, audit.ActionCreate, doc.ID, doc.Ref()); err != nil {
		return doc, fmt.Errorf("append audit entry: %w", err)
	}
	return doc, nil
}
