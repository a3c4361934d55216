package domain

import (
	"math"
	"strings"

	"github.com/paperloop/paperloop-backend/pkg/errors"
)

// PaperType names one recovered-material bucket
type PaperType string

const (
	PaperCarton      PaperType = "carton"
	PaperMixed       PaperType = "mixed"
	PaperSortedWhite PaperType = "sw"
	PaperSortedColor PaperType = "sc"
	PaperNewspaper   PaperType = "np"
)

// AllPaperTypes lists the buckets in display order
var AllPaperTypes = []PaperType{PaperCarton, PaperMixed, PaperSortedWhite, PaperSortedColor, PaperNewspaper}

var paperTypeAliases = map[string]PaperType{
	"sorted-white": PaperSortedWhite,
	"sorted_white": PaperSortedWhite,
	"sorted-color": PaperSortedColor,
	"sorted_color": PaperSortedColor,
	"newspaper":    PaperNewspaper,
}

// ParsePaperType accepts the short bucket keys and their long names
func ParsePaperType(raw string) (PaperType, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := paperTypeAliases[normalized]; ok {
		return alias, nil
	}

	for _, t := range AllPaperTypes {
		if string(t) == normalized {
			return t, nil
		}
	}
	return "", errors.Validation(map[string]string{
		"paper_type": "must be one of: carton, mixed, sw, sc, np",
	})
}

// PaperTypes holds the per-material collected quantities of one session
type PaperTypes struct {
	Carton      float64 `json:"carton"`
	Mixed       float64 `json:"mixed"`
	SortedWhite float64 `json:"sw"`
	SortedColor float64 `json:"sc"`
	Newspaper   float64 `json:"np"`
}

// Total is the sum of all five buckets
func (p PaperTypes) Total() float64 {
	return p.Carton + p.Mixed + p.SortedWhite + p.SortedColor + p.Newspaper
}

// Get returns the quantity of one bucket
func (p PaperTypes) Get(t PaperType) float64 {
	switch t {
	case PaperCarton:
		return p.Carton
	case PaperMixed:
		return p.Mixed
	case PaperSortedWhite:
		return p.SortedWhite
	case PaperSortedColor:
		return p.SortedColor
	case PaperNewspaper:
		return p.Newspaper
	}
	return 0
}

// Set replaces the quantity of one bucket
func (p *PaperTypes) Set(t PaperType, quantity float64) error {
	if err := validateQuantity(string(t), quantity); err != nil {
		return err
	}

	switch t {
	case PaperCarton:
		p.Carton = quantity
	case PaperMixed:
		p.Mixed = quantity
	case PaperSortedWhite:
		p.SortedWhite = quantity
	case PaperSortedColor:
		p.SortedColor = quantity
	case PaperNewspaper:
		p.Newspaper = quantity
	default:
		return errors.Validation(map[string]string{
			"paper_type": "must be one of: carton, mixed, sw, sc, np",
		})
	}
	return nil
}

// Validate checks every bucket is a finite non-negative quantity
func (p PaperTypes) Validate() error {
	details := make(map[string]string)
	for _, t := range AllPaperTypes {
		if err := validateQuantity(string(t), p.Get(t)); err != nil {
			details["paper_types."+string(t)] = "must be a non-negative number"
		}
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// CollectionData holds the planned and collected amounts of a session
type CollectionData struct {
	EstimatedAmount float64    `json:"estimated_amount"`
	ActualAmount    *float64   `json:"actual_amount,omitempty"`
	PaperTypes      PaperTypes `json:"paper_types"`
}

// EffectiveActualAmount is the explicit actual amount, or the bucket
// total when none was recorded.
func (c CollectionData) EffectiveActualAmount() float64 {
	if c.ActualAmount != nil {
		return *c.ActualAmount
	}
	return c.PaperTypes.Total()
}

// CollectionDataUpdate is a partial "save collection data" request.
// A nil field leaves the stored value alone, except that a missing
// ActualAmount is recomputed from the buckets.
type CollectionDataUpdate struct {
	ActualAmount *float64    `json:"actual_amount,omitempty"`
	PaperTypes   *PaperTypes `json:"paper_types,omitempty"`
}

// Validate checks the supplied quantities
func (u CollectionDataUpdate) Validate() error {
	details := make(map[string]string)
	if u.ActualAmount != nil {
		if err := validateQuantity("actual_amount", *u.ActualAmount); err != nil {
			details["actual_amount"] = "must be a non-negative number"
		}
	}
	if u.PaperTypes != nil {
		if err := u.PaperTypes.Validate(); err != nil {
			var appErr *errors.AppError
			if errors.As(err, &appErr) {
				for k, v := range appErr.Details {
					details[k] = v
				}
			}
		}
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// amountEpsilon absorbs float noise when comparing amounts
const amountEpsilon = 1e-9

func amountsDiffer(a, b float64) bool {
	return math.Abs(a-b) > amountEpsilon
}

func validateQuantity(field string, quantity float64) error {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 {
		return errors.Validation(map[string]string{
			field: "must be a non-negative number",
		})
	}
	return nil
}
