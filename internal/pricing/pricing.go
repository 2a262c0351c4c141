// Package pricing computes quotation totals. All functions are pure; the
// quotation service owns validation and the renderer owns formatting.
package pricing

import (
	"fmt"
	"math"
)

const (
	// MaxDiscountPercent is the cap for both per-line and overall discounts.
	// Values above it are zeroed, not clamped.
	MaxDiscountPercent = 20.0
	// EscalatedDiscountPercent replaces a requested overall discount above the
	// cap once an admin approves the escalation.
	EscalatedDiscountPercent = 17.3

	// VATRateStandard and VATRateReduced are the only accepted VAT rates,
	// chosen when the company details form is submitted.
	VATRateStandard = 0.14
	VATRateReduced  = 0.13
)

// Line is one quotation line item as entered.
type Line struct {
	Ref             string
	UnitPrice       float64
	Quantity        int
	DiscountPercent float64
}

// LineResult carries the computed amounts for one line.
type LineResult struct {
	Line
	EffectiveDiscount float64
	NetUnitPrice      float64
	Total             float64
}

// Input bundles everything the engine needs for one document.
type Input struct {
	Lines                  []Line
	ShippingFee            float64
	InstallationFee        float64
	VATRate                float64
	OverallDiscountPercent float64
	// EscalationApproved substitutes EscalatedDiscountPercent for an
	// over-cap overall discount instead of zeroing it.
	EscalationApproved bool
}

// Totals is the full breakdown consumed by the renderer, history and CRM export.
type Totals struct {
	Lines []LineResult

	Subtotal               float64
	ItemDiscount           float64
	OverallDiscountPercent float64
	OverallDiscount        float64
	FinalTotal             float64
	ShippingFee            float64
	InstallationFee        float64
	VATRate                float64
	VAT                    float64
	GrandTotal             float64

	// ItemLevelMode is true when at least one line carries an effective
	// discount; the overall discount is ignored entirely in that mode.
	ItemLevelMode bool
	Warnings      []string
}

// EffectiveDiscount applies the over-cap rule: anything above the cap is
// zeroed. Exactly the cap is allowed.
func EffectiveDiscount(pct float64) float64 {
	if pct > MaxDiscountPercent {
		return 0
	}
	return pct
}

// ValidVATRate reports whether the rate is one of the two accepted values.
func ValidVATRate(rate float64) bool {
	return rate == VATRateStandard || rate == VATRateReduced
}

// Round2 rounds to two decimal places using standard rounding.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute evaluates the whole document. An empty line list yields a zero
// Totals regardless of fees.
func Compute(in Input) Totals {
	t := Totals{VATRate: in.VATRate}
	if len(in.Lines) == 0 {
		return t
	}

	var subtotal, lineSum float64
	for _, line := range in.Lines {
		if line.Quantity < 1 {
			line.Quantity = 1
		}
		eff := EffectiveDiscount(line.DiscountPercent)
		if line.DiscountPercent > MaxDiscountPercent {
			t.Warnings = append(t.Warnings, fmt.Sprintf("max %.0f%% discount allowed for %q; discount ignored", MaxDiscountPercent, line.Ref))
		}
		if eff > 0 {
			t.ItemLevelMode = true
		}
		netUnit := line.UnitPrice * (1 - eff/100)
		total := Round2(netUnit * float64(line.Quantity))
		subtotal += line.UnitPrice * float64(line.Quantity)
		lineSum += total
		t.Lines = append(t.Lines, LineResult{
			Line:              line,
			EffectiveDiscount: eff,
			NetUnitPrice:      Round2(netUnit),
			Total:             total,
		})
	}

	t.Subtotal = Round2(subtotal)
	lineSum = Round2(lineSum)

	if t.ItemLevelMode {
		// Per-line discounts and the blanket discount are mutually exclusive.
		if in.OverallDiscountPercent > 0 {
			t.Warnings = append(t.Warnings, "overall discount is not available when line discounts are applied")
		}
		t.ItemDiscount = Round2(t.Subtotal - lineSum)
		t.FinalTotal = lineSum
	} else {
		pct := in.OverallDiscountPercent
		if pct > MaxDiscountPercent {
			if in.EscalationApproved {
				pct = EscalatedDiscountPercent
			} else {
				t.Warnings = append(t.Warnings, fmt.Sprintf("overall discount above %.0f%% requires approval; discount ignored", MaxDiscountPercent))
				pct = 0
			}
		}
		t.OverallDiscountPercent = pct
		t.OverallDiscount = Round2(t.Subtotal * pct / 100)
		t.FinalTotal = Round2(t.Subtotal * (1 - pct/100))
	}

	t.ShippingFee = Round2(in.ShippingFee)
	t.InstallationFee = Round2(in.InstallationFee)
	// The VAT base includes shipping but not installation.
	t.VAT = Round2((t.FinalTotal + t.ShippingFee) * in.VATRate)
	t.GrandTotal = Round2(t.FinalTotal + t.ShippingFee + t.InstallationFee + t.VAT)
	return t
}
