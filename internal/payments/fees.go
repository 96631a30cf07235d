package payments

// FeeSchedule describes how a charge is split between processor, platform,
// and expert. Rates come from configuration, not code, so a processor fee
// change never needs a deploy.
type FeeSchedule struct {
	// ProcessorRateBps is the processor's variable fee in basis points
	// (290 = 2.9%).
	ProcessorRateBps int
	// ProcessorFlatCents is the processor's flat per-charge fee.
	ProcessorFlatCents int
	// PlatformRateBps is MentoJi's cut of the session price in basis points.
	PlatformRateBps int
}

// DefaultFeeSchedule mirrors the standard US card schedule: 2.9% + $0.30
// processor fee, 10% platform fee.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		ProcessorRateBps:   290,
		ProcessorFlatCents: 30,
		PlatformRateBps:    1000,
	}
}

// Breakdown is the per-charge fee split, all amounts in cents.
type Breakdown struct {
	AmountCents        int64
	ProcessingFeeCents int64
	PlatformFeeCents   int64
	PayeePayoutCents   int64
}

// Split computes the fee breakdown for a session price. Each fee is rounded
// half-up at the cent before any subtraction, matching the processor's own
// rounding; payout is price minus the already-rounded processing fee.
func (f FeeSchedule) Split(amountCents int64) Breakdown {
	processing := roundHalfUpBps(amountCents, f.ProcessorRateBps) + int64(f.ProcessorFlatCents)
	platform := roundHalfUpBps(amountCents, f.PlatformRateBps)
	return Breakdown{
		AmountCents:        amountCents,
		ProcessingFeeCents: processing,
		PlatformFeeCents:   platform,
		PayeePayoutCents:   amountCents - processing,
	}
}

// roundHalfUpBps applies a basis-point rate to a cent amount, rounding
// half-up at the cent. Integer arithmetic only; no float drift.
func roundHalfUpBps(amountCents int64, rateBps int) int64 {
	return (amountCents*int64(rateBps) + 5000) / 10000
}
