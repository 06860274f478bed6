package curve

const (
	// maxTotalPoolFeeBp caps the combined fee take at 20%.
	maxTotalPoolFeeBp = 2_000
	// minBuybackFeeBp guarantees at least 1% flows into topup funding.
	minBuybackFeeBp = 100
	// maxPlatformFeeBp caps the platform's own cut at 10%.
	maxPlatformFeeBp = 1_000
	// maxBurnTiers bounds the tier list carried by a configuration.
	maxBurnTiers = 5
	// anyoneBurnCeilingBpX100 caps permissionless tiers at 0.1% per burn.
	anyoneBurnCeilingBpX100 = 1_000
	// burnRecoveryWindowSecs is the window within which a maximally decayed
	// limiter must fully recover; it anchors the decay-rate corridor.
	burnRecoveryWindowSecs = 900
	// BurnTiersUpdateCooldownSecs is the minimum spacing between tier
	// changes on one configuration.
	BurnTiersUpdateCooldownSecs = 86_400
)

// Validate cross-checks the configuration's fee splits, burn tiers, and
// burn-rate policy. It runs on every configuration write.
func (c *PlatformConfig) Validate() error {
	total := c.TotalFeeBp()
	if total == 0 || total > maxTotalPoolFeeBp {
		return ErrInvalidFeeBasisPoints
	}
	if c.BuybackFeeBp < minBuybackFeeBp {
		return ErrInvalidBuybackFee
	}
	if c.PlatformFeeBp > maxPlatformFeeBp {
		return ErrInvalidFeeBasisPoints
	}
	if len(c.BurnTiers) > maxBurnTiers {
		return ErrInvalidBurnTiersLength
	}

	// Privileged tiers may burn at most 3/4 of the fee take per request so
	// burns cannot structurally outpace fee income.
	privilegedCeiling := uint64(total) * 100 * 3 / 4
	for _, tier := range c.BurnTiers {
		if tier.BurnBpX100 == 0 {
			return ErrInvalidBurnTiers
		}
		switch tier.Role {
		case BurnRoleAnyone:
			if tier.BurnBpX100 > anyoneBurnCeilingBpX100 {
				return ErrInvalidBurnTiers
			}
		case BurnRolePoolCreator:
			if uint64(tier.BurnBpX100) > privilegedCeiling {
				return ErrInvalidBurnTiers
			}
		case BurnRoleSpecificAddress:
			if uint64(tier.BurnBpX100) > privilegedCeiling {
				return ErrInvalidBurnTiers
			}
			if tier.Authority.IsZero() {
				return ErrInvalidBurnTiers
			}
		default:
			return ErrInvalidBurnTiers
		}
	}

	return c.BurnRate.validate(total)
}

func (r BurnRateConfig) validate(totalFeeBp uint32) error {
	// The soft limit must sit strictly below total fee income, scaled to
	// x100 basis points.
	if r.LimitBpX100 == 0 || r.LimitBpX100 >= uint64(totalFeeBp)*100 {
		return ErrInvalidBurnRate
	}
	if r.MinBurnBpX100 == 0 || r.MinBurnBpX100 > r.LimitBpX100 {
		return ErrInvalidBurnRate
	}
	// A rate of limit/window drains a saturated limiter exactly within the
	// recovery window, so that is the slowest admissible decay; the ceiling
	// at 100x keeps the limiter from becoming a no-op.
	minDecay := r.LimitBpX100 / burnRecoveryWindowSecs
	if minDecay == 0 {
		minDecay = 1
	}
	maxDecay := minDecay * 100
	if r.DecayRatePerSecBpX100 < minDecay || r.DecayRatePerSecBpX100 > maxDecay {
		return ErrInvalidBurnRate
	}
	return nil
}
