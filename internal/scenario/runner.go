// Package scenario runs what-if financial models against reconstructed state:
// liquidation waterfalls at hypothetical exit amounts and dilution from
// hypothetical funding rounds. Runs never write the ledger.
package scenario

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-captable/internal/dilution"
	"solana-captable/internal/domain"
	"solana-captable/internal/replay"
	"solana-captable/internal/waterfall"
)

// ErrNoValuation is returned when a dilution run has neither an explicit
// valuation nor a valuation recorded on the ledger.
var ErrNoValuation = fmt.Errorf("no valuation available: pass one explicitly or record a valuation_update first")

// WaterfallRun is one waterfall scenario set over a single reconstruction.
type WaterfallRun struct {
	TokenID     string              `json:"token_id"`
	Slot        int64               `json:"slot"`
	TotalShares int64               `json:"total_shares"`
	Results     []*waterfall.Result `json:"results"`
}

// DilutionRun is a dilution simulation over a single reconstruction.
type DilutionRun struct {
	TokenID   string           `json:"token_id"`
	Slot      int64            `json:"slot"`
	Valuation int64            `json:"valuation"`
	Result    *dilution.Result `json:"result"`
}

// Runner reconstructs state and feeds it into the pure calculators.
type Runner struct {
	reconstructor *replay.Reconstructor
	logger        *zap.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Reconstructor *replay.Reconstructor
	Logger        *zap.Logger
}

// NewRunner creates a new Runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		reconstructor: opts.Reconstructor,
		logger:        logger,
	}
}

// RunWaterfall reconstructs the token at the slot (negative slot means head)
// and runs the waterfall at each exit amount.
func (r *Runner) RunWaterfall(ctx context.Context, tokenID string, slot int64, exitAmounts []int64) (*WaterfallRun, error) {
	if len(exitAmounts) == 0 {
		return nil, fmt.Errorf("no exit amounts given")
	}
	for _, amount := range exitAmounts {
		if amount <= 0 {
			return nil, fmt.Errorf("exit amount must be positive, got %d", amount)
		}
	}

	state, err := r.reconstruct(ctx, tokenID, slot)
	if err != nil {
		return nil, err
	}

	positions := waterfall.PositionsFromState(state)
	run := &WaterfallRun{
		TokenID:     tokenID,
		Slot:        state.Slot,
		TotalShares: state.TotalSupply,
		Results:     waterfall.Scenarios(positions, exitAmounts),
	}
	r.logger.Debug("waterfall run complete",
		zap.String("token_id", tokenID),
		zap.Int64("slot", state.Slot),
		zap.Int("scenarios", len(run.Results)),
		zap.Int("positions", len(positions)))
	return run, nil
}

// RunDilution reconstructs the token at the slot (negative slot means head)
// and simulates the rounds. A valuation of zero falls back to the last
// valuation recorded on the ledger.
func (r *Runner) RunDilution(ctx context.Context, tokenID string, slot int64, valuation int64, rounds []dilution.Round) (*DilutionRun, error) {
	if len(rounds) == 0 {
		return nil, fmt.Errorf("no rounds given")
	}
	for _, round := range rounds {
		if round.PreMoneyValuation <= 0 || round.AmountRaised <= 0 {
			return nil, fmt.Errorf("round %q needs positive pre-money valuation and amount raised", round.Name)
		}
	}

	state, err := r.reconstruct(ctx, tokenID, slot)
	if err != nil {
		return nil, err
	}

	if valuation == 0 {
		valuation = state.LastValuation
	}
	if valuation <= 0 {
		return nil, ErrNoValuation
	}

	run := &DilutionRun{
		TokenID:   tokenID,
		Slot:      state.Slot,
		Valuation: valuation,
		Result:    dilution.Calculate(dilution.HoldersFromState(state), valuation, rounds),
	}
	r.logger.Debug("dilution run complete",
		zap.String("token_id", tokenID),
		zap.Int64("slot", state.Slot),
		zap.Int64("valuation", valuation),
		zap.Int("rounds", len(rounds)))
	return run, nil
}

func (r *Runner) reconstruct(ctx context.Context, tokenID string, slot int64) (*domain.TokenState, error) {
	if slot < 0 {
		headSlot, _, err := r.reconstructor.Head(ctx, tokenID)
		if err != nil {
			return nil, fmt.Errorf("resolve head for %s: %w", tokenID, err)
		}
		slot = headSlot
	}
	s, err := r.reconstructor.Reconstruct(ctx, tokenID, slot)
	if err != nil {
		return nil, fmt.Errorf("reconstruct %s at slot %d: %w", tokenID, slot, err)
	}
	return s, nil
}
