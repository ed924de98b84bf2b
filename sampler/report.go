package sampler

import (
	"github.com/CraigKelly/hmc2d/diagnostics"
	"github.com/CraigKelly/hmc2d/model"
)

// ChainReport summarizes a single chain after burn-in
type ChainReport struct {
	ID             int                     `json:"id"`
	Kind           Kind                    `json:"kind"`
	Seed           int64                   `json:"seed"`
	Transitions    int64                   `json:"transitions"`
	Accepted       int64                   `json:"accepted"`
	Rejected       int64                   `json:"rejected"`
	AcceptanceRate float64                 `json:"acceptance_rate"`
	Summary        *diagnostics.Summary    `json:"summary,omitempty"`
	ESS            *model.Vec              `json:"ess,omitempty"`
	MCSE           *model.Vec              `json:"mcse,omitempty"`
	Drift          *diagnostics.Divergence `json:"drift,omitempty"`
}

// Report is everything we know about a run. Diagnostics whose preconditions
// aren't met (too few chains or samples) are nil.
type Report struct {
	Iteration  int64                   `json:"iteration"`
	BurnIn     int                     `json:"burn_in"`
	Chains     []ChainReport           `json:"chains"`
	RHat       *model.Vec              `json:"rhat,omitempty"`
	ESS        *model.Vec              `json:"ess,omitempty"`
	Divergence *diagnostics.Divergence `json:"divergence,omitempty"`
}

// Report computes summaries and diagnostics, skipping the first burnIn
// accepted samples of every chain. Stored samples are not touched.
func (c *Controller) Report(burnIn int) *Report {
	if burnIn < 0 {
		burnIn = 0
	}

	r := &Report{
		Iteration: c.iteration,
		BurnIn:    burnIn,
		Chains:    make([]ChainReport, 0, len(c.chains)),
	}

	for _, ch := range c.chains {
		if !ch.Enabled() {
			continue
		}
		r.Chains = append(r.Chains, chainReport(ch, burnIn))
	}

	samples := c.Samples(burnIn)
	if rhat, err := diagnostics.GelmanRubin(samples); err == nil {
		r.RHat = &rhat
	}
	if ess, err := diagnostics.ESS(samples); err == nil {
		r.ESS = &ess
	}
	if len(samples) == 2 {
		if d, err := diagnostics.MarginalDivergence(samples[0], samples[1], diagnostics.DefaultBins); err == nil {
			r.Divergence = d
		}
	}

	return r
}

func chainReport(ch *Chain, burnIn int) ChainReport {
	cr := ChainReport{
		ID:             ch.ID,
		Kind:           ch.Config.Kind,
		Seed:           ch.InitialSeed,
		Transitions:    ch.Transitions,
		Accepted:       ch.Accepted,
		Rejected:       ch.Rejected,
		AcceptanceRate: ch.AcceptanceRate(),
	}

	kept := diagnostics.BurnIn([][]model.Vec{ch.Samples}, burnIn)

	if s, err := diagnostics.Summarize(kept[0]); err == nil {
		cr.Summary = &s

		if ess, err := diagnostics.ESS(kept); err == nil {
			cr.ESS = &ess
			se := diagnostics.MCSE(s, ess)
			cr.MCSE = &se
		}
	}

	if first, second := ch.Recent.FirstHalf(), ch.Recent.SecondHalf(); first != nil && second != nil {
		if d, err := diagnostics.WindowDrift(first.Collect(), second.Collect(), diagnostics.DefaultBins); err == nil {
			cr.Drift = d
		}
	}

	return cr
}
