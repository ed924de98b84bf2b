package cmd

import (
	"log"

	"github.com/CraigKelly/hmc2d/config"
	"github.com/CraigKelly/hmc2d/model"
	"github.com/CraigKelly/hmc2d/sampler"
)

func fmtVec(v *model.Vec) string {
	if v == nil {
		return "n/a"
	}
	return sprintVec(*v)
}

func sprintVec(v model.Vec) string {
	return "(" + fmtFloat(v.X) + ", " + fmtFloat(v.Y) + ")"
}

// writeReport prints a human readable run report
func writeReport(out *log.Logger, cfg *config.Config, r *sampler.Report) {
	out.Printf("Density: %s\n", cfg.Density.Name)
	out.Printf("Iterations: %d (burn-in %d)\n", r.Iteration, r.BurnIn)

	for _, ch := range r.Chains {
		out.Printf("Chain %d [%v seed=%d]\n", ch.ID, ch.Kind, ch.Seed)
		out.Printf("  Transitions: %d Accepted: %d Rejected: %d Rate: %.4f\n",
			ch.Transitions, ch.Accepted, ch.Rejected, ch.AcceptanceRate)
		if ch.Summary == nil {
			out.Printf("  No samples after burn-in\n")
			continue
		}
		out.Printf("  Samples: %d\n", ch.Summary.Count)
		out.Printf("  Mean:    %s\n", sprintVec(ch.Summary.Mean))
		out.Printf("  StdDev:  %s\n", sprintVec(ch.Summary.StdDev))
		out.Printf("  ESS:     %s\n", fmtVec(ch.ESS))
		out.Printf("  MCSE:    %s\n", fmtVec(ch.MCSE))
		if ch.Drift != nil {
			out.Printf("  Drift:   Hellinger=%s JSD=%s\n", sprintVec(ch.Drift.Hellinger), sprintVec(ch.Drift.JSDiverge))
		}
	}

	out.Printf("R-hat: %s\n", fmtVec(r.RHat))
	out.Printf("ESS:   %s\n", fmtVec(r.ESS))
	if r.Divergence != nil {
		out.Printf("Between chains: Hellinger=%s JSD=%s\n",
			sprintVec(r.Divergence.Hellinger), sprintVec(r.Divergence.JSDiverge))
	}
}
