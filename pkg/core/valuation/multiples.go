package valuation

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ImpliedMultiples are the trading multiples a DCF value corresponds to
type ImpliedMultiples struct {
	EVToRevenue        float64 `json:"ev_to_revenue"`         // Current revenue
	EVToForwardRevenue float64 `json:"ev_to_forward_revenue"` // Year 1
	EVToForwardEBIT    float64 `json:"ev_to_forward_ebit"`    // Year 1 operating income
}

// MultiplesFromDCF expresses a DCF enterprise value as revenue and EBIT multiples.
// Zero denominators leave the multiple at zero.
func MultiplesFromDCF(res DCFResult, in ProjectionInputs) ImpliedMultiples {
	var m ImpliedMultiples
	if in.CurrentRevenue > 0 {
		m.EVToRevenue = res.EnterpriseValue / in.CurrentRevenue
	}
	if len(in.RevenueProjections) > 0 {
		rev := in.RevenueProjections[0]
		if rev > 0 {
			m.EVToForwardRevenue = res.EnterpriseValue / rev
		}
		if ebit := rev * marginAt(in.OperatingMargins, 0); ebit > 0 {
			m.EVToForwardEBIT = res.EnterpriseValue / ebit
		}
	}
	return m
}

// PeerComparable is one trading comparable or precedent transaction
type PeerComparable struct {
	Name          string  `json:"name"`
	EVToRevenue   float64 `json:"ev_to_revenue"`
	EVToEBIT      float64 `json:"ev_to_ebit"`
	IsTransaction bool    `json:"is_transaction"` // Precedent transaction rather than trading comp
}

// CompsRange is the interquartile per-share value range implied by peer multiples
type CompsRange struct {
	Peers          int        `json:"peers"`
	RevenueBased   [2]float64 `json:"revenue_based"` // Low, High
	EBITBased      [2]float64 `json:"ebit_based"`
	DCFWithinRange bool       `json:"dcf_within_range"`
}

// CompareToPeers values the company on the 25th-75th percentile of its peers' multiples
// (trading comps or transactions, not both) and checks whether the DCF value falls inside.
func CompareToPeers(res DCFResult, in ProjectionInputs, netDebt, shares float64, peers []PeerComparable, transactions bool) CompsRange {
	var revMults, ebitMults []float64
	for _, p := range peers {
		if p.IsTransaction != transactions {
			continue
		}
		if p.EVToRevenue > 0 {
			revMults = append(revMults, p.EVToRevenue)
		}
		if p.EVToEBIT > 0 {
			ebitMults = append(ebitMults, p.EVToEBIT)
		}
	}

	out := CompsRange{Peers: max(len(revMults), len(ebitMults))}
	if shares <= 0 || len(in.RevenueProjections) == 0 {
		return out
	}
	rev := in.RevenueProjections[0]
	ebit := rev * marginAt(in.OperatingMargins, 0)

	perShare := func(mults []float64, base float64) [2]float64 {
		lo, hi := interquartile(mults)
		return [2]float64{(lo*base - netDebt) / shares, (hi*base - netDebt) / shares}
	}
	out.RevenueBased = perShare(revMults, rev)
	out.EBITBased = perShare(ebitMults, ebit)

	v := res.IntrinsicValuePerShare
	within := func(r [2]float64, n int) bool { return n > 0 && v >= r[0] && v <= r[1] }
	out.DCFWithinRange = within(out.RevenueBased, len(revMults)) || within(out.EBITBased, len(ebitMults))
	return out
}

func interquartile(mults []float64) (float64, float64) {
	if len(mults) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), mults...)
	sort.Float64s(sorted)
	return stat.Quantile(0.25, stat.Empirical, sorted, nil), stat.Quantile(0.75, stat.Empirical, sorted, nil)
}
