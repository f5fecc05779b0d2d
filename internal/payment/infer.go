package payment

import (
	"fmt"
	"sort"
	"strings"

	"pasmi/terminal/internal/domain"
)

const (
	MatchSignature = "signature"
	MatchTotal     = "total"
	MatchScore     = "score"
	MatchRecorded  = "recorded"
)

// Inference is a best guess of how a past order was paid. It is shown to
// the operator only and never written back.
type Inference struct {
	Payment  domain.PaymentBreakdown `json:"payment"`
	Method   string                  `json:"method"`
	RecordID string                  `json:"recordId,omitempty"`
	Date     string                  `json:"date,omitempty"`
	Score    float64                 `json:"score,omitempty"`
}

// Signature is the order independent identity of an item list.
func Signature(names []string, quantities []int64) string {
	counts := make(map[string]int64, len(names))
	for i, name := range names {
		n := strings.ToLower(strings.Join(strings.Fields(name), " "))
		if n == "" {
			continue
		}
		if i < len(quantities) {
			counts[n] += quantities[i]
		}
	}
	parts := make([]string, 0, len(counts))
	for n, q := range counts {
		parts = append(parts, fmt.Sprintf("%s×%d", n, q))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

func orderSignature(o domain.Order) string {
	names := make([]string, len(o.Items))
	qty := make([]int64, len(o.Items))
	for i, it := range o.Items {
		names[i] = it.Name
		qty[i] = it.Quantity
	}
	return Signature(names, qty)
}

func recordSignature(r domain.ReportRecord) string {
	names := make([]string, len(r.Items))
	qty := make([]int64, len(r.Items))
	for i, it := range r.Items {
		names[i] = it.Name
		qty[i] = it.Quantity
	}
	return Signature(names, qty)
}

// Infer scans report rows for the one most likely to describe order.
// Rows are filtered to date when it is set. An exact item signature wins,
// then an exact total with a plausible wallet amount, then the row with
// the most payment channels and the smallest gap to the order total.
func Infer(order domain.Order, records []domain.ReportRecord, date string) (Inference, bool) {
	if order.Payment != nil && !order.Payment.IsZero() {
		return Inference{Payment: *order.Payment, Method: MatchRecorded, RecordID: order.ID}, true
	}

	day := domain.NormalizeDate(date)
	candidates := make([]domain.ReportRecord, 0, len(records))
	for _, r := range records {
		if !r.HasPayment || r.Payment.IsZero() {
			continue
		}
		if day != "" && domain.NormalizeDate(r.Date) != day {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return Inference{}, false
	}

	if sig := orderSignature(order); sig != "" {
		for _, r := range candidates {
			if recordSignature(r) == sig {
				return fromRecord(r, MatchSignature, 0), true
			}
		}
	}

	for _, r := range candidates {
		wallets := r.Payment.Wallets()
		if r.Total == order.Total && wallets > 0 && wallets <= order.Total {
			return fromRecord(r, MatchTotal, 0), true
		}
	}

	best := -1
	bestScore := 0.0
	for i, r := range candidates {
		s := score(r.Payment, order.Total)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return fromRecord(candidates[best], MatchScore, bestScore), true
}

// score rewards used channels and penalises the relative gap between the
// channel sum and the order total.
func score(p domain.PaymentBreakdown, total int64) float64 {
	gap := p.Sum() - total
	if gap < 0 {
		gap = -gap
	}
	penalty := float64(gap)
	if total > 0 {
		penalty = float64(gap) / float64(total)
	}
	return float64(p.Channels()) - penalty
}

func fromRecord(r domain.ReportRecord, method string, s float64) Inference {
	return Inference{
		Payment:  r.Payment,
		Method:   method,
		RecordID: r.ID,
		Date:     domain.NormalizeDate(r.Date),
		Score:    s,
	}
}
