package signals

import "github.com/matthewbaird/retention/internal/types"

const paymentLookbackDays = 90

func computePaymentFailures(in Input) RiskSignal {
	var failed, seen int
	for _, tx := range in.Transactions {
		if !inWindow(tx.CreatedAt, in.Now, paymentLookbackDays*day, 0) {
			continue
		}
		seen++
		if tx.Status == types.TransactionFailed {
			failed++
		}
	}

	var score float64
	switch {
	case failed == 0:
		score = 0
	case failed == 1:
		score = 40
	case failed == 2:
		score = 70
	default:
		score = 95
	}
	return RiskSignal{
		Score:      score,
		Confidence: 1,
		DataPoints: seen,
		Trend:      trendFromScore(score),
		Metadata: PaymentFailuresMeta{
			Failed:       failed,
			WindowDays:   paymentLookbackDays,
			Transactions: seen,
		},
	}
}

func computeLatePayments(in Input) RiskSignal {
	overdue := 0
	for _, inv := range in.Invoices {
		if inv.Status == types.InvoiceOverdue {
			overdue++
		}
	}

	var score float64
	switch {
	case overdue == 0:
		score = 0
	case overdue == 1:
		score = 45
	case overdue == 2:
		score = 75
	default:
		score = 95
	}
	return RiskSignal{
		Score:      score,
		Confidence: 1,
		DataPoints: len(in.Invoices),
		Trend:      trendFromScore(score),
		Metadata:   LatePaymentsMeta{Overdue: overdue},
	}
}

func computePlanDowngrade(in Input) RiskSignal {
	sub := in.Subscription
	if sub == nil {
		return RiskSignal{
			Score:      0,
			Confidence: 0.3,
			Trend:      TrendStable,
			Metadata:   PlanDowngradeMeta{Change: PlanChangeNoSubscription},
		}
	}

	var score float64
	change := PlanChangeNone
	switch {
	case sub.CancelAtPeriodEnd:
		score, change = 80, PlanChangeCancelAtPeriodEnd
	case sub.Status == types.SubscriptionPastDue:
		score, change = 60, PlanChangePastDue
	case sub.Status == types.SubscriptionPaused:
		score, change = 45, PlanChangePaused
	}
	return RiskSignal{
		Score:      score,
		Confidence: 1,
		DataPoints: 1,
		Trend:      trendFromScore(score),
		Metadata:   PlanDowngradeMeta{Change: change},
	}
}
