package ibkr

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
	"github.com/jiaming2012/tradecraft/src/utils"
)

const (
	summaryCacheKey = "account_summary"
	firstPnlWait    = 2 * time.Second
	summaryCacheTTL = 10 * time.Minute
)

// GetAccountSummary merges the account-value feed with the per-account P&L
// subscriptions. Equity fields come from the value feed; realized,
// unrealized and daily P&L are not served on that feed in this protocol and
// come exclusively from the P&L stream. An empty merged pass serves the last
// known-good snapshot instead.
func (s *Session) GetAccountSummary(ctx context.Context) (map[string]eventmodels.AccountSummary, error) {
	if !s.IsConnected() {
		return s.lastKnownGoodSummary(), nil
	}

	values := s.market.snapshotAccountValues()

	merged := map[string]eventmodels.AccountSummary{}

	for _, value := range values {
		// The rollup pseudo-account and foreign-currency rows are noise.
		if value.Account == eventmodels.AggregateAccountID {
			continue
		}
		if value.Currency != "" && value.Currency != s.accountCurrency && value.Currency != s.baseCurrency {
			continue
		}

		summary, found := merged[value.Account]
		if !found {
			summary = eventmodels.AccountSummary{Account: value.Account}
		}

		switch value.Tag {
		case eventmodels.TagNetLiquidation:
			summary.NetLiquidation = utils.ParseFloat(value.Value, 0)
		case eventmodels.TagTotalCash:
			summary.TotalCash = utils.ParseFloat(value.Value, 0)
		case eventmodels.TagBuyingPower:
			summary.BuyingPower = utils.ParseFloat(value.Value, 0)
		}

		merged[value.Account] = summary
	}

	for account, summary := range merged {
		merged[account] = s.mergePnl(ctx, account, summary)
	}

	if len(merged) == 0 {
		log.Debug("GetAccountSummary: empty merge pass, serving last known-good snapshot")
		return s.lastKnownGoodSummary(), nil
	}

	s.summaryCache.Set(summaryCacheKey, merged)

	return merged, nil
}

// mergePnl ensures the account's P&L subscription, waits a bounded interval
// for the first row, then reads whatever the store holds. Best-effort: a
// missing row leaves the P&L fields zero.
func (s *Session) mergePnl(ctx context.Context, account string, summary eventmodels.AccountSummary) eventmodels.AccountSummary {
	future, err := s.subs.EnsurePnl(account)
	if err != nil {
		log.Warnf("mergePnl: failed to subscribe pnl for %s: %v", account, err)
	} else if future != nil && !future.IsResolved() {
		if _, err := future.Await(ctx, firstPnlWait); err != nil {
			log.Debugf("mergePnl: no pnl row for %s yet: %v", account, err)
		}
	}

	if row, found := s.market.pnlRow(account); found {
		summary.DailyPnl = row.Daily
		summary.UnrealizedPnl = row.Unrealized
		summary.RealizedPnl = row.Realized
	}

	return summary
}

func (s *Session) lastKnownGoodSummary() map[string]eventmodels.AccountSummary {
	if cached, found := s.summaryCache.GetWithTTL(summaryCacheKey, summaryCacheTTL); found {
		return cached
	}

	return map[string]eventmodels.AccountSummary{}
}
