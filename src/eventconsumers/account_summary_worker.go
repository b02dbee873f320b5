package eventconsumers

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/brokers"
	"github.com/jiaming2012/tradecraft/src/eventpubsub"
)

// AccountSummaryWorker polls the broker session periodically so the
// last-known-good summary cache stays warm while the session is live. A
// disconnected session makes the pass a cheap no-op.
type AccountSummaryWorker struct {
	wg       *sync.WaitGroup
	session  brokers.IBrokerSession
	interval time.Duration
}

func NewAccountSummaryWorker(wg *sync.WaitGroup, session brokers.IBrokerSession) *AccountSummaryWorker {
	return &AccountSummaryWorker{
		wg:       wg,
		session:  session,
		interval: 30 * time.Second,
	}
}

func (w *AccountSummaryWorker) refreshAccountSummary(ctx context.Context) {
	if !w.session.IsConnected() {
		log.Debug("AccountSummaryWorker: session disconnected, skipping refresh")
		return
	}

	summary, err := w.session.GetAccountSummary(ctx)
	if err != nil {
		log.Errorf("AccountSummaryWorker: failed to refresh account summary: %v", err)
		return
	}

	log.Debugf("AccountSummaryWorker: refreshed summary for %d accounts", len(summary))

	eventpubsub.PublishEventResult("AccountSummaryWorker", eventpubsub.AccountSummaryEvent, summary)
}

func (w *AccountSummaryWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	timer := time.NewTicker(w.interval)

	log.Info("starting AccountSummaryWorker consumer")

	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				log.Info("stopping AccountSummaryWorker consumer")
				return
			case <-timer.C:
				w.refreshAccountSummary(ctx)
			}
		}
	}()
}
