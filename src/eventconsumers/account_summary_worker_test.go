package eventconsumers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jiaming2012/tradecraft/src/brokers"
	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

func TestAccountSummaryWorker(t *testing.T) {
	t.Run("refreshes the summary on each tick while connected", func(t *testing.T) {
		session := brokers.NewMockBrokerSession()
		session.Connected = true
		session.Summary = map[string]eventmodels.AccountSummary{
			"U111": {Account: "U111", NetLiquidation: 100000},
		}

		wg := &sync.WaitGroup{}
		worker := NewAccountSummaryWorker(wg, session)
		worker.interval = 10 * time.Millisecond

		ctx, cancel := context.WithCancel(context.Background())
		worker.Start(ctx)

		assert.Eventually(t, func() bool {
			return session.SummaryCallCount() >= 2
		}, time.Second, 5*time.Millisecond)

		cancel()
		wg.Wait()
	})

	t.Run("skips the refresh while disconnected", func(t *testing.T) {
		session := brokers.NewMockBrokerSession()

		wg := &sync.WaitGroup{}
		worker := NewAccountSummaryWorker(wg, session)
		worker.interval = 10 * time.Millisecond

		ctx, cancel := context.WithCancel(context.Background())
		worker.Start(ctx)

		time.Sleep(50 * time.Millisecond)

		cancel()
		wg.Wait()

		assert.Zero(t, session.SummaryCallCount())
	})
}
