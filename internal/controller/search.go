package controller

import (
	"context"
	"time"

	"github.com/roach88/liveresults/internal/queryir"
)

// SetSearchPredicate sets the predicate appended to the configured ones,
// typically built from user input. The reload is debounced: it happens
// after the search delay, and a newer predicate cancels a pending one.
// Setting a predicate equal to the current one does nothing; nil clears it.
func (c *Controller[R, ID]) SetSearchPredicate(p queryir.Predicate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed || queryir.EqualPredicates(c.search, p) {
		return
	}
	c.search = p

	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	c.searchSeq++
	seq := c.searchSeq
	c.searchTimer = c.opts.afterFunc(c.searchDelay, func() {
		c.fireSearch(seq)
	})
}

// SearchPredicate returns the current search predicate.
func (c *Controller[R, ID]) SearchPredicate() queryir.Predicate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// SetSearchDelay changes the debounce interval. A pending search keeps the
// delay it was armed with.
func (c *Controller[R, ID]) SetSearchDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchDelay = d
}

// SearchDelay returns the debounce interval.
func (c *Controller[R, ID]) SearchDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchDelay
}

// fireSearch reloads on the consumer context unless the timer was
// superseded or cancelled meanwhile.
func (c *Controller[R, ID]) fireSearch(seq uint64) {
	c.opts.dispatcher.Sync(func() {
		c.mu.Lock()
		if seq != c.searchSeq || c.state == StateClosed {
			c.mu.Unlock()
			return
		}
		c.searchTimer = nil
		c.mu.Unlock()

		c.opts.logger.Debug("search delay elapsed; reloading", "collection", c.access.Collection)
		if err := c.Reload(context.Background()); err != nil {
			c.opts.logger.Error("search reload failed",
				"collection", c.access.Collection,
				"error", err,
			)
			if c.opts.onError != nil {
				c.opts.onError(err)
			}
		}
	})
}
