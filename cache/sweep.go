package cache

import (
	"time"

	"github.com/sirupsen/logrus"
)

// sweep periodically reclaims expired entries so that keys written once and
// never read again do not linger in the store or the tag index.
func (c *TaggedCache) sweep() {
	defer close(c.done)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	log := c.logger.WithField("component", "tagcache-sweeper")
	for {
		select {
		case <-ticker.C:
			if cnt := c.DeleteExpired(); cnt > 0 {
				log.WithFields(logrus.Fields{"count": cnt}).Debug("evicted expired entries")
			}
		case <-c.close:
			return
		}
	}
}
