package jobs

import (
	"time"

	"github.com/rs/zerolog/log"
)

// StaleEvictor removes waiting entries that have outlived their timeout.
type StaleEvictor interface {
	EvictStale(now time.Time) int
}

type StaleSweepJob struct {
	evictor  StaleEvictor
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
}

func NewStaleSweepJob(evictor StaleEvictor, interval time.Duration) *StaleSweepJob {
	return &StaleSweepJob{
		evictor:  evictor,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (j *StaleSweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("stale sweep job started")
}

func (j *StaleSweepJob) Stop() {
	close(j.done)
	log.Info().Msg("stale sweep job stopped")
}

func (j *StaleSweepJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *StaleSweepJob) sweep() {
	if count := j.evictor.EvictStale(j.now()); count > 0 {
		log.Info().Int("count", count).Msg("swept stale waiting entries")
	}
}
