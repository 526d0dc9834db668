package keeper

import (
	"io"
	"log"
	"sync"

	"github.com/solcron/solcron-go/pkg/trigger"
	"github.com/solcron/solcron-go/pkg/types"
)

// Source supplies the off-chain observations for a job's conditional and
// log leaves. Implementations typically sit on a price feed and an event
// stream.
type Source interface {
	Observations(job types.AutomationJob) trigger.Observations
}

// FeedSource evaluates conditional predicates against a variable feed and
// matches log leaves against a set of observed event signatures. Safe for
// concurrent use.
type FeedSource struct {
	mu     sync.RWMutex
	feed   trigger.Feed
	events []string
	logger *log.Logger
}

func NewFeedSource(logger *log.Logger) *FeedSource {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &FeedSource{feed: trigger.Feed{}, logger: logger}
}

// SetFeed replaces the variable feed snapshot.
func (s *FeedSource) SetFeed(feed trigger.Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed = feed
}

// ObserveEvent records an event signature as seen.
func (s *FeedSource) ObserveEvent(signature string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, signature)
}

// Observations evaluates every conditional leaf of the job's trigger
// against the current feed. PredicateHolds asserts only when all leaves
// hold; an unevaluable predicate never asserts.
func (s *FeedSource) Observations(job types.AutomationJob) trigger.Observations {
	s.mu.RLock()
	feed := s.feed
	events := append([]string(nil), s.events...)
	s.mu.RUnlock()

	obs := trigger.Observations{ObservedEvents: events}

	trig, err := job.Trigger()
	if err != nil {
		s.logger.Printf("job %d: undecodable trigger: %s", job.JobID, err)
		return obs
	}

	holds := true
	evaluated := false
	for _, cond := range conditionalLeaves(trig) {
		evaluated = true
		ok, err := trigger.EvaluatePredicate(cond, feed)
		if err != nil {
			s.logger.Printf("job %d: predicate evaluation failed: %s", job.JobID, err)
			holds = false
			break
		}
		if !ok {
			holds = false
			break
		}
	}

	obs.PredicateHolds = evaluated && holds
	return obs
}

func conditionalLeaves(t types.Trigger) []types.PredicateCondition {
	switch t.Type {
	case types.ConditionalTrigger:
		if t.Condition != nil {
			return []types.PredicateCondition{*t.Condition}
		}
	case types.HybridTrigger:
		if t.Hybrid == nil {
			return nil
		}
		var leaves []types.PredicateCondition
		for _, sub := range t.Hybrid.SubTriggers {
			leaves = append(leaves, conditionalLeaves(sub)...)
		}
		return leaves
	default:
	}
	return nil
}
