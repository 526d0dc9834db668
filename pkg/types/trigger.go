package types

import (
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/sha3"
)

// TriggerType discriminates the stored trigger payload.
type TriggerType uint8

const (
	TimeTrigger TriggerType = iota
	ConditionalTrigger
	LogTrigger
	HybridTrigger
)

func (t TriggerType) String() string {
	switch t {
	case TimeTrigger:
		return "time"
	case ConditionalTrigger:
		return "conditional"
	case LogTrigger:
		return "log"
	case HybridTrigger:
		return "hybrid"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Combinator composes the sub-triggers of a hybrid trigger.
type Combinator uint8

const (
	CombinatorAnd Combinator = iota
	CombinatorOr
)

// Interval bounds for time triggers, in seconds.
const (
	MinTriggerInterval int64 = 1
	MaxTriggerInterval int64 = 30 * 24 * 60 * 60
)

// MaxPredicateLen bounds the predicate expression and event signature
// strings stored with conditional and log triggers.
const MaxPredicateLen = 180

// MaxHybridSubTriggers bounds the direct children of a hybrid trigger.
const MaxHybridSubTriggers = 4

// Trigger is the tagged condition gating a job's execution. Exactly one of
// the extension fields is set, matching Type. The registry stores only the
// condition's description; live evaluation of conditional and log leaves is
// supplied by keepers off-chain and is a trust boundary, not something the
// core can verify.
type Trigger struct {
	Type TriggerType `json:"type"`
	// Time is set for TimeTrigger.
	Time *TimeCondition `json:"time,omitempty"`
	// Condition is set for ConditionalTrigger.
	Condition *PredicateCondition `json:"condition,omitempty"`
	// Log is set for LogTrigger.
	Log *LogCondition `json:"log,omitempty"`
	// Hybrid is set for HybridTrigger.
	Hybrid *HybridCondition `json:"hybrid,omitempty"`
}

// TimeCondition fires once Interval seconds have elapsed since the last
// execution. When Schedule is set it takes precedence and the condition
// fires once the schedule's next activation after the last execution has
// passed.
type TimeCondition struct {
	// Interval is in seconds, within [MinTriggerInterval, MaxTriggerInterval].
	Interval int64 `json:"interval"`
	// Schedule is an optional cron expression.
	Schedule string `json:"schedule,omitempty"`
}

// PredicateCondition describes an off-chain predicate: Expression is
// evaluated over a keeper's observation feed and compared against Threshold
// with Operator.
type PredicateCondition struct {
	Expression string `json:"expression"`
	// Operator is one of ">", ">=", "<", "<=", "==".
	Operator  string `json:"operator"`
	Threshold string `json:"threshold"`
}

// LogCondition fires when an event matching the signature has been observed.
type LogCondition struct {
	EventSignature string `json:"eventSignature"`
}

// EventID is the keccak-256 identifier of the event signature, hex encoded.
func (c LogCondition) EventID() string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(c.EventSignature))
	return hex.EncodeToString(h.Sum(nil))
}

// HybridCondition composes sub-triggers with AND or OR semantics.
type HybridCondition struct {
	Combinator  Combinator `json:"combinator"`
	SubTriggers []Trigger  `json:"subTriggers"`
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

var validOperators = map[string]struct{}{
	">": {}, ">=": {}, "<": {}, "<=": {}, "==": {},
}

// Validate checks the trigger's type-specific registration constraints.
func (t Trigger) Validate() error {
	switch t.Type {
	case TimeTrigger:
		if t.Time == nil {
			return fmt.Errorf("time trigger missing time condition")
		}
		if t.Time.Schedule != "" {
			if _, err := cronParser.Parse(t.Time.Schedule); err != nil {
				return fmt.Errorf("invalid cron schedule %q: %w", t.Time.Schedule, err)
			}
			return nil
		}
		if t.Time.Interval < MinTriggerInterval || t.Time.Interval > MaxTriggerInterval {
			return fmt.Errorf("interval %d out of range [%d, %d]", t.Time.Interval, MinTriggerInterval, MaxTriggerInterval)
		}
	case ConditionalTrigger:
		if t.Condition == nil {
			return fmt.Errorf("conditional trigger missing condition")
		}
		if t.Condition.Expression == "" {
			return fmt.Errorf("predicate expression cannot be empty")
		}
		if len(t.Condition.Expression) > MaxPredicateLen {
			return fmt.Errorf("predicate expression exceeds %d chars", MaxPredicateLen)
		}
		if _, ok := validOperators[t.Condition.Operator]; !ok {
			return fmt.Errorf("unknown predicate operator %q", t.Condition.Operator)
		}
	case LogTrigger:
		if t.Log == nil {
			return fmt.Errorf("log trigger missing log condition")
		}
		if t.Log.EventSignature == "" {
			return fmt.Errorf("event signature cannot be empty")
		}
		if len(t.Log.EventSignature) > MaxPredicateLen {
			return fmt.Errorf("event signature exceeds %d chars", MaxPredicateLen)
		}
	case HybridTrigger:
		if t.Hybrid == nil {
			return fmt.Errorf("hybrid trigger missing hybrid condition")
		}
		if len(t.Hybrid.SubTriggers) == 0 {
			return fmt.Errorf("hybrid trigger needs at least one sub-trigger")
		}
		if len(t.Hybrid.SubTriggers) > MaxHybridSubTriggers {
			return fmt.Errorf("hybrid trigger exceeds %d sub-triggers", MaxHybridSubTriggers)
		}
		if t.Hybrid.Combinator != CombinatorAnd && t.Hybrid.Combinator != CombinatorOr {
			return fmt.Errorf("unknown combinator %d", t.Hybrid.Combinator)
		}
		for i, sub := range t.Hybrid.SubTriggers {
			if sub.Type == HybridTrigger {
				return fmt.Errorf("hybrid trigger cannot nest another hybrid trigger")
			}
			if err := sub.Validate(); err != nil {
				return fmt.Errorf("sub-trigger %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unknown trigger type %d", t.Type)
	}
	return nil
}

// EncodeParams serializes the trigger's condition payload for account
// storage. The type tag is stored separately on the job.
func (t Trigger) EncodeParams() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxTriggerParamLen {
		return nil, fmt.Errorf("trigger params exceed %d bytes", MaxTriggerParamLen)
	}
	return raw, nil
}

// DecodeTrigger reconstructs a trigger from a stored type tag and payload,
// verifying the tag matches the payload.
func DecodeTrigger(tt TriggerType, params []byte) (Trigger, error) {
	var t Trigger
	if err := json.Unmarshal(params, &t); err != nil {
		return Trigger{}, fmt.Errorf("malformed trigger params: %w", err)
	}
	if t.Type != tt {
		return Trigger{}, fmt.Errorf("trigger type tag %s does not match payload type %s", tt, t.Type)
	}
	if err := t.Validate(); err != nil {
		return Trigger{}, err
	}
	return t, nil
}
