package services

import "time"

var (
	store              Store
	lifecycleService   *LifecycleService
	sweepService       *SweepService
	responderService   *ResponderService
	adjudicatorService *AdjudicatorService
	appealService      *AppealService

	defaultTotalRounds   int
	defaultRoundDuration time.Duration
)

// Options carries everything Init needs to assemble the engine
type Options struct {
	Store                Store
	Verdicts             VerdictGenerator
	Statements           StatementGenerator
	Notifier             Notifier
	PanelSize            int
	WaitingTTL           time.Duration
	AiMinDelay           time.Duration
	DefaultTotalRounds   int
	DefaultRoundDuration time.Duration
}

// Init wires up the service singletons. Must be called once at startup before
// any handler runs.
func Init(opts Options) {
	store = opts.Store
	defaultTotalRounds = opts.DefaultTotalRounds
	defaultRoundDuration = opts.DefaultRoundDuration

	adjudicatorService = NewAdjudicatorService(opts.Store, opts.Verdicts, opts.Notifier, opts.PanelSize)
	lifecycleService = NewLifecycleService(opts.Store, opts.Notifier, adjudicatorService)
	sweepService = NewSweepService(opts.Store, lifecycleService, opts.WaitingTTL)
	responderService = NewResponderService(opts.Store, lifecycleService, opts.Statements, opts.Notifier, opts.AiMinDelay)
	appealService = NewAppealService(opts.Store, opts.Verdicts, opts.Notifier, opts.PanelSize)
}

func GetStore() Store                  { return store }
func Lifecycle() *LifecycleService     { return lifecycleService }
func Sweep() *SweepService             { return sweepService }
func Responder() *ResponderService     { return responderService }
func Adjudicator() *AdjudicatorService { return adjudicatorService }
func Appeals() *AppealService          { return appealService }

// DebateDefaults returns the configured round count and duration for new debates
func DebateDefaults() (int, time.Duration) {
	return defaultTotalRounds, defaultRoundDuration
}
