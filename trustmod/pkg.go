package trustmod

import (
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/engine"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/rules"
)

type Engine = engine.Engine
type Config = engine.Config
type RuleSet = engine.RuleSet
type Submission = engine.Submission
type Result = engine.Result

type Forwarder = engine.Forwarder
type HTTPForwarder = engine.HTTPForwarder
type SlackNotifier = engine.SlackNotifier

type RatingContext = engine.RatingContext
type RatingRuleFunc = engine.RatingRuleFunc

var (
	NewEngine     = engine.NewEngine
	DefaultConfig = engine.DefaultConfig
	DefaultRules  = rules.DefaultRules

	ErrInvalidSubmission = engine.ErrInvalidSubmission
)
