// Trust pipeline for crowdsourced chatbot ratings.
//
// This package (`github.com/Abhijit-Sethi/humane-ai-rater/trustmod`) decides how much weight each anonymous rating should carry. Every inbound rating is rate limited per device, run through a set of anomaly rules (timing, interaction signals, burst and uniformity checks), given a multiplicative trust weight, and then either folded into the per-platform aggregate or only recorded. Suspicious ratings are copied to a review queue for humans. Scheduled jobs append a daily trend score per platform and purge stale rate-limit counters.
//
// The engine lives in `trustmod/engine`, the detectors in `trustmod/rules`, and `cmd/raterd` is a daemon built on this package.
package trustmod
