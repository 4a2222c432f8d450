package service

// Predicate names reported to the challenge tracker.
const (
	ChallengeForgedReview   = "forged_review"
	ChallengeNoSQLInjection = "nosql_injection"
	ChallengeTimingAttack   = "timing_attack"
)

// ChallengeTracker records security-relevant observations made by the
// handlers. Notifications are fire-and-forget and never influence the
// outcome of the request that raised them.
type ChallengeTracker interface {
	Notify(name string, observed bool)
}
