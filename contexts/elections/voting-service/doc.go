// Package votingservice implements the candidate ballot service inside the
// elections context.
//
// Registered candidates double as voters: each logs in with a voter id and
// casts exactly one ballot naming three other candidates. The ballot is
// validated and applied in a single store transaction that records the votes,
// bumps each recipient's tally and flips the voter's has_voted flag, so
// results and participation stats always agree. Leaderboard reads are served
// cache-first, and committed ballots reach the event bus through an outbox
// relay.
package votingservice
