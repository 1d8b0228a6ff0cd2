// ABOUTME: Greedy combination optimizer: scores, selects, and orders candidate
// ABOUTME: interview questions under a token budget with topic-balance constraints.
package optimizer

import (
	"math"
	"sort"
)

// Speaking-rate model constants. The duration budget is converted to a token
// budget assuming 60% of the call is speakable content at 150 words per
// minute and 1.3 tokens per word.
const (
	speakableFraction = 0.60
	wordsPerMinute    = 150.0
	tokensPerWord     = 1.3

	// minUsefulTokens is the smallest remaining budget worth filling;
	// below this there is no room for another meaningful question.
	minUsefulTokens = 15

	// Per-question fixed overheads added to the duration estimate.
	interactionSecondsPerItem = 8
	processingSecondsPerItem  = 2

	// DefaultMaxItems caps the number of selected questions when the
	// request does not specify its own limit.
	DefaultMaxItems = 20

	// topicShareLimit bounds any single topic's share of the selected set
	// once more than two questions are selected (inclusive via ceiling).
	topicShareLimit = 0.60
)

// TokenBudget converts a call duration budget to a token budget using the
// fixed speaking-rate model.
func TokenBudget(durationSeconds int) int {
	speakableSeconds := float64(durationSeconds) * speakableFraction
	words := speakableSeconds / 60.0 * wordsPerMinute
	return int(words * tokensPerWord)
}

// speakingSeconds is the inverse conversion: tokens back to seconds of speech.
func speakingSeconds(tokens int) float64 {
	words := float64(tokens) / tokensPerWord
	return words / wordsPerMinute * 60.0
}

// Optimize selects, bounds, and orders a subset of candidates for one
// time-boxed conversation. It is deterministic: identical inputs always
// produce the identical ordered sequence. Ties in score keep the original
// candidate order (stable sort).
//
// The selection is an intentional greedy heuristic, not an exact knapsack
// solve: candidates are ranked by priorityWeight × topicWeight × tokenEfficiency
// and accepted in rank order subject to the remaining budget, the topic-share
// cap, and maxItems.
func Optimize(candidates []Candidate, durationSeconds int, priorityWeights, topicWeights map[string]float64, maxItems int) *Combination {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	budget := TokenBudget(durationSeconds)

	type scored struct {
		c     Candidate
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scored{c: c, score: score(c, priorityWeights, topicWeights)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	remaining := budget
	topicCount := make(map[string]int)
	var accepted []Candidate
	for _, s := range ranked {
		if len(accepted) >= maxItems {
			break
		}
		if remaining < minUsefulTokens {
			break
		}
		if s.c.TokenCost > remaining {
			continue
		}
		// Topic balance: once the set would grow past two questions, no
		// topic may exceed ceil(0.6 × selectedCount) occurrences.
		if prospective := len(accepted) + 1; prospective > 2 {
			limit := int(math.Ceil(topicShareLimit * float64(prospective)))
			if topicCount[s.c.Topic]+1 > limit {
				continue
			}
		}
		accepted = append(accepted, s.c)
		topicCount[s.c.Topic]++
		remaining -= s.c.TokenCost
	}

	ordered := interleaveByTopic(accepted)

	totalTokens := 0
	for _, c := range accepted {
		totalTokens += c.TokenCost
	}

	questions := make([]Selected, len(ordered))
	for i, c := range ordered {
		questions[i] = Selected{
			QuestionID: c.ID,
			Priority:   c.Priority,
			TokenCost:  c.TokenCost,
			Topic:      c.Topic,
			Position:   i + 1,
		}
	}

	return &Combination{
		Questions:                questions,
		TotalTokens:              totalTokens,
		EstimatedDurationSeconds: estimateDuration(totalTokens, len(accepted)),
		PriorityScore:            priorityScore(accepted, priorityWeights),
		TopicDistribution:        topicDistribution(topicCount, len(accepted)),
	}
}

// FilterExcluded removes excluded question ids from the candidate list,
// preserving order. The returned slice and the exclusion list are disjoint.
func FilterExcluded(candidates []Candidate, exclude []string) []Candidate {
	if len(exclude) == 0 {
		return candidates
	}
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !excluded[c.ID] {
			kept = append(kept, c)
		}
	}
	return kept
}

// score ranks a candidate by its effective priority, its topic preference,
// and a mild token-efficiency factor favoring shorter questions.
func score(c Candidate, priorityWeights, topicWeights map[string]float64) float64 {
	pw, ok := priorityWeights[c.ID]
	if !ok {
		pw = float64(c.Priority)
	}
	tw, ok := topicWeights[c.Topic]
	if !ok {
		tw = 1.0
	}
	cost := c.TokenCost
	if cost < 1 {
		cost = 1
	}
	tokenEfficiency := 1.0 / (float64(cost) / 10.0)
	return pw * tw * tokenEfficiency
}

// interleaveByTopic re-orders the accepted set for conversational flow:
// questions are grouped by topic (topics in first-acceptance order, questions
// within a topic in acceptance order) and dealt out round-robin across the
// topic groups.
func interleaveByTopic(accepted []Candidate) []Candidate {
	var topics []string
	groups := make(map[string][]Candidate)
	for _, c := range accepted {
		if _, seen := groups[c.Topic]; !seen {
			topics = append(topics, c.Topic)
		}
		groups[c.Topic] = append(groups[c.Topic], c)
	}

	ordered := make([]Candidate, 0, len(accepted))
	for round := 0; len(ordered) < len(accepted); round++ {
		for _, t := range topics {
			if round < len(groups[t]) {
				ordered = append(ordered, groups[t][round])
			}
		}
	}
	return ordered
}

// estimateDuration derives the expected call time for the selected set:
// speech time from the speaking-rate model plus fixed per-question
// interaction and processing overheads, rounded up to whole seconds.
func estimateDuration(totalTokens, count int) int {
	if count == 0 {
		return 0
	}
	speaking := speakingSeconds(totalTokens)
	interaction := float64(count * interactionSecondsPerItem)
	processing := float64(count * processingSecondsPerItem)
	return int(math.Ceil(speaking + interaction + processing))
}

// priorityScore is the mean effective priority weight over the selected set,
// rounded to two decimals.
func priorityScore(accepted []Candidate, priorityWeights map[string]float64) float64 {
	if len(accepted) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range accepted {
		if w, ok := priorityWeights[c.ID]; ok {
			sum += w
		} else {
			sum += float64(c.Priority)
		}
	}
	return round2(sum / float64(len(accepted)))
}

// topicDistribution is selected-count-per-topic divided by total selected,
// rounded to two decimals.
func topicDistribution(topicCount map[string]int, total int) map[string]float64 {
	dist := make(map[string]float64, len(topicCount))
	if total == 0 {
		return dist
	}
	for topic, n := range topicCount {
		dist[topic] = round2(float64(n) / float64(total))
	}
	return dist
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
