package domain

// FilterValid drops questions failing the structural check, preserving order.
func FilterValid(questions []Question) []Question {
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.Valid() {
			out = append(out, q)
		}
	}
	return out
}

// SelectRandom shuffles the valid questions of pool for topic and returns up to count of them.
// An empty topic accepts every question. A pool smaller than count is returned whole.
func SelectRandom(pool []Question, topic string, count int, shuffle func(n int, swap func(i, j int))) []Question {
	candidates := make([]Question, 0, len(pool))
	for _, q := range pool {
		if !q.Valid() {
			continue
		}
		if topic != "" && q.Topic != topic {
			continue
		}
		candidates = append(candidates, q)
	}
	shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if count >= 0 && len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}
